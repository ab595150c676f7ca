package model

import "fmt"

// GridDensity selects the target cell count used by the grid builder.
type GridDensity string

// Recognized grid densities and their target cell counts, before the
// urbanized doubling. See spec §4.A.
const (
	GridSparse GridDensity = "sparse"
	GridMedium GridDensity = "medium"
	GridDense  GridDensity = "dense"
)

// TargetCells maps a density to its base target cell count.
var TargetCells = map[GridDensity]int{
	GridSparse: 10,
	GridMedium: 100,
	GridDense:  1000,
}

// DiffusionMethod selects how per-cell diffusion coefficients are computed.
type DiffusionMethod string

const (
	DiffusionMolecular DiffusionMethod = "molecular"
	DiffusionTurbulent DiffusionMethod = "turbulent"
)

// MaxCells is the hard cap on nx*ny for any job's grid.
const MaxCells = 5000

// SimulationJob is the fully-parsed, validated description of one
// simulation request, owned by exactly one worker for its lifetime.
type SimulationJob struct {
	Measurements    []Measurement   `json:"-"`
	NumSteps        int             `json:"numSteps"`
	Pollutants      []string        `json:"pollutants"`
	GridDensity     GridDensity     `json:"gridDensity"`
	Urbanized       bool            `json:"urbanized"`
	MarginBoxes     int             `json:"marginBoxes"`
	InitialDistance int             `json:"initialDistance"`
	DecayRate       float64         `json:"decayRate"`
	EmissionRate    float64         `json:"emissionRate"`
	SnapInterval    int             `json:"snapInterval"`
	DiffusionMethod DiffusionMethod `json:"diffusionMethod,omitempty"`

	// CorrelationID and ReplyTo come from the broker message's AMQP
	// properties, not the JSON body.
	CorrelationID string `json:"-"`
	ReplyTo       string `json:"-"`
}

// Validate enforces the job invariants from spec §3: num_steps >= 1, rates
// non-negative, initial_distance >= 1, and that every measurement carries
// every requested pollutant.
func (j *SimulationJob) Validate() error {
	if j.NumSteps < 1 {
		return fmt.Errorf("model: numSteps must be >= 1, got %d", j.NumSteps)
	}
	if j.DecayRate < 0 {
		return fmt.Errorf("model: decayRate must be non-negative, got %v", j.DecayRate)
	}
	if j.EmissionRate < 0 {
		return fmt.Errorf("model: emissionRate must be non-negative, got %v", j.EmissionRate)
	}
	if j.InitialDistance < 1 {
		return fmt.Errorf("model: initialDistance must be >= 1, got %d", j.InitialDistance)
	}
	if j.SnapInterval < 1 {
		return fmt.Errorf("model: snapInterval must be >= 1, got %d", j.SnapInterval)
	}
	if _, ok := TargetCells[j.GridDensity]; !ok {
		return fmt.Errorf("model: unrecognized gridDensity %q", j.GridDensity)
	}
	if len(j.Pollutants) == 0 {
		return fmt.Errorf("model: at least one pollutant must be requested")
	}
	return ValidateForPollutants(j.Measurements, j.Pollutants)
}
