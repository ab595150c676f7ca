package simulation

import (
	"math"
	"strconv"

	"github.com/GaryBoone/GoStats/stats"

	"github.com/kacperpap/air-pollution-tracker/internal/grid"
)

// OutputBox mirrors one grid cell's geographic bounds in the wire format.
type OutputBox struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// OutputGrid carries the row-major cell geometry, in the same order as the
// environment and pollutant arrays (spec §6).
type OutputGrid struct {
	Boxes []OutputBox `json:"boxes"`
}

// PollutantsData carries every recorded snapshot plus the final state, one
// flattened nx*ny array per pollutant.
type PollutantsData struct {
	Steps     map[string]map[string][]float64 `json:"steps"`
	FinalStep map[string][]float64            `json:"final_step"`
}

// Environment carries the interpolated ambient fields, with wind
// recomputed back into speed/azimuth form from the internal u/v
// representation (spec §6).
type Environment struct {
	Temperature   []float64 `json:"temperature"`
	Pressure      []float64 `json:"pressure"`
	WindSpeed     []float64 `json:"windSpeed"`
	WindDirection []float64 `json:"windDirection"`
}

// PollutantSummary carries the extremes of a pollutant's final concentration
// field, for dashboards that don't want to scan the full grid just to
// render a color scale.
type PollutantSummary struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// Output is the complete result payload for a completed job.
type Output struct {
	Grid        OutputGrid                  `json:"grid"`
	Pollutants  PollutantsData              `json:"pollutants"`
	Environment Environment                 `json:"environment"`
	Summary     map[string]PollutantSummary `json:"summary"`
}

// windSpeedDirection converts Cartesian wind components back to a speed
// and azimuth (spec §6: speed = sqrt(u²+v²), direction =
// (90 - atan2(u,v)*180/π) mod 360). The direction is not the inverse of
// grid.windComponents: due-east (u=5, v=0) decodes to 0 and due-north
// (u=0, v=5) decodes to 90.
func windSpeedDirection(u, v float64) (speed, azimuth float64) {
	speed = math.Hypot(u, v)
	mathAngle := math.Atan2(u, v) * 180 / math.Pi
	azimuth = math.Mod(90-mathAngle, 360)
	if azimuth < 0 {
		azimuth += 360
	}
	return speed, azimuth
}

// buildOutput assembles the final Output structure from the grid geometry,
// dense environment fields, and the per-pollutant snapshot history.
func buildOutput(g *grid.Grid, dense *grid.Fields, snapshots map[string][]snapshot, final map[string][]float64) Output {
	boxes := make([]OutputBox, len(g.Boxes))
	for i, b := range g.Boxes {
		boxes[i] = OutputBox{LatMin: b.LatMin, LatMax: b.LatMax, LonMin: b.LonMin, LonMax: b.LonMax}
	}

	n := g.NX * g.NY
	windSpeed := make([]float64, n)
	windDirection := make([]float64, n)
	for i := 0; i < n; i++ {
		windSpeed[i], windDirection[i] = windSpeedDirection(dense.U.Values[i], dense.V.Values[i])
	}

	stepsOut := make(map[string]map[string][]float64)
	for pollutant, snaps := range snapshots {
		for _, s := range snaps {
			key := strconv.Itoa(s.step)
			m, ok := stepsOut[key]
			if !ok {
				m = make(map[string][]float64)
				stepsOut[key] = m
			}
			m[pollutant] = s.values
		}
	}

	summary := make(map[string]PollutantSummary, len(final))
	for pollutant, values := range final {
		if len(values) == 0 {
			continue
		}
		summary[pollutant] = PollutantSummary{
			Max: stats.StatsMax(values),
			Min: stats.StatsMin(values),
		}
	}

	return Output{
		Grid: OutputGrid{Boxes: boxes},
		Pollutants: PollutantsData{
			Steps:     stepsOut,
			FinalStep: final,
		},
		Environment: Environment{
			Temperature:   append([]float64(nil), dense.Temperature.Values...),
			Pressure:      append([]float64(nil), dense.Pressure.Values...),
			WindSpeed:     windSpeed,
			WindDirection: windDirection,
		},
		Summary: summary,
	}
}

// snapshot is a flattened copy of a pollutant's concentration field
// captured at a given step (spec §3: Snapshot).
type snapshot struct {
	step   int
	values []float64
}
