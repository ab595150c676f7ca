// Package grid builds a uniform lat/lon box grid from sparse measurement
// points and bins observations into cells (spec §4.A, component A).
package grid

import (
	"fmt"
	"math"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
)

// Box is one tile of the uniform grid, with geographic bounds shared by
// every cell in the grid (uniform δlat, δlon).
type Box struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Grid is the dense geometry computed by Build: nx*ny cells in row-major
// order (index = i*NY + j), each with the same cell size.
type Grid struct {
	NX, NY   int
	CellLat  float64 // δlat, cell height in degrees
	CellLon  float64 // δlon, cell width in degrees
	LatMin   float64
	LonMin   float64
	Boxes    []Box // len == NX*NY, row-major
}

// Index returns the flattened row-major index for cell (i, j).
func (g *Grid) Index(i, j int) int { return i*g.NY + j }

// Field is a sparse or dense nx*ny quantity array: Values holds the
// current estimate (zero where unknown) and Known tracks which cells have
// an observed (or interpolated) value. This mirrors the Python
// implementation's use of `None` as the unknown sentinel, without
// overloading float64 with a sentinel value.
type Field struct {
	Values []float64
	Known  []bool
}

// NewField allocates an all-unknown field of size n.
func NewField(n int) Field {
	return Field{Values: make([]float64, n), Known: make([]bool, n)}
}

// bin folds a new sample into cell idx using the running pairwise average
// (prev+new)/2 the source uses — order-dependent, preserved intentionally
// for behavioral parity (spec §4.A, §9).
func (f *Field) bin(idx int, value float64) {
	if !f.Known[idx] {
		f.Values[idx] = value
		f.Known[idx] = true
		return
	}
	f.Values[idx] = (f.Values[idx] + value) / 2
}

// Fields bundles every sparse quantity array produced by Build: ambient
// temperature, pressure, wind components, and one field per requested
// pollutant.
type Fields struct {
	Temperature Field
	Pressure    Field
	U           Field
	V           Field
	Pollutants  map[string]Field
}

// windComponents converts a wind speed/azimuth reading into Cartesian
// components using the azimuth convention (0 = north, clockwise): u =
// V*sin(theta), v = V*cos(theta), theta in radians (spec §4.A).
func windComponents(speed, directionDeg float64) (u, v float64) {
	theta := directionDeg * math.Pi / 180
	return speed * math.Sin(theta), speed * math.Cos(theta)
}

// Build derives a uniform grid from measurements and bins each
// measurement's ambient and pollutant readings into cells. It implements
// spec §4.A's build_grid operation.
func Build(measurements []model.Measurement, pollutants []string, density model.GridDensity, urbanized bool, marginBoxes int) (*Grid, *Fields, error) {
	if len(measurements) == 0 {
		return nil, nil, fmt.Errorf("grid: no measurements supplied")
	}

	latMin, latMax := measurements[0].Latitude, measurements[0].Latitude
	lonMin, lonMax := measurements[0].Longitude, measurements[0].Longitude
	for _, m := range measurements[1:] {
		latMin = math.Min(latMin, m.Latitude)
		latMax = math.Max(latMax, m.Latitude)
		lonMin = math.Min(lonMin, m.Longitude)
		lonMax = math.Max(lonMax, m.Longitude)
	}

	target, ok := model.TargetCells[density]
	if !ok {
		return nil, nil, fmt.Errorf("grid: unrecognized density %q", density)
	}
	if urbanized {
		target *= 2
	}

	totalArea := (latMax - latMin) * (lonMax - lonMin)
	side := math.Sqrt(totalArea / float64(target))
	if side == 0 || math.IsNaN(side) {
		// All measurements coincide at a single point: fall back to an
		// arbitrary small cell so the grid still has one interior cell.
		side = 1e-4
	}

	latMin -= float64(marginBoxes) * side
	latMax += float64(marginBoxes) * side
	lonMin -= float64(marginBoxes) * side
	lonMax += float64(marginBoxes) * side

	nx := int(math.Ceil((latMax - latMin) / side))
	ny := int(math.Ceil((lonMax - lonMin) / side))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	if nx*ny > model.MaxCells {
		return nil, nil, fmt.Errorf("grid: exceeded maximum number of cells: generated %d, max allowed is %d", nx*ny, model.MaxCells)
	}

	g := &Grid{NX: nx, NY: ny, CellLat: side, CellLon: side, LatMin: latMin, LonMin: lonMin}
	g.Boxes = make([]Box, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			g.Boxes[g.Index(i, j)] = Box{
				LatMin: latMin + float64(i)*side,
				LatMax: latMin + float64(i+1)*side,
				LonMin: lonMin + float64(j)*side,
				LonMax: lonMin + float64(j+1)*side,
			}
		}
	}

	fields := &Fields{
		Temperature: NewField(nx * ny),
		Pressure:    NewField(nx * ny),
		U:           NewField(nx * ny),
		V:           NewField(nx * ny),
		Pollutants:  make(map[string]Field, len(pollutants)),
	}
	for _, p := range pollutants {
		f := NewField(nx * ny)
		fields.Pollutants[p] = f
	}

	for _, m := range measurements {
		i := int((m.Latitude - latMin) / side)
		j := int((m.Longitude - lonMin) / side)
		// Safety check mandated by spec §4.A even though bounds are
		// derived from these same measurements, so this should not trigger.
		if i < 0 || i >= nx || j < 0 || j >= ny {
			continue
		}
		idx := g.Index(i, j)

		u, v := windComponents(m.WindSpeed, m.WindDirection)
		fields.Temperature.bin(idx, m.Temperature)
		fields.Pressure.bin(idx, m.Pressure)
		fields.U.bin(idx, u)
		fields.V.bin(idx, v)

		for _, p := range pollutants {
			val, found := m.Pollutant(p)
			if !found {
				continue
			}
			field := fields.Pollutants[p]
			field.bin(idx, val)
			fields.Pollutants[p] = field
		}
	}

	return g, fields, nil
}
