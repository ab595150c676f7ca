// Package diffusion computes per-cell diffusion coefficients from ambient
// temperature, pressure, and wind fields (spec §4.C, component C).
package diffusion

import (
	"fmt"
	"math"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
)

// molecularCoeffs is the D0 (cm²/s) and temperature exponent table for the
// molecular diffusion method, spec §4.C.
var molecularCoeffs = map[string]struct {
	D0       float64
	Exponent float64
}{
	"CO":  {D0: 0.16, Exponent: 1.75},
	"NO2": {D0: 0.14, Exponent: 1.76},
	"SO2": {D0: 0.15, Exponent: 1.78},
	"O3":  {D0: 0.11, Exponent: 1.82},
}

const (
	referenceHeight = 10.0 // z, meters
	vonKarman       = 0.4  // alpha
)

// SurfaceRoughness returns z0 for an urbanized or rural surface class.
func SurfaceRoughness(urbanized bool) float64 {
	if urbanized {
		return 1.0
	}
	return 0.1
}

// Molecular computes K for every cell from temperature alone, using the
// pollutant's D0/exponent table entry. K_x == K_y always (spec §4.C).
func Molecular(pollutant string, temperatureC []float64) ([]float64, error) {
	c, ok := molecularCoeffs[pollutant]
	if !ok {
		return nil, fmt.Errorf("diffusion: unknown pollutant %q for molecular method", pollutant)
	}
	d0 := c.D0 / 1e4 // cm^2/s -> m^2/s
	out := make([]float64, len(temperatureC))
	for i, t := range temperatureC {
		tk := t + 273.15
		out[i] = d0 * math.Pow(tk/293.15, c.Exponent)
	}
	return out, nil
}

// Turbulent computes K for every cell from wind speed via neutral
// Monin-Obukhov similarity: u* = alpha*|V| / ln(z/z0), K = alpha*u*z.
func Turbulent(u, v []float64, surfaceRoughness float64) []float64 {
	out := make([]float64, len(u))
	lnTerm := math.Log(referenceHeight/surfaceRoughness) + 1e-10
	for i := range u {
		speed := math.Hypot(u[i], v[i])
		uStar := vonKarman * speed / lnTerm
		out[i] = vonKarman * uStar * referenceHeight
	}
	return out
}

// Compute dispatches to the requested method and scales the result by the
// cell side in meters, per spec §4.C ("Both return K scaled by cell side
// in meters").
func Compute(method model.DiffusionMethod, pollutant string, temperatureC, u, v []float64, cellSideMeters, surfaceRoughness float64) ([]float64, error) {
	var k []float64
	var err error
	switch method {
	case model.DiffusionMolecular:
		k, err = Molecular(pollutant, temperatureC)
		if err != nil {
			return nil, err
		}
	case model.DiffusionTurbulent:
		k = Turbulent(u, v, surfaceRoughness)
	default:
		return nil, fmt.Errorf("diffusion: unsupported method %q", method)
	}
	scaled := make([]float64, len(k))
	for i, v := range k {
		scaled[i] = v * cellSideMeters
	}
	return scaled, nil
}
