package diffusion

import (
	"math"
	"testing"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
)

func TestMolecularIncreasesWithTemperature(t *testing.T) {
	cold, err := Molecular("NO2", []float64{0})
	if err != nil {
		t.Fatalf("Molecular returned error: %v", err)
	}
	hot, err := Molecular("NO2", []float64{40})
	if err != nil {
		t.Fatalf("Molecular returned error: %v", err)
	}
	if !(hot[0] > cold[0]) {
		t.Fatalf("expected diffusivity to increase with temperature: cold=%v hot=%v", cold[0], hot[0])
	}
}

func TestMolecularRejectsUnknownPollutant(t *testing.T) {
	if _, err := Molecular("XENON", []float64{20}); err == nil {
		t.Fatal("expected error for a pollutant with no molecular coefficient table entry")
	}
}

func TestTurbulentIncreasesWithWindSpeed(t *testing.T) {
	calm := Turbulent([]float64{0}, []float64{0}, 0.1)
	windy := Turbulent([]float64{5}, []float64{0}, 0.1)
	if !(windy[0] > calm[0]) {
		t.Fatalf("expected turbulent diffusivity to increase with wind speed: calm=%v windy=%v", calm[0], windy[0])
	}
}

func TestTurbulentHigherOverRuralThanUrban(t *testing.T) {
	rural := Turbulent([]float64{5}, []float64{0}, SurfaceRoughness(false))
	urban := Turbulent([]float64{5}, []float64{0}, SurfaceRoughness(true))
	if !(rural[0] > urban[0]) {
		t.Fatalf("expected rougher urban surface to reduce the log-law coefficient: rural=%v urban=%v", rural[0], urban[0])
	}
}

func TestComputeScalesByCellSide(t *testing.T) {
	k1, err := Compute(model.DiffusionTurbulent, "NO2", nil, []float64{3}, []float64{0}, 10, 0.1)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	k2, err := Compute(model.DiffusionTurbulent, "NO2", nil, []float64{3}, []float64{0}, 20, 0.1)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if math.Abs(k2[0]-2*k1[0]) > 1e-9 {
		t.Fatalf("expected K to scale linearly with cell side: k1=%v k2=%v", k1[0], k2[0])
	}
}

func TestComputeRejectsUnsupportedMethod(t *testing.T) {
	if _, err := Compute("empirical", "NO2", []float64{20}, []float64{1}, []float64{1}, 10, 0.1); err == nil {
		t.Fatal("expected error for an unsupported diffusion method")
	}
}
