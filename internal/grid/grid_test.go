package grid

import (
	"math"
	"testing"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
)

func measurementAt(id int, lat, lon, temp, windSpeed, windDir, pressure float64, pollutant string, val float64) model.Measurement {
	return model.Measurement{
		ID: id, Latitude: lat, Longitude: lon,
		Temperature: temp, WindSpeed: windSpeed, WindDirection: windDir, Pressure: pressure,
		PollutionMeasurements: []model.PollutionMeasurement{{Type: pollutant, Value: val}},
	}
}

func TestBuildProducesGridCoveringAllMeasurements(t *testing.T) {
	ms := []model.Measurement{
		measurementAt(1, 50.0, 19.0, 15, 2, 90, 1013, "NO2", 10),
		measurementAt(2, 50.1, 19.2, 16, 3, 180, 1012, "NO2", 20),
	}
	g, fields, err := Build(ms, []string{"NO2"}, model.GridMedium, false, 1)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if g.NX < 1 || g.NY < 1 {
		t.Fatalf("expected a non-degenerate grid, got nx=%d ny=%d", g.NX, g.NY)
	}
	if len(g.Boxes) != g.NX*g.NY {
		t.Fatalf("expected %d boxes, got %d", g.NX*g.NY, len(g.Boxes))
	}
	if len(fields.Pollutants["NO2"].Values) != g.NX*g.NY {
		t.Fatalf("pollutant field size mismatch")
	}
}

func TestBuildRejectsOversizedGrid(t *testing.T) {
	ms := []model.Measurement{
		measurementAt(1, 0.0, 0.0, 15, 2, 90, 1013, "NO2", 10),
		measurementAt(2, 50.0, 50.0, 16, 3, 180, 1012, "NO2", 20),
	}
	_, _, err := Build(ms, []string{"NO2"}, model.GridDense, true, 50)
	if err == nil {
		t.Fatal("expected an error for a grid exceeding the maximum cell count")
	}
}

func TestBuildHandlesCoincidentMeasurements(t *testing.T) {
	ms := []model.Measurement{
		measurementAt(1, 50.0, 19.0, 15, 2, 90, 1013, "NO2", 10),
		measurementAt(2, 50.0, 19.0, 16, 3, 180, 1012, "NO2", 20),
	}
	g, _, err := Build(ms, []string{"NO2"}, model.GridSparse, false, 1)
	if err != nil {
		t.Fatalf("expected degenerate-area fallback to succeed, got error: %v", err)
	}
	if g.NX < 1 || g.NY < 1 {
		t.Fatal("expected at least one interior cell for coincident measurements")
	}
}

func TestBuildUrbanizedDoublesTargetCells(t *testing.T) {
	ms := []model.Measurement{
		measurementAt(1, 50.0, 19.0, 15, 2, 90, 1013, "NO2", 10),
		measurementAt(2, 50.5, 19.5, 16, 3, 180, 1012, "NO2", 20),
	}
	plain, _, err := Build(ms, []string{"NO2"}, model.GridMedium, false, 0)
	if err != nil {
		t.Fatalf("Build(plain) error: %v", err)
	}
	urban, _, err := Build(ms, []string{"NO2"}, model.GridMedium, true, 0)
	if err != nil {
		t.Fatalf("Build(urbanized) error: %v", err)
	}
	if urban.NX*urban.NY <= plain.NX*plain.NY {
		t.Fatalf("expected urbanized grid to have more cells: plain=%d urban=%d", plain.NX*plain.NY, urban.NX*urban.NY)
	}
}

func TestWindComponentsDueEast(t *testing.T) {
	u, v := windComponents(5, 90)
	if math.Abs(u-5) > 1e-9 || math.Abs(v) > 1e-9 {
		t.Fatalf("expected due-east wind to be u=5,v=0, got u=%v v=%v", u, v)
	}
}

func TestFieldBinAveragesRepeatedObservations(t *testing.T) {
	f := NewField(1)
	f.bin(0, 10)
	f.bin(0, 20)
	if f.Values[0] != 15 {
		t.Fatalf("expected pairwise average 15, got %v", f.Values[0])
	}
	if !f.Known[0] {
		t.Fatal("expected cell to be marked known after first bin")
	}
}
