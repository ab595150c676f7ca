package grid

import "testing"

func TestChessDistance(t *testing.T) {
	cases := []struct {
		i1, j1, i2, j2, want int
	}{
		{0, 0, 0, 0, 0},
		{0, 0, 1, 1, 1},
		{0, 0, 3, 1, 3},
		{2, 5, 0, 0, 5},
	}
	for _, c := range cases {
		if got := chessDistance(c.i1, c.j1, c.i2, c.j2); got != c.want {
			t.Errorf("chessDistance(%d,%d,%d,%d) = %d, want %d", c.i1, c.j1, c.i2, c.j2, got, c.want)
		}
	}
}

func TestFillDensifiesSingleKnownCell(t *testing.T) {
	nx, ny := 3, 3
	f := NewField(nx * ny)
	f.bin(0, 100) // cell (0,0)

	dense, err := Fill(f, nx, ny, 1, 1)
	if err != nil {
		t.Fatalf("Fill returned error: %v", err)
	}
	for idx, k := range dense.Known {
		if !k {
			t.Fatalf("expected every cell known after Fill, cell %d is unknown", idx)
		}
	}
}

func TestFillLeavesKnownCellsUnchanged(t *testing.T) {
	nx, ny := 2, 2
	f := NewField(nx * ny)
	f.bin(0, 42)

	dense, err := Fill(f, nx, ny, 1, 1)
	if err != nil {
		t.Fatalf("Fill returned error: %v", err)
	}
	if dense.Values[0] != 42 {
		t.Fatalf("expected original known value preserved, got %v", dense.Values[0])
	}
}

func TestFillRejectsAllUnknownField(t *testing.T) {
	f := NewField(4)
	_, err := Fill(f, 2, 2, 1, 1)
	if err == nil {
		t.Fatal("expected error interpolating a field with no known cells")
	}
}

func TestFillAllProducesFullyDenseFields(t *testing.T) {
	nx, ny := 2, 2
	fields := &Fields{
		Temperature: NewField(nx * ny),
		Pressure:    NewField(nx * ny),
		U:           NewField(nx * ny),
		V:           NewField(nx * ny),
		Pollutants:  map[string]Field{"NO2": NewField(nx * ny)},
	}
	fields.Temperature.bin(0, 15)
	fields.Pressure.bin(0, 1013)
	fields.U.bin(0, 1)
	fields.V.bin(0, 1)
	p := fields.Pollutants["NO2"]
	p.bin(0, 10)
	fields.Pollutants["NO2"] = p

	dense, err := FillAll(fields, nx, ny, 1, 1)
	if err != nil {
		t.Fatalf("FillAll returned error: %v", err)
	}
	for _, known := range dense.Temperature.Known {
		if !known {
			t.Fatal("expected temperature field fully dense")
		}
	}
	for _, known := range dense.Pollutants["NO2"].Known {
		if !known {
			t.Fatal("expected pollutant field fully dense")
		}
	}
}
