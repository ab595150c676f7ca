package grid

import "fmt"

// chessDistance is the Chebyshev (chessboard) distance between two cells.
func chessDistance(i1, j1, i2, j2 int) int {
	di, dj := i1-i2, j1-j2
	if di < 0 {
		di = -di
	}
	if dj < 0 {
		dj = -dj
	}
	if di > dj {
		return di
	}
	return dj
}

// neighbors returns every cell within Chebyshev distance `distance` of
// (i, j), excluding (i, j) itself, clipped to the grid bounds.
func neighbors(nx, ny, i, j, distance int) [][2]int {
	var out [][2]int
	for di := -distance; di <= distance; di++ {
		for dj := -distance; dj <= distance; dj++ {
			if di == 0 && dj == 0 {
				continue
			}
			ni, nj := i+di, j+dj
			if ni < 0 || ni >= nx || nj < 0 || nj >= ny {
				continue
			}
			if chessDistance(i, j, ni, nj) <= distance {
				out = append(out, [2]int{ni, nj})
			}
		}
	}
	return out
}

// weightedPass runs a single weighted-neighborhood-average pass over f at
// the given Chebyshev distance, returning a new Field with every unknown
// cell that received at least one contribution filled in. Known cells are
// copied through unchanged: a cell that starts known never receives a
// contribution because only unknown cells are targets (spec invariant 3).
func weightedPass(f Field, nx, ny, distance int) Field {
	out := Field{
		Values: append([]float64(nil), f.Values...),
		Known:  append([]bool(nil), f.Known...),
	}

	type acc struct {
		sum, weight float64
	}
	touched := make(map[int]*acc)

	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			idx := i*ny + j
			if !f.Known[idx] {
				continue
			}
			for _, n := range neighbors(nx, ny, i, j, distance) {
				nidx := n[0]*ny + n[1]
				if f.Known[nidx] {
					continue
				}
				d := chessDistance(i, j, n[0], n[1])
				w := 1 / (1 + float64(d*d))
				a, ok := touched[nidx]
				if !ok {
					a = &acc{}
					touched[nidx] = a
				}
				a.sum += f.Values[idx] * w
				a.weight += w
			}
		}
	}

	for idx, a := range touched {
		out.Values[idx] = a.sum / a.weight
		out.Known[idx] = true
	}
	return out
}

// Fill runs the multi-pass weighted neighborhood interpolation of spec
// §4.B until no unknown cell remains, starting at Chebyshev distance
// max(1, initialDistance) and growing by increment each iteration. It
// fails if the field has no known cell at all (open question in spec §9,
// resolved here as: fail the job with a clear error).
func Fill(f Field, nx, ny, initialDistance, increment int) (Field, error) {
	if increment < 1 {
		increment = 1
	}
	hasKnown := false
	for _, k := range f.Known {
		if k {
			hasKnown = true
			break
		}
	}
	if !hasKnown {
		return Field{}, fmt.Errorf("grid: cannot interpolate a field with zero known cells")
	}

	maxDim := nx
	if ny > maxDim {
		maxDim = ny
	}

	distance := initialDistance
	if distance < 1 {
		distance = 1
	}

	current := f
	for {
		complete := true
		for _, k := range current.Known {
			if !k {
				complete = false
				break
			}
		}
		if complete {
			return current, nil
		}

		effective := distance
		if effective > maxDim {
			effective = maxDim
		}
		current = weightedPass(current, nx, ny, effective)
		distance += increment
	}
}

// FillAll interpolates every field in fields (temperature, pressure, wind
// components, and each pollutant) using the same initialDistance and
// increment, returning once every field is fully dense. Each field is filled
// by its own Fill call with its own distance counter, so a field that is
// already dense stops growing its distance while the others continue.
func FillAll(fields *Fields, nx, ny, initialDistance, increment int) (*Fields, error) {
	dense := &Fields{Pollutants: make(map[string]Field, len(fields.Pollutants))}

	var err error
	if dense.Temperature, err = Fill(fields.Temperature, nx, ny, initialDistance, increment); err != nil {
		return nil, fmt.Errorf("grid: interpolating temperature: %w", err)
	}
	if dense.Pressure, err = Fill(fields.Pressure, nx, ny, initialDistance, increment); err != nil {
		return nil, fmt.Errorf("grid: interpolating pressure: %w", err)
	}
	if dense.U, err = Fill(fields.U, nx, ny, initialDistance, increment); err != nil {
		return nil, fmt.Errorf("grid: interpolating wind u-component: %w", err)
	}
	if dense.V, err = Fill(fields.V, nx, ny, initialDistance, increment); err != nil {
		return nil, fmt.Errorf("grid: interpolating wind v-component: %w", err)
	}
	for name, pf := range fields.Pollutants {
		filled, err := Fill(pf, nx, ny, initialDistance, increment)
		if err != nil {
			return nil, fmt.Errorf("grid: interpolating pollutant %s: %w", name, err)
		}
		dense.Pollutants[name] = filled
	}
	return dense, nil
}
