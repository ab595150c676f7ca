// Package stepper implements the Crank-Nicolson advection-diffusion time
// step with upwind advection, Picard iteration, decay, and emission (spec
// §4.D, component D).
package stepper

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// MaxPicardIter bounds the fixed-point iteration resolving the
	// implicit right-hand side.
	MaxPicardIter = 20
	// ConvergenceTol is the Picard iteration stopping tolerance.
	ConvergenceTol = 1e-4
)

// padded wraps an (nx+2)*(ny+2) buffer addressed by the original (i, j)
// coordinates shifted by one, so index 0 is the padding border.
type padded struct {
	nx, ny int // interior dimensions
	pny    int // padded row length (ny+2)
	data   []float64
}

func newPadded(nx, ny int) *padded {
	pny := ny + 2
	return &padded{nx: nx, ny: ny, pny: pny, data: make([]float64, (nx+2)*pny)}
}

func (p *padded) at(i, j int) float64 { return p.data[(i+1)*p.pny+(j+1)] }
func (p *padded) set(i, j int, v float64) { p.data[(i+1)*p.pny+(j+1)] = v }

// padZero copies src (row-major nx*ny) into the interior of a zero-padded
// buffer (spec §4.D.1: C and S_c are zero-padded).
func padZero(src []float64, nx, ny int) *padded {
	p := newPadded(nx, ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			p.set(i, j, src[i*ny+j])
		}
	}
	return p
}

// padEdge copies src into the interior of a buffer whose border repeats the
// nearest interior value (spec §4.D.1: K, u, v are edge-extended).
func padEdge(src []float64, nx, ny int) *padded {
	p := padZero(src, nx, ny)
	for i := 0; i < nx; i++ {
		p.set(i, -1, p.at(i, 0))
		p.set(i, ny, p.at(i, ny-1))
	}
	for j := -1; j <= ny; j++ {
		p.set(-1, j, p.at(0, j))
		p.set(nx, j, p.at(nx-1, j))
	}
	return p
}

// Inputs bundles the per-step fields a Step call needs.
type Inputs struct {
	C         []float64 // current concentration, row-major nx*ny, non-negative
	U, V      []float64 // wind components, m/s
	Kx, Ky    []float64 // diffusion coefficients, m^2/s (Kx == Ky per spec §4.C)
	Source    []float64 // emission source term S_c
	NX, NY    int
	Dx, Dy    float64 // grid spacing, meters
	Dt        float64 // time step, seconds
	DecayRate float64 // lambda, per hour
}

// Step advances C by one Crank-Nicolson time step and returns the new,
// trimmed (nx*ny) concentration field. It implements spec §4.D.
func Step(in Inputs) ([]float64, error) {
	nx, ny := in.NX, in.NY
	C := padZero(in.C, nx, ny)
	S := padZero(in.Source, nx, ny)
	Kx := padEdge(in.Kx, nx, ny)
	Ky := padEdge(in.Ky, nx, ny)
	U := padEdge(in.U, nx, ny)
	V := padEdge(in.V, nx, ny)

	decayFactor := math.Exp(-in.DecayRate * in.Dt / 3600)

	cNew := newPadded(nx, ny)
	copy(cNew.data, C.data)

	dx2 := in.Dx * in.Dx
	dy2 := in.Dy * in.Dy

	diffBuf := make([]float64, 0, nx*ny)

	for iter := 0; iter < MaxPicardIter; iter++ {
		cPrev := newPadded(nx, ny)
		copy(cPrev.data, cNew.data)

		diffBuf = diffBuf[:0]

		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				u := U.at(i, j)
				v := V.at(i, j)

				var convXn, convXnp1 float64
				if u > 0 {
					convXn = -u * (C.at(i, j) - C.at(i-1, j)) / in.Dx
					convXnp1 = -u * (cPrev.at(i, j) - cPrev.at(i-1, j)) / in.Dx
				} else {
					convXn = -u * (C.at(i+1, j) - C.at(i, j)) / in.Dx
					convXnp1 = -u * (cPrev.at(i+1, j) - cPrev.at(i, j)) / in.Dx
				}

				var convYn, convYnp1 float64
				if v > 0 {
					convYn = -v * (C.at(i, j) - C.at(i, j-1)) / in.Dy
					convYnp1 = -v * (cPrev.at(i, j) - cPrev.at(i, j-1)) / in.Dy
				} else {
					convYn = -v * (C.at(i, j+1) - C.at(i, j)) / in.Dy
					convYnp1 = -v * (cPrev.at(i, j+1) - cPrev.at(i, j)) / in.Dy
				}

				kx := Kx.at(i, j)
				ky := Ky.at(i, j)
				diffXn := kx * (C.at(i+1, j) - 2*C.at(i, j) + C.at(i-1, j)) / dx2
				diffYn := ky * (C.at(i, j+1) - 2*C.at(i, j) + C.at(i, j-1)) / dy2
				diffXnp1 := kx * (cPrev.at(i+1, j) - 2*cPrev.at(i, j) + cPrev.at(i-1, j)) / dx2
				diffYnp1 := ky * (cPrev.at(i, j+1) - 2*cPrev.at(i, j) + cPrev.at(i, j-1)) / dy2

				convX := 0.5 * (convXn + convXnp1)
				convY := 0.5 * (convYn + convYnp1)
				diffX := 0.5 * (diffXn + diffXnp1)
				diffY := 0.5 * (diffYn + diffYnp1)

				val := C.at(i, j) + in.Dt*(convX+convY+diffX+diffY)
				val = val*decayFactor + S.at(i, j)*in.Dt

				cNew.set(i, j, val)
				diffBuf = append(diffBuf, math.Abs(val-cPrev.at(i, j)))
			}
		}

		if floats.Max(diffBuf) < ConvergenceTol {
			break
		}
	}

	out := make([]float64, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			v := cNew.at(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("stepper: non-finite concentration at cell (%d,%d): %v", i, j, v)
			}
			out[i*ny+j] = v
		}
	}
	return out, nil
}

// StableDt computes the CFL-stable time step bound for the given wind and
// diffusion fields, per spec §4.E.3: dt* = min(dx/|u|max, dy/|v|max,
// dx²/(2Kmax), dy²/(2Kmax)), with an epsilon guard against zero fields.
func StableDt(u, v, kx, ky []float64, dx, dy float64) float64 {
	const eps = 1e-10

	uMax := maxAbs(u)
	vMax := maxAbs(v)
	kMax := math.Max(maxOf(kx), maxOf(ky))

	dtAdvX := dx / (uMax + eps)
	dtAdvY := dy / (vMax + eps)
	dtDiffX := (dx * dx) / (2*kMax + eps)
	dtDiffY := (dy * dy) / (2*kMax + eps)

	return math.Min(math.Min(dtAdvX, dtAdvY), math.Min(dtDiffX, dtDiffY))
}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Max(xs)
}
