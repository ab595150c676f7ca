// Package simulation orchestrates the grid, interpolation, diffusion, and
// stepper components into a complete per-job run, and assembles the
// result structure published back to the broker (spec §4.E, component E).
package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/kacperpap/air-pollution-tracker/internal/diffusion"
	"github.com/kacperpap/air-pollution-tracker/internal/grid"
	"github.com/kacperpap/air-pollution-tracker/internal/model"
	"github.com/kacperpap/air-pollution-tracker/internal/stepper"
)

// Defaults holds worker-wide fallbacks applied to a job's optional fields
// (spec_full.md "worker.toml solver-tuning defaults").
type Defaults struct {
	DiffusionMethod model.DiffusionMethod
	MaxIncrement    int
}

// DefaultDefaults returns the built-in fallback values used if no
// worker.toml override is loaded.
func DefaultDefaults() Defaults {
	return Defaults{DiffusionMethod: model.DiffusionTurbulent, MaxIncrement: 1}
}

// Run executes a full simulation job: grid construction, interpolation,
// per-pollutant diffusion coefficients, CFL-constrained time-stepping, and
// output assembly. It checks ctx between steps so a worker pool can cancel
// a running job cooperatively (spec §4.F, §9 "Cancellation of long CPU
// kernels").
func Run(ctx context.Context, job *model.SimulationJob, defaults Defaults, log *logrus.Entry) (*Output, error) {
	g, sparse, err := grid.Build(job.Measurements, job.Pollutants, job.GridDensity, job.Urbanized, job.MarginBoxes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGridTooLarge, err)
	}
	log.WithFields(logrus.Fields{"nx": g.NX, "ny": g.NY, "cells": g.NX * g.NY}).Info("grid constructed")

	dense, err := grid.FillAll(sparse, g.NX, g.NY, job.InitialDistance, defaults.MaxIncrement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoKnownValues, err)
	}

	method := job.DiffusionMethod
	if method == "" {
		method = defaults.DiffusionMethod
	}
	surfaceRoughness := diffusion.SurfaceRoughness(job.Urbanized)

	latCenters := make([]float64, len(g.Boxes))
	dxArr := make([]float64, len(g.Boxes))
	dyArr := make([]float64, len(g.Boxes))
	for i, b := range g.Boxes {
		latCenters[i] = (b.LatMin + b.LatMax) / 2
		dx, dy := cellMeters(latCenters[i], g.CellLat, g.CellLon)
		dxArr[i] = dx
		dyArr[i] = dy
	}
	dx := mean(dxArr)
	dy := mean(dyArr)

	final := make(map[string][]float64, len(job.Pollutants))
	snapshots := make(map[string][]snapshot, len(job.Pollutants))

	for _, pollutant := range job.Pollutants {
		plog := log.WithField("pollutant", pollutant)

		c := append([]float64(nil), dense.Pollutants[pollutant].Values...)

		pmethod := method
		if pmethod == model.DiffusionMolecular && !model.KnownPollutants[pollutant] {
			pmethod = model.DiffusionTurbulent
		}
		k, err := diffusion.Compute(pmethod, pollutant, dense.Temperature.Values, dense.U.Values, dense.V.Values, dx, surfaceRoughness)
		if err != nil {
			return nil, fmt.Errorf("simulation: computing diffusion coefficients for %s: %w", pollutant, err)
		}

		dt := 1.0
		dtStable := stepper.StableDt(dense.U.Values, dense.V.Values, k, k, dx, dy)
		if dt > dtStable {
			plog.WithField("dt_stable", dtStable).Warn("requested step time is unstable, clamping to CFL-stable value")
			dt = dtStable
		}

		source := buildEmissionSource(sparse.Pollutants[pollutant], job.EmissionRate, dt)

		snaps := []snapshot{{step: 0, values: append([]float64(nil), c...)}}

		for step := 1; step <= job.NumSteps; step++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			c, err = stepper.Step(stepper.Inputs{
				C: c, U: dense.U.Values, V: dense.V.Values,
				Kx: k, Ky: k, Source: source,
				NX: g.NX, NY: g.NY, Dx: dx, Dy: dy, Dt: dt,
				DecayRate: job.DecayRate,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: pollutant %s, step %d: %v", ErrUnstableSolution, pollutant, step, err)
			}

			if step%job.SnapInterval == 0 {
				snaps = append(snaps, snapshot{step: step, values: append([]float64(nil), c...)})
			}
		}
		if job.NumSteps%job.SnapInterval != 0 {
			snaps = append(snaps, snapshot{step: job.NumSteps, values: append([]float64(nil), c...)})
		}

		snapshots[pollutant] = snaps
		final[pollutant] = c
	}

	result := buildOutput(g, dense, snapshots, final)
	return &result, nil
}

// buildEmissionSource constructs S_c for a pollutant: nonzero only on
// cells that held an original measurement (sparse.Known), with value
// C0*(1 - e^(-r*dt/3600))/dt so the fixed per-step rate reproduces
// C0*(1-e^(-r*dt/3600)) concentration injected per step at the source
// (spec §4.E.4).
func buildEmissionSource(sparse grid.Field, emissionRate, dt float64) []float64 {
	source := make([]float64, len(sparse.Values))
	if dt == 0 {
		return source
	}
	factor := 1 - math.Exp(-emissionRate*dt/3600)
	for i, known := range sparse.Known {
		if !known {
			continue
		}
		source[i] = sparse.Values[i] * factor / dt
	}
	return source
}
