// Package model holds the data types shared by the grid, interpolation,
// diffusion, and stepper packages: measurement records, pollutant sets, and
// the simulation job description that arrives over the broker.
package model

import "fmt"

// KnownPollutants lists the pollutant names the diffusion model has a
// molecular-diffusion coefficient table for. Jobs may request additional
// pollutant names; those are carried through the grid/interpolation/stepper
// stages like any other, but fall back to the turbulent diffusion method
// since no molecular table entry exists for them.
var KnownPollutants = map[string]bool{
	"CO":  true,
	"NO2": true,
	"SO2": true,
	"O3":  true,
}

// PollutionMeasurement is a single pollutant reading attached to a
// Measurement, mirroring the wire format's pollutionMeasurements entries.
type PollutionMeasurement struct {
	ID            int     `json:"id"`
	Type          string  `json:"type"`
	Value         float64 `json:"value"`
	MeasurementID int     `json:"measurementId"`
}

// Measurement is one drone-flight sample point. It is immutable once
// constructed; the grid builder reads it but never mutates it.
type Measurement struct {
	ID                    int                    `json:"id"`
	Name                  string                 `json:"name"`
	Latitude              float64                `json:"latitude"`
	Longitude             float64                `json:"longitude"`
	Temperature           float64                `json:"temperature"`
	WindSpeed             float64                `json:"windSpeed"`
	WindDirection         float64                `json:"windDirection"`
	Pressure              float64                `json:"pressure"`
	FlightID              int                    `json:"flightId"`
	PollutionMeasurements []PollutionMeasurement `json:"pollutionMeasurements"`
}

// Pollutant returns the concentration value recorded for name on this
// measurement, and whether it was present at all.
func (m Measurement) Pollutant(name string) (float64, bool) {
	for _, p := range m.PollutionMeasurements {
		if p.Type == name {
			return p.Value, true
		}
	}
	return 0, false
}

// ValidateForPollutants checks that every measurement in ms carries a value
// for each of pollutants. It returns an error naming the first measurement
// and pollutant found missing.
func ValidateForPollutants(ms []Measurement, pollutants []string) error {
	if len(ms) == 0 {
		return fmt.Errorf("model: no measurements supplied")
	}
	for _, m := range ms {
		for _, p := range pollutants {
			if _, ok := m.Pollutant(p); !ok {
				return fmt.Errorf("model: measurement %d (%s) is missing requested pollutant %q", m.ID, m.Name, p)
			}
		}
	}
	return nil
}
