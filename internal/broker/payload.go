// Package broker implements the AMQP-facing session: connecting,
// consuming request messages with bounded prefetch, and publishing
// replies carrying the original correlation id (spec §4.G, component G).
package broker

import (
	"encoding/json"
	"fmt"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
	"github.com/kacperpap/air-pollution-tracker/internal/workerpool"
)

// droneFlight mirrors the upstream backend's payload shape (spec §6):
// droneFlight{id,title,description,date,userId,measurements[]}.
type droneFlight struct {
	ID           int               `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Date         string            `json:"date"`
	UserID       int               `json:"userId"`
	Measurements []rawMeasurement  `json:"measurements"`
}

type rawMeasurement struct {
	ID                    int                            `json:"id"`
	Name                  string                         `json:"name"`
	Latitude              float64                        `json:"latitude"`
	Longitude             float64                        `json:"longitude"`
	Temperature           float64                        `json:"temperature"`
	WindSpeed             float64                        `json:"windSpeed"`
	WindDirection         float64                        `json:"windDirection"`
	Pressure              float64                        `json:"pressure"`
	FlightID              int                            `json:"flightId"`
	PollutionMeasurements []model.PollutionMeasurement    `json:"pollutionMeasurements"`
}

// requestPayload is the full top-level JSON body of a request message.
type requestPayload struct {
	DroneFlight     droneFlight         `json:"droneFlight"`
	NumSteps        int                 `json:"numSteps"`
	Pollutants      []string            `json:"pollutants"`
	GridDensity     model.GridDensity   `json:"gridDensity"`
	Urbanized       bool                `json:"urbanized"`
	MarginBoxes     int                 `json:"marginBoxes"`
	InitialDistance int                 `json:"initialDistance"`
	DecayRate       float64             `json:"decayRate"`
	EmissionRate    float64             `json:"emissionRate"`
	SnapInterval    int                 `json:"snapInterval"`
	DiffusionMethod model.DiffusionMethod `json:"diffusionMethod,omitempty"`
}

// ParseJob decodes a raw request message body into a validated
// SimulationJob, mirroring the Python original's convert_to_input_type
// (calc_module/models/.../simulation_types/input_type.py): the backend's
// droneFlight.measurements are flattened into plain Measurement records.
func ParseJob(body []byte) (*model.SimulationJob, error) {
	var payload requestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("broker: malformed payload: %w", err)
	}

	measurements := make([]model.Measurement, len(payload.DroneFlight.Measurements))
	for i, m := range payload.DroneFlight.Measurements {
		measurements[i] = model.Measurement{
			ID:                    m.ID,
			Name:                  m.Name,
			Latitude:              m.Latitude,
			Longitude:             m.Longitude,
			Temperature:           m.Temperature,
			WindSpeed:             m.WindSpeed,
			WindDirection:         m.WindDirection,
			Pressure:              m.Pressure,
			FlightID:              payload.DroneFlight.ID,
			PollutionMeasurements: m.PollutionMeasurements,
		}
	}

	job := &model.SimulationJob{
		Measurements:    measurements,
		NumSteps:        payload.NumSteps,
		Pollutants:      payload.Pollutants,
		GridDensity:     payload.GridDensity,
		Urbanized:       payload.Urbanized,
		MarginBoxes:     payload.MarginBoxes,
		InitialDistance: payload.InitialDistance,
		DecayRate:       payload.DecayRate,
		EmissionRate:    payload.EmissionRate,
		SnapInterval:    payload.SnapInterval,
		DiffusionMethod: payload.DiffusionMethod,
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("broker: invalid job: %w", err)
	}
	return job, nil
}

// responsePayload is the {status, result} envelope spec §6 defines for
// every reply message.
type responsePayload struct {
	Status string      `json:"status"`
	Result interface{} `json:"result"`
}

// EncodeResult serializes a worker Result into the reply envelope. A
// failed or timed-out job publishes a null result (spec §7).
func EncodeResult(r workerpool.Result) ([]byte, error) {
	payload := responsePayload{Status: string(r.Status)}
	if r.Status == workerpool.StatusCompleted {
		payload.Result = r.Output
	}
	return json.Marshal(payload)
}

// EncodeFailure builds the {status:"failed", result:null} envelope used
// for malformed payloads and validation errors that never reach a worker
// (spec §7).
func EncodeFailure() []byte {
	b, _ := json.Marshal(responsePayload{Status: "failed", Result: nil})
	return b
}
