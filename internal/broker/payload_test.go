package broker

import (
	"encoding/json"
	"testing"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
	"github.com/kacperpap/air-pollution-tracker/internal/simulation"
	"github.com/kacperpap/air-pollution-tracker/internal/workerpool"
)

const sampleRequest = `{
	"droneFlight": {
		"id": 7,
		"title": "flight-7",
		"description": "",
		"date": "2026-01-01",
		"userId": 1,
		"measurements": [
			{
				"id": 1,
				"name": "m1",
				"latitude": 50.0,
				"longitude": 19.0,
				"temperature": 15,
				"windSpeed": 2,
				"windDirection": 90,
				"pressure": 1013,
				"flightId": 7,
				"pollutionMeasurements": [
					{"id": 1, "type": "NO2", "value": 12.5, "measurementId": 1}
				]
			}
		]
	},
	"numSteps": 10,
	"pollutants": ["NO2"],
	"gridDensity": "medium",
	"urbanized": false,
	"marginBoxes": 1,
	"initialDistance": 1,
	"decayRate": 0.1,
	"emissionRate": 0.5,
	"snapInterval": 5
}`

func TestParseJobFlattensMeasurementsWithFlightID(t *testing.T) {
	job, err := ParseJob([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("ParseJob returned error: %v", err)
	}
	if len(job.Measurements) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(job.Measurements))
	}
	if job.Measurements[0].FlightID != 7 {
		t.Fatalf("expected measurement to carry parent flight id 7, got %d", job.Measurements[0].FlightID)
	}
	if job.GridDensity != model.GridMedium {
		t.Fatalf("expected gridDensity medium, got %q", job.GridDensity)
	}
	if job.NumSteps != 10 {
		t.Fatalf("expected numSteps 10, got %d", job.NumSteps)
	}
}

func TestParseJobRejectsMalformedJSON(t *testing.T) {
	_, err := ParseJob([]byte("{not json"))
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestParseJobRejectsInvalidJob(t *testing.T) {
	var payload requestPayload
	if err := json.Unmarshal([]byte(sampleRequest), &payload); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	payload.NumSteps = 0
	body, _ := json.Marshal(payload)

	_, err := ParseJob(body)
	if err == nil {
		t.Fatal("expected an error for a job with numSteps = 0")
	}
}

func TestEncodeResultOmitsResultOnFailure(t *testing.T) {
	body, err := EncodeResult(workerpool.Result{Status: workerpool.StatusFailed})
	if err != nil {
		t.Fatalf("EncodeResult returned error: %v", err)
	}
	var decoded responsePayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal encoded result: %v", err)
	}
	if decoded.Status != "failed" {
		t.Fatalf("expected status failed, got %q", decoded.Status)
	}
	if decoded.Result != nil {
		t.Fatalf("expected null result on failure, got %v", decoded.Result)
	}
}

func TestEncodeResultIncludesOutputOnCompletion(t *testing.T) {
	out := &simulation.Output{}
	body, err := EncodeResult(workerpool.Result{Status: workerpool.StatusCompleted, Output: out})
	if err != nil {
		t.Fatalf("EncodeResult returned error: %v", err)
	}
	var decoded responsePayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal encoded result: %v", err)
	}
	if decoded.Status != "completed" {
		t.Fatalf("expected status completed, got %q", decoded.Status)
	}
	if decoded.Result == nil {
		t.Fatal("expected a non-null result on completion")
	}
}

func TestEncodeFailureIsStableEnvelope(t *testing.T) {
	body := EncodeFailure()
	var decoded responsePayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Status != "failed" || decoded.Result != nil {
		t.Fatalf("expected {failed, null}, got %+v", decoded)
	}
}
