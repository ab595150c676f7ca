package simulation

import "errors"

// Sentinel errors wrapped into the errors Run returns, so a caller can tell
// failures apart with errors.Is rather than string matching (spec §7). The
// broker layer does not inspect them: the worker pool reports any Run error
// as failed, and a job whose context deadline expired as timeExceeded.
var (
	// ErrGridTooLarge is returned when the measurement spread and
	// requested density would produce more than model.MaxCells cells.
	ErrGridTooLarge = errors.New("simulation: grid exceeds maximum cell count")

	// ErrNoKnownValues is returned when a field has no known cell to seed
	// interpolation from (spec §9 open question).
	ErrNoKnownValues = errors.New("simulation: field has no known values to interpolate from")

	// ErrUnstableSolution is returned when the stepper produces a
	// non-finite value (spec §4.D failure semantics).
	ErrUnstableSolution = errors.New("simulation: solver produced a non-finite value")

	// ErrMissingPollutant describes a measurement that lacks a value for a
	// requested pollutant (spec §3). Run does not return it: such a job is
	// rejected earlier by model.ValidateForPollutants with its own error.
	ErrMissingPollutant = errors.New("simulation: measurement missing requested pollutant")
)
