package weather

import "errors"

var (
	// ErrSchemaMismatch is returned when a variable array does not line up
	// with its time axis.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrEmptyRange is returned when there are no hourly rows to aggregate.
	ErrEmptyRange = errors.New("empty range")

	// ErrJoinKeyMismatch is returned when a date appears more than once on
	// either side of the daily merge.
	ErrJoinKeyMismatch = errors.New("join key mismatch")

	// ErrUpstream wraps failures of the weather API collaborator.
	ErrUpstream = errors.New("weather api unavailable")
)
