package ingest

import "errors"

var (
	// ErrManualRepositoryRequired is returned when no manual repository is given.
	ErrManualRepositoryRequired = errors.New("manual repository is required")

	// ErrEmptyBatch is returned when a batch carries no items.
	ErrEmptyBatch = errors.New("items (array) is required")

	// ErrUnsupportedFormat is returned for batch files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported batch format")

	// ErrInvalidMaxAttempts is returned when retry is called with maxAttempts <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
