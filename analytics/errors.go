package analytics

import "errors"

var (
	// ErrInteractionRepositoryRequired is returned when no interaction repository is given.
	ErrInteractionRepositoryRequired = errors.New("interaction repository is required")

	// ErrEventRepositoryRequired is returned when no event repository is given.
	ErrEventRepositoryRequired = errors.New("event repository is required")

	// ErrInvalidRange is returned when the window ends before it starts.
	ErrInvalidRange = errors.New("range end is before start")
)
