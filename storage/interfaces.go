package storage

import (
	"context"
	"time"

	"github.com/poiesic/suggestit/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// InteractionRepository provides operations over the append-only interaction log.
type InteractionRepository interface {
	Repository
	// AddInteractions appends one or more interactions.
	// Always generates new IDs from sequence.
	// Sets Timestamp to now if not already set.
	// Returns the interactions with generated IDs populated.
	AddInteractions(ctx context.Context, interactions ...*core.Interaction) ([]*core.Interaction, error)

	// UpdateInteractions updates existing interactions (selection and rating).
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any interaction doesn't exist.
	UpdateInteractions(ctx context.Context, interactions ...*core.Interaction) ([]*core.Interaction, error)

	// GetInteraction retrieves a single interaction by ID.
	// Returns ErrNotFound if the interaction doesn't exist.
	GetInteraction(ctx context.Context, id core.ID) (*core.Interaction, error)

	// GetInteractionsByDateRange retrieves interactions where start <= Timestamp <= end,
	// ordered by timestamp. A zero start or end leaves that side of the range open.
	GetInteractionsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Interaction, error)

	// GetRecentInteractionsByUser retrieves up to limit interactions for a user,
	// most recent first.
	GetRecentInteractionsByUser(ctx context.Context, userID string, limit int) ([]*core.Interaction, error)

	// FindLatestInteraction finds the most recent interaction for (userID, query)
	// with Timestamp >= since.
	// Returns ErrNotFound if no interaction matches.
	FindLatestInteraction(ctx context.Context, userID, query string, since time.Time) (*core.Interaction, error)
}

// ManualRepository provides operations for admin-curated manual records.
type ManualRepository interface {
	Repository
	// AddManualRecords stores one or more manual records.
	// Records are never deduplicated: every call generates a new ID.
	// ContentId is computed from kind and payload; InsertedAt is set to now.
	AddManualRecords(ctx context.Context, records ...*core.ManualRecord) ([]*core.ManualRecord, error)

	// SetManualRecordActive toggles whether a record participates in ranking.
	// Returns ErrNotFound if the record doesn't exist.
	SetManualRecordActive(ctx context.Context, id core.ID, active bool) error

	// GetManualRecords lists records of the given kinds in insertion order.
	// No kinds lists every kind. Inactive records are only included when
	// includeInactive is set.
	GetManualRecords(ctx context.Context, includeInactive bool, kinds ...core.ManualKind) ([]*core.ManualRecord, error)
}

// EventRepository provides operations over the typed event log.
type EventRepository interface {
	Repository
	// AddEvents appends one or more events.
	// Sets Timestamp to now if not already set.
	AddEvents(ctx context.Context, events ...*core.Event) ([]*core.Event, error)

	// GetEventsByDateRange retrieves events where start <= Timestamp <= end,
	// ordered by timestamp. A zero start or end leaves that side open.
	GetEventsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Event, error)

	// GetEventsByType retrieves every event of the given type, ordered by timestamp.
	GetEventsByType(ctx context.Context, eventType string) ([]*core.Event, error)
}
