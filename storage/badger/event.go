package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/storage"
)

// EventRepository implements storage.EventRepository for BadgerDB.
type EventRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	now     func() time.Time
}

var _ storage.EventRepository = (*EventRepository)(nil)

// NewEventRepository creates a new EventRepository.
func NewEventRepository(backend *Backend) (*EventRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	idSeq, err := backend.GetSequence(eventIDSeq)
	if err != nil {
		return nil, err
	}
	return &EventRepository{
		backend: backend,
		idSeq:   idSeq,
		now:     time.Now,
	}, nil
}

// Close releases the ID sequence.
func (r *EventRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *EventRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEvents appends events to the log.
func (r *EventRepository) AddEvents(ctx context.Context, events ...*core.Event) ([]*core.Event, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, event := range events {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			event.Id = id
			if event.Timestamp.IsZero() {
				event.Timestamp = r.now().UTC()
			}
			// Stored timestamps carry microsecond precision
			event.Timestamp = event.Timestamp.Truncate(time.Microsecond)

			if err := tx.Set(makeEventKey(event.Id), storage.MarshalEvent(event)); err != nil {
				return err
			}
			ref := storage.MarshalID(event.Id)
			if err := tx.Set(makeEventDateKey(event.Timestamp, event.Id), ref); err != nil {
				return err
			}
			if err := tx.Set(makeEventTypeKey(event.Type, event.Timestamp, event.Id), ref); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return events, err
}

// GetEventsByDateRange retrieves events within [start, end].
func (r *EventRepository) GetEventsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Event, error) {
	var results []*core.Event
	seek, limit := dateBounds(eventDatePrefix, start, end)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanIndex(tx, []byte(eventDatePrefix), seek, false, func(key []byte, id core.ID) (bool, error) {
			if bytes.Compare(key, limit) >= 0 {
				return false, nil
			}
			event, err := readRecord(tx, makeEventKey(id), storage.UnmarshalEvent)
			if err != nil {
				return false, err
			}
			if event != nil {
				results = append(results, event)
			}
			return true, nil
		})
	}, false)

	return results, err
}

// GetEventsByType retrieves every event of one type, oldest first.
func (r *EventRepository) GetEventsByType(ctx context.Context, eventType string) ([]*core.Event, error) {
	var results []*core.Event
	prefix := makeEventTypePrefix(eventType)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanIndex(tx, prefix, prefix, false, func(_ []byte, id core.ID) (bool, error) {
			event, err := readRecord(tx, makeEventKey(id), storage.UnmarshalEvent)
			if err != nil {
				return false, err
			}
			if event != nil {
				results = append(results, event)
			}
			return true, nil
		})
	}, false)

	return results, err
}
