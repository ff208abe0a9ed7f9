package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/storage"
)

// InteractionRepository implements storage.InteractionRepository for BadgerDB.
type InteractionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	now     func() time.Time
}

var _ storage.InteractionRepository = (*InteractionRepository)(nil)

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(backend *Backend) (*InteractionRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	idSeq, err := backend.GetSequence(interactionIDSeq)
	if err != nil {
		return nil, err
	}

	return &InteractionRepository{
		backend: backend,
		idSeq:   idSeq,
		now:     time.Now,
	}, nil
}

// Close releases the ID sequence.
func (r *InteractionRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *InteractionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddInteractions appends one or more interactions to the log.
func (r *InteractionRepository) AddInteractions(ctx context.Context, interactions ...*core.Interaction) ([]*core.Interaction, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, in := range interactions {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			in.Id = id
			if in.Timestamp.IsZero() {
				in.Timestamp = r.now().UTC()
			}
			// Stored timestamps carry microsecond precision
			in.Timestamp = in.Timestamp.Truncate(time.Microsecond)
			in.UpdatedAt = in.Timestamp

			if err := tx.Set(makeInteractionKey(in.Id), storage.MarshalInteraction(in)); err != nil {
				return err
			}

			ref := storage.MarshalID(in.Id)
			if err := tx.Set(makeInteractionDateKey(in.Timestamp, in.Id), ref); err != nil {
				return err
			}
			if err := tx.Set(makeInteractionUserKey(in.UserID, in.Timestamp, in.Id), ref); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return interactions, err
}

// UpdateInteractions rewrites existing interactions.
// The user and timestamp of a stored interaction are immutable so the indices stay valid.
func (r *InteractionRepository) UpdateInteractions(ctx context.Context, interactions ...*core.Interaction) ([]*core.Interaction, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, in := range interactions {
			key := makeInteractionKey(in.Id)
			old, err := readRecord(tx, key, storage.UnmarshalInteraction)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			in.UserID = old.UserID
			in.Timestamp = old.Timestamp
			in.UpdatedAt = r.now().UTC()

			if err := tx.Set(key, storage.MarshalInteraction(in)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return interactions, err
}

// GetInteraction retrieves a single interaction by ID.
func (r *InteractionRepository) GetInteraction(ctx context.Context, id core.ID) (*core.Interaction, error) {
	var result *core.Interaction
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRecord(tx, makeInteractionKey(id), storage.UnmarshalInteraction)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetInteractionsByDateRange retrieves interactions within [start, end].
func (r *InteractionRepository) GetInteractionsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Interaction, error) {
	var results []*core.Interaction
	seek, limit := dateBounds(interactionDatePrefix, start, end)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanIndex(tx, []byte(interactionDatePrefix), seek, false, func(key []byte, id core.ID) (bool, error) {
			if bytes.Compare(key, limit) >= 0 {
				return false, nil
			}
			if err := ctx.Err(); err != nil {
				return false, err
			}
			in, err := readRecord(tx, makeInteractionKey(id), storage.UnmarshalInteraction)
			if err != nil {
				return false, err
			}
			if in != nil {
				results = append(results, in)
			}
			return true, nil
		})
	}, false)

	return results, err
}

// GetRecentInteractionsByUser retrieves the most recent interactions of a user, newest first.
func (r *InteractionRepository) GetRecentInteractionsByUser(ctx context.Context, userID string, limit int) ([]*core.Interaction, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Interaction
	prefix := makeInteractionUserPrefix(userID)
	seek := makeInteractionUserKey(userID, maxTime, core.ID(^uint64(0)))

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanIndex(tx, prefix, seek, true, func(_ []byte, id core.ID) (bool, error) {
			in, err := readRecord(tx, makeInteractionKey(id), storage.UnmarshalInteraction)
			if err != nil {
				return false, err
			}
			if in != nil {
				results = append(results, in)
			}
			return len(results) < limit, nil
		})
	}, false)

	return results, err
}

// FindLatestInteraction finds the newest interaction for (userID, query) at or after since.
func (r *InteractionRepository) FindLatestInteraction(ctx context.Context, userID, query string, since time.Time) (*core.Interaction, error) {
	var result *core.Interaction
	prefix := makeInteractionUserPrefix(userID)
	seek := makeInteractionUserKey(userID, maxTime, core.ID(^uint64(0)))
	floor := makeInteractionUserKey(userID, since, 0)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanIndex(tx, prefix, seek, true, func(key []byte, id core.ID) (bool, error) {
			if bytes.Compare(key, floor) < 0 {
				return false, nil
			}
			in, err := readRecord(tx, makeInteractionKey(id), storage.UnmarshalInteraction)
			if err != nil {
				return false, err
			}
			if in != nil && in.Query == query {
				result = in
				return false, nil
			}
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, storage.ErrNotFound
	}
	return result, nil
}
