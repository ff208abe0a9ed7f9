package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/storage"
)

// ManualRepository implements storage.ManualRepository for BadgerDB.
type ManualRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	now     func() time.Time
}

var _ storage.ManualRepository = (*ManualRepository)(nil)

// NewManualRepository creates a new ManualRepository.
func NewManualRepository(backend *Backend) (*ManualRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	idSeq, err := backend.GetSequence(manualIDSeq)
	if err != nil {
		return nil, err
	}
	return &ManualRepository{
		backend: backend,
		idSeq:   idSeq,
		now:     time.Now,
	}, nil
}

// Close releases the ID sequence.
func (r *ManualRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ManualRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddManualRecords stores manual records. Duplicates accumulate.
func (r *ManualRepository) AddManualRecords(ctx context.Context, records ...*core.ManualRecord) ([]*core.ManualRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			record.Id = id
			record.ContentId = core.ManualContentAddress(record.Kind, record.Content)
			record.InsertedAt = r.now().UTC().Truncate(time.Microsecond)

			if err := tx.Set(makeManualKey(record.Id), storage.MarshalManualRecord(record)); err != nil {
				return err
			}
			if err := tx.Set(makeManualKindKey(record.Kind, record.Id), storage.MarshalID(record.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// SetManualRecordActive toggles the active flag of a record.
func (r *ManualRepository) SetManualRecordActive(ctx context.Context, id core.ID, active bool) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeManualKey(id)
		record, err := readRecord(tx, key, storage.UnmarshalManualRecord)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		record.Active = active
		if err := tx.Set(key, storage.MarshalManualRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetManualRecords lists manual records in insertion order.
func (r *ManualRepository) GetManualRecords(ctx context.Context, includeInactive bool, kinds ...core.ManualKind) ([]*core.ManualRecord, error) {
	var results []*core.ManualRecord

	collect := func(tx *badger.Txn, id core.ID) error {
		record, err := readRecord(tx, makeManualKey(id), storage.UnmarshalManualRecord)
		if err != nil {
			return err
		}
		if record != nil && (includeInactive || record.Active) {
			results = append(results, record)
		}
		return nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if len(kinds) == 0 {
			return r.scanAll(tx, collect)
		}
		for _, kind := range kinds {
			prefix := makeManualKindPrefix(kind)
			err := scanIndex(tx, prefix, prefix, false, func(_ []byte, id core.ID) (bool, error) {
				return true, collect(tx, id)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if len(kinds) > 1 {
		sortByID(results)
	}
	return results, nil
}

// scanAll walks primary manual record keys in ID order.
func (r *ManualRepository) scanAll(tx *badger.Txn, fn func(tx *badger.Txn, id core.ID) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(manualPrefix)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		id := core.ID(decodeTrailingID(key))
		if err := fn(tx, id); err != nil {
			return err
		}
	}
	return nil
}
