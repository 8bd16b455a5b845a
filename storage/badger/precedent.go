package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tariff/core"
	"github.com/poiesic/tariff/storage"
)

// PrecedentRepository implements storage.PrecedentRepository for BadgerDB.
type PrecedentRepository struct {
	backend *Backend
}

var _ storage.PrecedentRepository = (*PrecedentRepository)(nil)

// NewPrecedentRepository creates a new PrecedentRepository.
func NewPrecedentRepository(backend *Backend) (*PrecedentRepository, error) {
	return &PrecedentRepository{
		backend: backend,
	}, nil
}

// Close releases resources. PrecedentRepository has no resources to release.
func (r *PrecedentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *PrecedentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddPrecedents archives one or more precedents.
func (r *PrecedentRepository) AddPrecedents(ctx context.Context, precedents ...*core.Precedent) ([]*core.Precedent, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, precedent := range precedents {
			// Use content-based ID if not set
			if precedent.Id == 0 {
				precedent.Id = core.IDFromContent(precedent.ProductDescription + "\x00" + precedent.Code)
			}
			if precedent.CreatedAt.IsZero() {
				precedent.CreatedAt = time.Now().UTC()
			}

			if err := core.ValidatePrecedent(precedent); err != nil {
				return err
			}

			// Store primary record
			key := makePrecedentKey(precedent.Id)
			value := storage.MarshalPrecedent(precedent)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index
			dateKey := makeDateKey(precedent.CreatedAt, precedent.Id)
			if err := tx.Set(dateKey, storage.MarshalID(precedent.Id)); err != nil {
				return err
			}

			// Update code index
			codeKey := makeCodeKey(precedent.Code, precedent.Id)
			if err := tx.Set(codeKey, storage.MarshalID(precedent.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return precedents, err
}

// GetPrecedent retrieves a single precedent by ID.
func (r *PrecedentRepository) GetPrecedent(ctx context.Context, id core.ID) (*core.Precedent, error) {
	var result *core.Precedent
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePrecedentKey(id)
		var err error
		result, err = readPrecedent(tx, key)
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

// GetPrecedents retrieves multiple precedents by their IDs.
func (r *PrecedentRepository) GetPrecedents(ctx context.Context, ids ...core.ID) ([]*core.Precedent, error) {
	var result []*core.Precedent
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makePrecedentKey(id)
			precedent, err := readPrecedent(tx, key)
			if err != nil {
				return err
			}
			if precedent != nil {
				result = append(result, precedent)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindByCode retrieves all precedents committed to the given tariff code.
func (r *PrecedentRepository) FindByCode(ctx context.Context, code string) ([]*core.Precedent, error) {
	var results []*core.Precedent
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialCodeKey(code)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			// Read the ID from the index
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full precedent
			precedent, err := readPrecedent(tx, makePrecedentKey(id))
			if err != nil {
				return err
			}
			if precedent != nil {
				results = append(results, precedent)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentPrecedents retrieves the N most recent precedents, newest first.
func (r *PrecedentRepository) GetRecentPrecedents(ctx context.Context, limit int) ([]*core.Precedent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Precedent
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent precedents first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key with the date prefix
		startKey := makePartialDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(precedentDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			precedent, err := readPrecedent(tx, makePrecedentKey(id))
			if err != nil {
				return err
			}
			if precedent != nil {
				results = append(results, precedent)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// GetPrecedentsByDateRange retrieves precedents within a time range.
func (r *PrecedentRepository) GetPrecedentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Precedent, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Precedent
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialDateKey(start)
		endKey := makePartialDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			precedent, err := readPrecedent(tx, makePrecedentKey(id))
			if err != nil {
				return err
			}
			if precedent != nil {
				results = append(results, precedent)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeletePrecedents removes precedents by their IDs.
func (r *PrecedentRepository) DeletePrecedents(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makePrecedentKey(id)

			// Read precedent to get metadata for index cleanup
			precedent, err := readPrecedent(tx, key)
			if err != nil {
				return err
			}
			if precedent == nil {
				return storage.ErrNotFound
			}

			// Delete from date index
			if err := tx.Delete(makeDateKey(precedent.CreatedAt, precedent.Id)); err != nil {
				return err
			}

			// Delete from code index
			if err := tx.Delete(makeCodeKey(precedent.Code, precedent.Id)); err != nil {
				return err
			}

			// Delete primary record
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readPrecedent reads a precedent from the transaction.
// Returns nil without error when the key does not exist.
func readPrecedent(tx *badger.Txn, key []byte) (*core.Precedent, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var precedent *core.Precedent
	err = item.Value(func(val []byte) error {
		var err error
		precedent, err = storage.UnmarshalPrecedent(val)
		return err
	})
	return precedent, err
}
