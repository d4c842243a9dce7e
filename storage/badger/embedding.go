package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/mboxsearch/core"
	"github.com/poiesic/mboxsearch/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	if backend == nil || backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &EmbeddingRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// GetEmbeddings returns the stored vectors for the given keys.
func (r *EmbeddingRepository) GetEmbeddings(ctx context.Context, keys ...core.ID) (map[core.ID][]float32, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	found := make(map[core.ID][]float32, len(keys))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := tx.Get(makeEmbeddingKey(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				vector, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				found[key] = vector
				return nil
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
	return found, nil
}

// PutEmbeddings stores vectors, replacing existing entries.
func (r *EmbeddingRepository) PutEmbeddings(ctx context.Context, vectors map[core.ID][]float32) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(vectors) == 0 {
		return nil
	}

	return r.backend.WriteBatch(func(wb *badger.WriteBatch) error {
		for key, vector := range vectors {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeEmbeddingKey(key), storage.MarshalVector(vector)); err != nil {
				return err
			}
		}
		return nil
	})
}
