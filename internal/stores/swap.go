package stores

import (
	"context"
	"encoding/json"
	"errors"

	"xswap/swapd/internal/models"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSwaps = []byte("swaps")

	ErrSwapNotFound  = errors.New("swap not found")
	ErrDuplicateSwap = errors.New("swap already exists")
)

type SwapStore interface {
	PutIfAbsent(ctx context.Context, swap *models.Swap) error
	Put(ctx context.Context, swap *models.Swap) error
	Get(ctx context.Context, id common.Hash) (*models.Swap, error)
	Scan(ctx context.Context, visit func(*models.Swap) error) error
}

type LocalSwapStore struct {
	db *bolt.DB
}

func NewLocalSwapStore(path string) (*LocalSwapStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketSwaps); e != nil {
			return e
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LocalSwapStore{db: db}, nil
}

// PutIfAbsent stores the swap under its id, failing with ErrDuplicateSwap if the
// id is already taken. The existence check and the write share one transaction.
func (s *LocalSwapStore) PutIfAbsent(ctx context.Context, swap *models.Swap) error {
	blob, err := json.Marshal(swap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSwaps)
		if b.Get(swap.ID.Bytes()) != nil {
			return ErrDuplicateSwap
		}
		return b.Put(swap.ID.Bytes(), blob)
	})
}

func (s *LocalSwapStore) Put(ctx context.Context, swap *models.Swap) error {
	blob, err := json.Marshal(swap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSwaps).Put(swap.ID.Bytes(), blob)
	})
}

func (s *LocalSwapStore) Get(ctx context.Context, id common.Hash) (*models.Swap, error) {
	var out models.Swap
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSwaps).Get(id.Bytes())
		if v == nil {
			return ErrSwapNotFound
		}
		return json.Unmarshal(v, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Scans all swap records in store
func (s *LocalSwapStore) Scan(ctx context.Context, visit func(*models.Swap) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSwaps).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var swap models.Swap
			if err := json.Unmarshal(v, &swap); err != nil {
				return err
			}
			if err := visit(&swap); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LocalSwapStore) Close() error {
	return s.db.Close()
}
