package stores

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBalances = []byte("balances")

	ErrInsufficientFunds = errors.New("insufficient funds")
)

// BalanceStore is the custody book for locked value: every escrow and payout is
// a balance move inside a single bolt transaction.
type BalanceStore interface {
	Deposit(ctx context.Context, addr common.Address, amount *big.Int) error
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
}

type LocalBalanceStore struct {
	db *bolt.DB
}

func NewLocalBalanceStore(path string) (*LocalBalanceStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketBalances); e != nil {
			return e
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LocalBalanceStore{db: db}, nil
}

func (s *LocalBalanceStore) Deposit(ctx context.Context, addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %v", amount)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBalances)
		balance := readBalance(b, addr)
		balance.Add(balance, amount)
		return b.Put(addr.Bytes(), balance.Bytes())
	})
}

// Transfer debits `from` and credits `to` atomically. A short balance fails the
// whole transaction with ErrInsufficientFunds and moves nothing.
func (s *LocalBalanceStore) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %v", amount)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBalances)

		src := readBalance(b, from)
		if src.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from.Hex(), src, amount)
		}
		src.Sub(src, amount)

		dst := readBalance(b, to)
		dst.Add(dst, amount)

		if err := b.Put(from.Bytes(), src.Bytes()); err != nil {
			return err
		}
		return b.Put(to.Bytes(), dst.Bytes())
	})
}

func (s *LocalBalanceStore) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance := new(big.Int)
	err := s.db.View(func(tx *bolt.Tx) error {
		balance = readBalance(tx.Bucket(bucketBalances), addr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (s *LocalBalanceStore) Close() error {
	return s.db.Close()
}

func readBalance(b *bolt.Bucket, addr common.Address) *big.Int {
	return new(big.Int).SetBytes(b.Get(addr.Bytes()))
}
