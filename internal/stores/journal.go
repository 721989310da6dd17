package stores

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"xswap/swapd/internal/models"

	bolt "go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// EventJournal is the durable, sequenced record of every emitted lifecycle
// event. Relayers that missed live delivery replay from their last seen
// sequence number; entries are never rewritten or deleted.
type EventJournal interface {
	Append(ctx context.Context, ev *models.SwapEvent) (uint64, error)
	Replay(ctx context.Context, fromSeq uint64, visit func(*models.SwapEvent) error) error
	LastSeq(ctx context.Context) (uint64, error)
}

type LocalEventJournal struct {
	db *bolt.DB
}

func NewLocalEventJournal(path string) (*LocalEventJournal, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketEvents); e != nil {
			return e
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LocalEventJournal{db: db}, nil
}

// Append assigns the next sequence number, sets it on the event and persists
// it. Sequence numbers start at 1 and never repeat.
func (j *LocalEventJournal) Append(ctx context.Context, ev *models.SwapEvent) (uint64, error) {
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		ev.Seq = n
		blob, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(n), blob); err != nil {
			return err
		}
		seq = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Replay visits journal entries with seq >= fromSeq in order.
func (j *LocalEventJournal) Replay(ctx context.Context, fromSeq uint64, visit func(*models.SwapEvent) error) error {
	return j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(seqKey(fromSeq)); k != nil; k, v = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var ev models.SwapEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if err := visit(&ev); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *LocalEventJournal) LastSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := j.db.View(func(tx *bolt.Tx) error {
		seq = tx.Bucket(bucketEvents).Sequence()
		return nil
	})
	return seq, err
}

func (j *LocalEventJournal) Close() error {
	return j.db.Close()
}

func seqKey(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}
