package medium

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tailored-agentic-units/tickstore/address"
)

var recordsBucket = []byte("records")

// BoltMedium keeps records in a bbolt database, one key per position.
// Regions are always available.
type BoltMedium struct {
	db *bolt.DB
}

// OpenBoltMedium opens the database at path, creating it if needed.
func OpenBoltMedium(path string) (*BoltMedium, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("medium: open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("medium: create bucket: %w", err)
	}
	return &BoltMedium{db: db}, nil
}

// Close closes the database.
func (b *BoltMedium) Close() error {
	return b.db.Close()
}

func (b *BoltMedium) ReadRecord(ctx context.Context, pos address.Position) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *Record
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get(boltKey(pos))
		if data == nil {
			return nil
		}
		rec = &Record{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, pos, err)
	}
	return rec, nil
}

func (b *BoltMedium) ActivateRegion(ctx context.Context, _ address.Position) error {
	return ctx.Err()
}

func (b *BoltMedium) CreateRecord(ctx context.Context, pos address.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		key := boltKey(pos)
		if bucket.Get(key) != nil {
			return nil
		}
		data, err := json.Marshal(&Record{})
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, err)
	}
	return nil
}

func (b *BoltMedium) WriteSlot(ctx context.Context, pos address.Position, slot int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSlot(slot); err != nil {
		return fmt.Errorf("%w: %s slot %d: %v", ErrWriteFailed, pos, slot, err)
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		key := boltKey(pos)
		data := bucket.Get(key)
		if data == nil {
			return ErrNoRecord
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.set(slot, value)
		updated, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return bucket.Put(key, updated)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, err)
	}
	return nil
}

// Len returns the number of records stored.
func (b *BoltMedium) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func boltKey(pos address.Position) []byte {
	return fmt.Appendf(nil, "%d:%d:%d", pos.X, pos.Y, pos.Z)
}
