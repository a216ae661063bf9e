package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/theapemachine/busrpc/entity"
)

// Bolt is a bbolt-backed Store, grounded on the teacher pack's
// cyw0ng95-v2e BoltDBStorage (open-db + bucket-per-concern + JSON-encoded
// values pattern), generalized to any entity.Keyed type via generics
// instead of a hand-written struct per FSM state kind.
type Bolt[T entity.Keyed] struct {
	db     *bolt.DB
	bucket []byte
	newT   func() T
}

// OpenBolt opens (creating if absent) a bbolt database at path and returns
// a Store scoped to bucket. newT must return a fresh zero-value-ish T
// (typically a pointer to a zero struct) so Unmarshal has somewhere to land.
func OpenBolt[T entity.Keyed](path, bucket string, newT func() T) (*Bolt[T], error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	b := []byte(bucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	return &Bolt[T]{db: db, bucket: b, newT: newT}, nil
}

// Close releases the underlying database file.
func (s *Bolt[T]) Close() error { return s.db.Close() }

func idKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func (s *Bolt[T]) Add(_ context.Context, e T) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)
		e.SetID(id)
		e.Touch(time.Now().UTC())

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entity: %w", err)
		}
		return b.Put(idKey(id), data)
	})
	return id, err
}

func (s *Bolt[T]) FindByID(_ context.Context, id int64) (T, bool, error) {
	out := s.newT()
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		data := b.Get(idKey(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &out)
	})

	return out, found, err
}

func (s *Bolt[T]) Enumerate(_ context.Context) ([]T, error) {
	var out []T
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		return b.ForEach(func(_, data []byte) error {
			v := s.newT()
			if err := json.Unmarshal(data, &v); err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
	})
	return out, err
}

func (s *Bolt[T]) Update(_ context.Context, e T) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		e.Touch(time.Now().UTC())
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entity: %w", err)
		}
		return b.Put(idKey(e.GetID()), data)
	})
}

func (s *Bolt[T]) Remove(_ context.Context, id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		return b.Delete(idKey(id))
	})
}

func (s *Bolt[T]) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}
