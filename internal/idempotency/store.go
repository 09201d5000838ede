// Package idempotency stores the responses of write requests made with an
// Idempotency-Key header so that a client retry can be answered without
// repeating the write.
//
// Keys are scoped per actor. A key is first reserved (pending) before the
// write runs, then completed with the response, or released when the write
// failed so that the client may retry with the same key.
package idempotency

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

// ErrNotFound is returned when no entry exists for an actor and key.
var ErrNotFound = errors.New("idempotency key not found")

// Entry is one stored request outcome.
type Entry struct {
	Fingerprint string          `json:"fingerprint"`
	Pending     bool            `json:"pending"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// New opens (or creates) the BoltDB file at path.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open idempotency store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Reserve claims key for actor. When the key is new a pending entry is
// written and reserved is true. Otherwise the existing entry is returned
// unchanged and nothing is written.
func (s *Store) Reserve(actor, key, fingerprint string) (entry *Entry, reserved bool, err error) {
	var result Entry

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := entryKey(actor, key)

		if existing := b.Get(k); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		result = Entry{Fingerprint: fingerprint, Pending: true, CreatedAt: s.now()}
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		reserved = true
		return b.Put(k, data)
	})
	if err != nil {
		return nil, false, err
	}
	return &result, reserved, nil
}

// Complete stores the response for a reserved key.
func (s *Store) Complete(actor, key string, status int, body []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := entryKey(actor, key)

		v := b.Get(k)
		if v == nil {
			return ErrNotFound
		}
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}

		e.Pending = false
		e.Status = status
		e.Body = append(json.RawMessage(nil), body...)
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
}

// Release drops a reservation. Releasing an unknown key is not an error.
func (s *Store) Release(actor, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(entryKey(actor, key))
	})
}

// Lookup returns the entry for actor and key, or ErrNotFound.
func (s *Store) Lookup(actor, key string) (*Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get(entryKey(actor, key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if e.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// entryKey joins actor and key with a NUL byte, which neither header can carry.
func entryKey(actor, key string) []byte {
	return []byte(actor + "\x00" + key)
}
