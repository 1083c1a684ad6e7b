package identity

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	perrors "github.com/rohankatakam/pathgraph/internal/errors"
)

const (
	identityBucket = "identity"
	metaBucket     = "meta"
	lastKeyField   = "last_surrogate_key"
)

// BoltStore keeps the identity cache in a local bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the cache file and checks its meta record.
// Any failure here is fatal for a load job.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, perrors.IdentityErrorf(err, "failed to create identity cache directory for %s", path)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, perrors.IdentityErrorf(err, "failed to open identity cache %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(identityBucket)); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}
		if raw := meta.Get([]byte(lastKeyField)); raw != nil && len(raw) != 8 {
			return fmt.Errorf("meta record %s has %d bytes, want 8", lastKeyField, len(raw))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, perrors.IdentityErrorf(err, "identity cache %s is unusable", path)
	}

	return &BoltStore{db: db}, nil
}

// Get implements Store
func (s *BoltStore) Get(_ context.Context, key CompositeKey) (uint64, bool, error) {
	var (
		value uint64
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(identityBucket)).Get([]byte(key.encode()))
		if raw == nil {
			return nil
		}
		v, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("entry %s: %w", key, err)
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return 0, false, perrors.IdentityError(err, "identity cache read failed")
	}
	return value, found, nil
}

// PutIfAbsent implements Store. The entry and the high-water mark are written
// in one transaction.
func (s *BoltStore) PutIfAbsent(_ context.Context, key CompositeKey, value uint64) (uint64, bool, error) {
	var (
		stored   uint64
		inserted bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(identityBucket))
		if raw := bucket.Get([]byte(key.encode())); raw != nil {
			v, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("entry %s: %w", key, err)
			}
			stored = v
			return nil
		}
		if err := bucket.Put([]byte(key.encode()), encodeValue(value)); err != nil {
			return err
		}
		stored, inserted = value, true
		return raiseLastKey(tx, value)
	})
	if err != nil {
		return 0, false, perrors.IdentityError(err, "identity cache write failed")
	}
	return stored, inserted, nil
}

// LastKey implements Store
func (s *BoltStore) LastKey(_ context.Context) (uint64, error) {
	var last uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(metaBucket)).Get([]byte(lastKeyField))
		if raw == nil {
			return nil
		}
		v, err := decodeValue(raw)
		last = v
		return err
	})
	if err != nil {
		return 0, perrors.IdentityError(err, "identity cache meta read failed")
	}
	return last, nil
}

// SaveLastKey implements Store
func (s *BoltStore) SaveLastKey(_ context.Context, value uint64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return raiseLastKey(tx, value)
	})
	if err != nil {
		return perrors.IdentityError(err, "identity cache meta write failed")
	}
	return nil
}

// Stats implements Store
func (s *BoltStore) Stats(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(identityBucket)).ForEach(func(k, _ []byte) error {
			key, ok := decodeKey(string(k))
			if !ok {
				return fmt.Errorf("malformed key %q", k)
			}
			counts[key.Namespace]++
			return nil
		})
	})
	if err != nil {
		return nil, perrors.IdentityError(err, "identity cache scan failed")
	}
	return counts, nil
}

// Close implements Store
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func raiseLastKey(tx *bolt.Tx, value uint64) error {
	meta := tx.Bucket([]byte(metaBucket))
	if raw := meta.Get([]byte(lastKeyField)); raw != nil {
		cur, err := decodeValue(raw)
		if err != nil {
			return err
		}
		if cur >= value {
			return nil
		}
	}
	return meta.Put([]byte(lastKeyField), encodeValue(value))
}

func encodeValue(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeValue(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("value has %d bytes, want 8", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}
