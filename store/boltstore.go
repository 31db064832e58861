package store

import (
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

const (
	dbName           = "swapcore.db"
	dbFilePermission = 0600
)

// BoltStore is a durable ObjectStore backed by bbolt, following the same
// open/migrate-free layout channeldb/db.go uses for lnd's own bolt-backed
// store: one file, buckets created lazily on first write.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) a BoltStore rooted at dbPath.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return nil, err
	}
	path := filepath.Join(dbPath, dbName)

	db, err := bolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) Get(bucket, key []byte) ([]byte, bool, error) {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil, false, nil
	}
	v := b.Get(key)
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *boltTx) Put(bucket, key, value []byte) error {
	b, err := t.tx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

func (t *boltTx) Delete(bucket, key []byte) error {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

func (t *boltTx) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	b := t.tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.ForEach(fn)
}

// Update implements ObjectStore, delegating directly to bbolt's own
// atomic read-write transaction.
func (s *BoltStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// View implements ObjectStore.
func (s *BoltStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Close implements ObjectStore.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
