package store

import (
	"sort"
	"sync"
)

// MemStore is an in-memory ObjectStore guarded by a single mutex for the
// lifetime of a transaction, giving it the same single-threaded
// transactional semantics as a real ledger's object runtime (spec §5).
// It is the default store for tests and resolver simulation.
type MemStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{buckets: make(map[string]map[string][]byte)}
}

type memTx struct {
	s *MemStore
}

func (tx *memTx) bucket(name []byte, create bool) map[string][]byte {
	b, ok := tx.s.buckets[string(name)]
	if !ok {
		if !create {
			return nil
		}
		b = make(map[string][]byte)
		tx.s.buckets[string(name)] = b
	}
	return b
}

func (tx *memTx) Get(bucket, key []byte) ([]byte, bool, error) {
	b := tx.bucket(bucket, false)
	if b == nil {
		return nil, false, nil
	}
	v, ok := b[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (tx *memTx) Put(bucket, key, value []byte) error {
	b := tx.bucket(bucket, true)
	stored := make([]byte, len(value))
	copy(stored, value)
	b[string(key)] = stored
	return nil
}

func (tx *memTx) Delete(bucket, key []byte) error {
	b := tx.bucket(bucket, false)
	if b == nil {
		return nil
	}
	delete(b, string(key))
	return nil
}

func (tx *memTx) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	b := tx.bucket(bucket, false)
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), b[k]); err != nil {
			return err
		}
	}
	return nil
}

// Update implements ObjectStore.
func (s *MemStore) Update(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot so a failed transaction rolls back cleanly (spec §5: "no
	// partial event visibility", extended here to no partial mutation
	// visibility either).
	snapshot := make(map[string]map[string][]byte, len(s.buckets))
	for name, b := range s.buckets {
		cp := make(map[string][]byte, len(b))
		for k, v := range b {
			cp[k] = v
		}
		snapshot[name] = cp
	}

	if err := fn(&memTx{s: s}); err != nil {
		s.buckets = snapshot
		return err
	}
	return nil
}

// View implements ObjectStore.
func (s *MemStore) View(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{s: s})
}

// Close implements ObjectStore.
func (s *MemStore) Close() error {
	return nil
}
