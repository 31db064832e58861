package store

import (
	"os"
	"testing"
)

func withStores(t *testing.T, fn func(t *testing.T, s ObjectStore)) {
	t.Run("MemStore", func(t *testing.T) {
		fn(t, NewMemStore())
	})

	t.Run("BoltStore", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "swapcore-bolt-*")
		if err != nil {
			t.Fatalf("MkdirTemp: %v", err)
		}
		defer os.RemoveAll(dir)

		bs, err := OpenBoltStore(dir)
		if err != nil {
			t.Fatalf("OpenBoltStore: %v", err)
		}
		defer bs.Close()

		fn(t, bs)
	})
}

func TestPutGetDelete(t *testing.T) {
	withStores(t, func(t *testing.T, s ObjectStore) {
		bucket := []byte("b")

		err := s.Update(func(tx Tx) error {
			return tx.Put(bucket, []byte("k"), []byte("v1"))
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}

		err = s.View(func(tx Tx) error {
			v, ok, err := tx.Get(bucket, []byte("k"))
			if err != nil {
				return err
			}
			if !ok {
				t.Fatalf("expected key to be found")
			}
			if string(v) != "v1" {
				t.Fatalf("got %q want v1", v)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}

		err = s.Update(func(tx Tx) error {
			return tx.Delete(bucket, []byte("k"))
		})
		if err != nil {
			t.Fatalf("Update delete: %v", err)
		}

		err = s.View(func(tx Tx) error {
			_, ok, err := tx.Get(bucket, []byte("k"))
			if err != nil {
				return err
			}
			if ok {
				t.Fatalf("expected key to be gone after delete")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View after delete: %v", err)
		}
	})
}

func TestUpdateRollsBackOnError(t *testing.T) {
	withStores(t, func(t *testing.T, s ObjectStore) {
		bucket := []byte("b")

		_ = s.Update(func(tx Tx) error {
			return tx.Put(bucket, []byte("k"), []byte("committed"))
		})

		wantErr := errRollback
		err := s.Update(func(tx Tx) error {
			if err := tx.Put(bucket, []byte("k"), []byte("should-not-stick")); err != nil {
				return err
			}
			return wantErr
		})
		if err != wantErr {
			t.Fatalf("expected rollback sentinel error, got %v", err)
		}

		_ = s.View(func(tx Tx) error {
			v, ok, _ := tx.Get(bucket, []byte("k"))
			if !ok || string(v) != "committed" {
				t.Fatalf("failed Update must not persist its mutation, got %q ok=%v", v, ok)
			}
			return nil
		})
	})
}

func TestForEach(t *testing.T) {
	withStores(t, func(t *testing.T, s ObjectStore) {
		bucket := []byte("b")
		want := map[string]string{"a": "1", "b": "2", "c": "3"}

		_ = s.Update(func(tx Tx) error {
			for k, v := range want {
				if err := tx.Put(bucket, []byte(k), []byte(v)); err != nil {
					return err
				}
			}
			return nil
		})

		got := make(map[string]string)
		err := s.View(func(tx Tx) error {
			return tx.ForEach(bucket, func(k, v []byte) error {
				got[string(k)] = string(v)
				return nil
			})
		})
		if err != nil {
			t.Fatalf("ForEach: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("got %d entries, want %d", len(got), len(want))
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("key %q: got %q want %q", k, got[k], v)
			}
		}
	})
}

type rollbackError struct{}

func (rollbackError) Error() string { return "rollback" }

var errRollback error = rollbackError{}
