// Package bridges implements the four capability-scoped adapters a
// sandboxed script can reach: persistent key/value memory, outbound
// HTTP, named message channels, and a per-invocation session context.
// Every bridge is deny-by-default and parameterized entirely by values
// passed at construction time — none consult ambient configuration at
// call time, so a bridge's capability surface can never change after
// it's handed to a script.
package bridges

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// kvBucket is the single bbolt bucket every plugin's memory lives in; key
// namespacing (not bucket-per-plugin) is what enforces isolation, per
// spec's `js_plugin:<plugin_id>:<key>` scheme.
var kvBucket = []byte("js_plugin_memory")

// Store is the namespaced key/value backing store for the Memory bridge.
// One Store is shared across every plugin; MemoryBridge namespaces keys
// per plugin so no bucket-per-plugin bookkeeping is needed.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (creating if absent) the bbolt database at path.
func OpenStore(path string) (*Store, error) {
	if filepath.Ext(path) == "" {
		path += ".db"
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init memory bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) get(key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(kvBucket)
		if v := b.Get([]byte(key)); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	return val, val != nil, err
}

func (s *Store) set(key string, val []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(kvBucket).Put([]byte(key), val)
	})
}

func (s *Store) delete(key string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(kvBucket)
		if b.Get([]byte(key)) != nil {
			existed = true
		}
		return b.Delete([]byte(key))
	})
	return existed, err
}

// recallPrefix returns every (key, value) pair whose key starts with
// prefix, in key order.
func (s *Store) recallPrefix(prefix string) ([][2][]byte, error) {
	var out [][2][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(kvBucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			out = append(out, [2][]byte{append([]byte(nil), k...), append([]byte(nil), v...)})
		}
		return nil
	})
	return out, err
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// MemoryError is the bridge-specific error the Memory bridge returns;
// maps to the taxonomy's Memory(msg) variant.
type MemoryError struct {
	Msg string
}

func (e *MemoryError) Error() string { return e.Msg }

// MemoryBridge is a namespace-scoped view over a shared Store. Every key
// a plugin sees is transparently prefixed `js_plugin:<plugin_id>:`, so
// two bridges constructed with different plugin IDs over the same Store
// can never read or write each other's entries.
type MemoryBridge struct {
	store    *Store
	pluginID string
}

// NewMemoryBridge returns a bridge scoped to pluginID over store.
func NewMemoryBridge(store *Store, pluginID string) *MemoryBridge {
	return &MemoryBridge{store: store, pluginID: pluginID}
}

func (b *MemoryBridge) namespaced(key string) string {
	return fmt.Sprintf("js_plugin:%s:%s", b.pluginID, key)
}

// Get returns the JSON-decoded value stored under key, or a MemoryError
// if no such key exists for this plugin.
func (b *MemoryBridge) Get(key string) (any, error) {
	raw, ok, err := b.store.get(b.namespaced(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MemoryError{Msg: fmt.Sprintf("Key not found: %s", key)}
	}
	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, &MemoryError{Msg: fmt.Sprintf("corrupt value for key %s: %v", key, err)}
	}
	return val, nil
}

// Set JSON-serializes value and stores it under key.
func (b *MemoryBridge) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &MemoryError{Msg: fmt.Sprintf("encode value for key %s: %v", key, err)}
	}
	return b.store.set(b.namespaced(key), data)
}

// Delete removes key, reporting whether an entry existed.
func (b *MemoryBridge) Delete(key string) (bool, error) {
	return b.store.delete(b.namespaced(key))
}

// Exists is Get with not-found folded into false.
func (b *MemoryBridge) Exists(key string) (bool, error) {
	_, err := b.Get(key)
	if err != nil {
		var memErr *MemoryError
		if errors.As(err, &memErr) && memErr.Msg == fmt.Sprintf("Key not found: %s", key) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Recall returns every JSON-decoded entry whose key (after this plugin's
// namespace prefix) starts with query, up to limit entries.
func (b *MemoryBridge) Recall(query string, limit int) ([]any, error) {
	entries, err := b.store.recallPrefix(b.namespaced(query))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]any, 0, len(entries))
	for _, kv := range entries {
		var val any
		if err := json.Unmarshal(kv[1], &val); err != nil {
			continue
		}
		out = append(out, val)
	}
	return out, nil
}
