// Package memory provides in-process implementations of the storage
// interfaces, used for single-device runs and tests.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/go-faster/jx"

	"github.com/Unknumb/SneakerStoreMobile/internal/storage/kv"
)

var _ kv.Store = (*KVStore)(nil)

// KVStore is a map-backed kv.Store.
type KVStore struct {
	mu     sync.RWMutex
	values map[kv.Key][]byte
}

// NewKVStore returns an empty KVStore.
func NewKVStore() *KVStore {
	return &KVStore{values: make(map[kv.Key][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *KVStore) Get(_ context.Context, key kv.Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value under key.
func (s *KVStore) Set(_ context.Context, key kv.Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = slices.Clone(value)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(_ context.Context, key kv.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Append adds item to the array stored under key.
func (s *KVStore) Append(_ context.Context, key kv.Key, item []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items [][]byte
	if current, ok := s.values[key]; ok && jx.DecodeBytes(current).Next() == jx.Array {
		err := jx.DecodeBytes(current).Arr(func(d *jx.Decoder) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			items = append(items, bytes.Clone(raw))
			return nil
		})
		if err != nil {
			items = nil
		}
	}
	items = append(items, slices.Clone(item))

	e := &jx.Encoder{}
	e.ArrStart()
	for _, raw := range items {
		e.Raw(raw)
	}
	e.ArrEnd()

	s.values[key] = e.Bytes()
	return nil
}
