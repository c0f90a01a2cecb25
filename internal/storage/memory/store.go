// Package memory provides a process-local storage.Backend. Nothing survives
// the process; it backs tests and the "memory" engine.
package memory

import (
	"context"
	"sync"

	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/pkg/types"
)

type snapshotKey struct {
	bucket    string
	namespace string
}

// Store implements storage.Backend with maps guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	flags     map[string]bool
	snapshots map[snapshotKey][]byte
	closed    bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		flags:     make(map[string]bool),
		snapshots: make(map[snapshotKey][]byte),
	}
}

// Bool returns the stored flag or false.
func (s *Store) Bool(name, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[types.StoreKey(name, key)]
}

// SaveBool stores a flag.
func (s *Store) SaveBool(name, key string, value bool) error {
	if err := storage.ValidateKey(name, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.flags[types.StoreKey(name, key)] = value
	return nil
}

// ResetBools clears the listed flags under one lock.
func (s *Store) ResetBools(name string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	for _, key := range keys {
		delete(s.flags, types.StoreKey(name, key))
	}
	return nil
}

// GetSnapshot returns a copy of the stored blob.
func (s *Store) GetSnapshot(_ context.Context, bucket, namespace string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[snapshotKey{bucket, namespace}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// PutSnapshot stores a copy of data.
func (s *Store) PutSnapshot(_ context.Context, bucket, namespace string, data []byte) error {
	if err := storage.ValidateKey(bucket, namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.snapshots[snapshotKey{bucket, namespace}] = append([]byte(nil), data...)
	return nil
}

// DeleteSnapshot removes a blob.
func (s *Store) DeleteSnapshot(_ context.Context, bucket, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.snapshots, snapshotKey{bucket, namespace})
	return nil
}

// Close marks the store closed. Reads keep working; writes fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ storage.Backend = (*Store)(nil)
