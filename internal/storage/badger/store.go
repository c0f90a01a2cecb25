// Package badger provides an embedded BadgerDB implementation of
// storage.Backend.
//
// Key Structure:
//   - Flags:     0x01 + namespace + 0x00 + flagKey -> 0x00 | 0x01
//   - Snapshots: 0x02 + bucket + 0x00 + namespace -> snapshot bytes
package badger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/pkg/types"
)

const (
	prefixFlag     = byte(0x01)
	prefixSnapshot = byte(0x02)
	separator      = byte(0x00)
)

// Options configures the BadgerDB store.
type Options struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool
}

// Store implements storage.Backend using BadgerDB.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// NewStore opens a persistent store in dataDir.
func NewStore(dataDir string) (*Store, error) {
	return NewStoreWithOptions(Options{DataDir: dataDir})
}

// NewStoreInMemory opens a store that keeps everything in RAM.
func NewStoreInMemory() (*Store, error) {
	return NewStoreWithOptions(Options{InMemory: true})
}

// NewStoreWithOptions opens a store with custom configuration.
func NewStoreWithOptions(opts Options) (*Store, error) {
	if opts.DataDir == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger: %w: data dir is required", storage.ErrInvalidInput)
	}

	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	// Flag state and snapshots are tiny; keep the footprint small.
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(16 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithBlockCacheSize(4 << 20).
		WithIndexCacheSize(2 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

func flagKey(name, key string) []byte {
	out := make([]byte, 0, 2+len(name)+len(key)+len(types.StoreNamespacePrefix)+1)
	out = append(out, prefixFlag)
	out = append(out, types.StoreNamespace(name)...)
	out = append(out, separator)
	return append(out, key...)
}

func snapshotKey(bucket, namespace string) []byte {
	out := make([]byte, 0, 2+len(bucket)+len(namespace))
	out = append(out, prefixSnapshot)
	out = append(out, bucket...)
	out = append(out, separator)
	return append(out, namespace...)
}

// Bool returns the stored flag. Read errors are logged and reported as false.
func (s *Store) Bool(name, key string) bool {
	var value bool
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(flagKey(name, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = len(val) == 1 && val[0] == 1
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		log.Printf("badger: failed to read flag %s: %v", types.StoreKey(name, key), err)
	}
	return value
}

// SaveBool stores a flag.
func (s *Store) SaveBool(name, key string, value bool) error {
	if err := storage.ValidateKey(name, key); err != nil {
		return err
	}
	b := byte(0)
	if value {
		b = 1
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(flagKey(name, key), []byte{b})
	})
}

// ResetBools deletes the listed flags in one transaction.
func (s *Store) ResetBools(name string, keys ...string) error {
	return s.update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(flagKey(name, key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSnapshot returns the blob at (bucket, namespace).
func (s *Store) GetSnapshot(_ context.Context, bucket, namespace string) ([]byte, error) {
	var data []byte
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(bucket, namespace))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger: failed to read snapshot %s/%s: %w", bucket, namespace, err)
	}
	return data, nil
}

// PutSnapshot writes the blob at (bucket, namespace).
func (s *Store) PutSnapshot(_ context.Context, bucket, namespace string, data []byte) error {
	if err := storage.ValidateKey(bucket, namespace); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(bucket, namespace), data)
	})
}

// DeleteSnapshot removes the blob at (bucket, namespace).
func (s *Store) DeleteSnapshot(_ context.Context, bucket, namespace string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey(bucket, namespace))
	})
}

// Close closes the database. Subsequent calls return nil.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	if err := s.db.Update(fn); err != nil {
		return fmt.Errorf("badger: update failed: %w", err)
	}
	return nil
}

var _ storage.Backend = (*Store)(nil)
