// Package cache persists snapshots of features and experiments so the
// registry can be restored at startup without a network round trip.
//
// Each Cache writes into one bucket of a storage.SnapshotStore. The ordinary
// runtime cache, the debug override cache and the prefill catalog use
// distinct buckets, so clearing one never touches another. Within a bucket a
// namespace string separates independent snapshots.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/scrypster/switchboard/internal/metrics"
	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/pkg/types"
)

// Bucket names.
const (
	BucketDefault = "switchboard"
	BucketDebug   = "switchboardDebug"
	BucketPrefill = "switchboardDebugPrefill"
)

// DefaultNamespace is used when the caller passes an empty namespace.
const DefaultNamespace = "default"

// Cache reads and writes snapshots in a single bucket.
type Cache struct {
	store  storage.SnapshotStore
	bucket string
	opts   []types.Option

	mu sync.Mutex
}

// New creates a cache over store. opts are bound to every restored entity
// (flag store, start guard, analytics).
func New(store storage.SnapshotStore, bucket string, opts ...types.Option) *Cache {
	return &Cache{store: store, bucket: bucket, opts: opts}
}

// Bucket returns the bucket name.
func (c *Cache) Bucket() string { return c.bucket }

// WithOptions returns a cache on the same bucket that binds opts to restored
// entities instead.
func (c *Cache) WithOptions(opts ...types.Option) *Cache {
	return New(c.store, c.bucket, opts...)
}

func resolve(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}

// Cache writes a snapshot, replacing any previous one at namespace.
func (c *Cache) Cache(ctx context.Context, experiments []*types.Experiment, features []*types.Feature, namespace string) error {
	data, err := encode(experiments, features)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.PutSnapshot(ctx, c.bucket, resolve(namespace), data); err != nil {
		return fmt.Errorf("cache: write %s/%s: %w", c.bucket, resolve(namespace), err)
	}
	return nil
}

// Restore reads the snapshot at namespace. Both results are nil when nothing
// was cached or the snapshot cannot be read; an empty snapshot yields empty,
// non-nil slices. Callers treat both the same way.
func (c *Cache) Restore(ctx context.Context, namespace string) ([]*types.Experiment, []*types.Feature) {
	ns := resolve(namespace)

	c.mu.Lock()
	data, err := c.store.GetSnapshot(ctx, c.bucket, ns)
	c.mu.Unlock()

	if errors.Is(err, storage.ErrNotFound) {
		metrics.RecordCacheLookup(c.bucket, metrics.CacheMiss)
		return nil, nil
	}
	if err != nil {
		log.Printf("cache: failed to read %s/%s: %v", c.bucket, ns, err)
		metrics.RecordCacheLookup(c.bucket, metrics.CacheCorrupt)
		return nil, nil
	}

	experiments, features, err := decode(data, c.opts)
	if err != nil {
		log.Printf("cache: ignoring %s/%s: %v", c.bucket, ns, err)
		metrics.RecordCacheLookup(c.bucket, metrics.CacheCorrupt)
		return nil, nil
	}
	metrics.RecordCacheLookup(c.bucket, metrics.CacheHit)
	return experiments, features
}

// Clear deletes the snapshot at namespace.
func (c *Cache) Clear(ctx context.Context, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.DeleteSnapshot(ctx, c.bucket, resolve(namespace)); err != nil {
		return fmt.Errorf("cache: clear %s/%s: %w", c.bucket, resolve(namespace), err)
	}
	return nil
}
