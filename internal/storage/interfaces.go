// Package storage provides the persistence interfaces for Switchboard.
//
// Two concerns share one backend: the per-entity boolean lifecycle flags
// (types.FlagStore) and the opaque snapshot blobs written by the cache. Each
// backend package (memory, sqlite, postgres, badger) implements both so a
// single configured engine serves the whole process.
package storage

import (
	"context"

	"github.com/scrypster/switchboard/pkg/types"
)

// SnapshotStore stores opaque snapshot blobs under a bucket and a namespace.
// Buckets separate cache flavors (ordinary, debug, prefill); namespaces
// separate snapshots within a flavor.
type SnapshotStore interface {
	// GetSnapshot returns the blob stored at (bucket, namespace).
	// Returns ErrNotFound if nothing was written there.
	GetSnapshot(ctx context.Context, bucket, namespace string) ([]byte, error)

	// PutSnapshot writes a blob, replacing any previous one.
	PutSnapshot(ctx context.Context, bucket, namespace string, data []byte) error

	// DeleteSnapshot removes a blob. Deleting a missing blob is not an error.
	DeleteSnapshot(ctx context.Context, bucket, namespace string) error
}

// Backend is a complete persistence engine.
type Backend interface {
	types.FlagStore
	SnapshotStore

	// Close releases any resources held by the backend.
	Close() error
}
