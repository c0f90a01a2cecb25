// Package sqlite provides a SQLite implementation of storage.Backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/pkg/types"
)

// Store implements storage.Backend using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dsn with WAL self-healing.
// If the initial open fails due to stale WAL files left by a crashed process,
// it verifies no other process holds them and retries once after removing
// the stale -shm/-wal files.
func NewStore(dsn string) (*Store, error) {
	store, err := openStore(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openStore(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("sqlite: failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

func openStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// One connection serialises writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Bool returns the stored flag. Read errors are logged and reported as false.
func (s *Store) Bool(name, key string) bool {
	var value bool
	err := s.db.QueryRow(
		"SELECT value FROM entity_flags WHERE namespace = ? AND flag_key = ?",
		types.StoreNamespace(name), key,
	).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("sqlite: failed to read flag %s: %v", types.StoreKey(name, key), err)
		}
		return false
	}
	return value
}

// SaveBool upserts a flag.
func (s *Store) SaveBool(name, key string, value bool) error {
	if err := storage.ValidateKey(name, key); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO entity_flags (namespace, flag_key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(namespace, flag_key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, types.StoreNamespace(name), key, value)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save flag %s: %w", types.StoreKey(name, key), err)
	}
	return nil
}

// ResetBools deletes the listed flags in one transaction.
func (s *Store) ResetBools(name string, keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec(
			"DELETE FROM entity_flags WHERE namespace = ? AND flag_key = ?",
			types.StoreNamespace(name), key,
		); err != nil {
			return fmt.Errorf("sqlite: failed to reset flag %s: %w", types.StoreKey(name, key), err)
		}
	}
	return tx.Commit()
}

// GetSnapshot returns the blob at (bucket, namespace).
func (s *Store) GetSnapshot(ctx context.Context, bucket, namespace string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM snapshots WHERE bucket = ? AND namespace = ?",
		bucket, namespace,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to read snapshot %s/%s: %w", bucket, namespace, err)
	}
	return data, nil
}

// PutSnapshot upserts the blob at (bucket, namespace).
func (s *Store) PutSnapshot(ctx context.Context, bucket, namespace string, data []byte) error {
	if err := storage.ValidateKey(bucket, namespace); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (bucket, namespace, data)
		VALUES (?, ?, ?)
		ON CONFLICT(bucket, namespace) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, bucket, namespace, data)
	if err != nil {
		return fmt.Errorf("sqlite: failed to write snapshot %s/%s: %w", bucket, namespace, err)
	}
	return nil
}

// DeleteSnapshot removes the blob at (bucket, namespace).
func (s *Store) DeleteSnapshot(ctx context.Context, bucket, namespace string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE bucket = ? AND namespace = ?",
		bucket, namespace,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete snapshot %s/%s: %w", bucket, namespace, err)
	}
	return nil
}

// Close checkpoints the WAL into the main file and releases resources, so the
// next process opens the database without stale WAL state.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: WAL checkpoint on close failed (non-fatal): %v", err)
	}

	return s.db.Close()
}

var _ storage.Backend = (*Store)(nil)
