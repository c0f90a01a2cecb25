// Package postgres provides a PostgreSQL implementation of storage interfaces.
// This file contains test helpers only available during testing.
package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from both tables.
func (s *Store) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE entity_flags, snapshots")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate: %w", err)
	}
	return nil
}
