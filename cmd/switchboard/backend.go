package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scrypster/switchboard/internal/config"
	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/internal/storage/badger"
	"github.com/scrypster/switchboard/internal/storage/memory"
	"github.com/scrypster/switchboard/internal/storage/postgres"
	"github.com/scrypster/switchboard/internal/storage/sqlite"
)

// openBackend opens the storage engine named in cfg.
func openBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Engine {
	case config.EngineMemory:
		return memory.NewStore(), nil

	case config.EngineSQLite:
		if err := os.MkdirAll(cfg.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlite.NewStore(filepath.Join(cfg.DataPath, "switchboard.db"))

	case config.EnginePostgres:
		return postgres.NewStore(cfg.DSN)

	case config.EngineBadger:
		return badger.NewStore(filepath.Join(cfg.DataPath, "badger"))

	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}
