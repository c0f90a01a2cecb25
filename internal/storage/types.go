package storage

import "errors"

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed indicates the backend was used after Close.
	ErrClosed = errors.New("storage closed")
)

// Engine names accepted by configuration.
const (
	EngineMemory   = "memory"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineBadger   = "badger"
)

// ValidateKey rejects empty bucket or flag names.
func ValidateKey(parts ...string) error {
	for _, p := range parts {
		if p == "" {
			return ErrInvalidInput
		}
	}
	return nil
}
