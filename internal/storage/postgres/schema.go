// Package postgres provides PostgreSQL implementations of storage interfaces.
package postgres

// Schema contains the SQL statements to create the database schema for
// PostgreSQL. All statements use IF NOT EXISTS.
const Schema = `
CREATE TABLE IF NOT EXISTS entity_flags (
    namespace TEXT NOT NULL,
    flag_key TEXT NOT NULL,
    value BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (namespace, flag_key)
);

CREATE TABLE IF NOT EXISTS snapshots (
    bucket TEXT NOT NULL,
    namespace TEXT NOT NULL,
    data BYTEA NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (bucket, namespace)
);
`
