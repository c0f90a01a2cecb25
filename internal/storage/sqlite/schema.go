package sqlite

// Schema creates the flag and snapshot tables. Every statement is idempotent.
const Schema = `
-- Lifecycle flags, one row per (entity namespace, flag key). A missing row reads as false.
CREATE TABLE IF NOT EXISTS entity_flags (
    namespace TEXT NOT NULL,
    flag_key TEXT NOT NULL,
    value INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (namespace, flag_key)
);

-- Cache snapshots, one row per (bucket, namespace).
CREATE TABLE IF NOT EXISTS snapshots (
    bucket TEXT NOT NULL,
    namespace TEXT NOT NULL,
    data BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (bucket, namespace)
);
`
