package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// locations.item_slug is deliberately not a foreign key: capture rows outlive
// the items they were recorded for.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    slug        TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    media_type  TEXT NOT NULL,
    media_url   TEXT,
    file_path   TEXT,
    is_active   INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
    expires_at  DATETIME,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_expires_at ON items(expires_at);
CREATE INDEX IF NOT EXISTS idx_items_is_active ON items(is_active);

CREATE TABLE IF NOT EXISTS locations (
    id         INTEGER PRIMARY KEY,
    item_slug  TEXT NOT NULL,
    latitude   REAL,
    longitude  REAL,
    ip_address TEXT NOT NULL,
    user_agent TEXT NOT NULL,
    timestamp  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_locations_item_slug ON locations(item_slug);
CREATE INDEX IF NOT EXISTS idx_locations_timestamp ON locations(timestamp);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
