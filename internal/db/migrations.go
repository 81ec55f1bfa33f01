package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: composite index for the servable-item lookup on the tracking path.
	`CREATE INDEX IF NOT EXISTS idx_items_slug_active ON items(slug, is_active)`,
	// Migration 2: the locations listing joins and orders by slug and time together.
	`CREATE INDEX IF NOT EXISTS idx_locations_slug_timestamp ON locations(item_slug, timestamp)`,
}

// migrate runs the database schema migrations.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
