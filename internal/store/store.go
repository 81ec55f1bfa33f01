// Package store holds the SQL for items and captured locations.
//
// Functions take a *sql.DB explicitly and return (nil, nil) when a single-row
// lookup finds nothing.
package store

import (
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrSlugTaken is returned when an insert collides with an existing slug.
var ErrSlugTaken = errors.New("slug already exists")

// timeLayout is how instants are persisted. A fixed-width UTC layout keeps
// SQL string comparisons in chronological order and matches CURRENT_TIMESTAMP.
const timeLayout = "2006-01-02 15:04:05"

// dbTime formats t for storage.
func dbTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nullTime formats an optional instant, mapping nil to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
