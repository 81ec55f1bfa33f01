package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/sledilnik/internal/model"
)

// Location listing limits.
const (
	DefaultLocationLimit = 1000
	MaxLocationLimit     = 5000
)

// CreateLocation appends a capture row. A zero Timestamp is stamped with the
// current time.
func CreateLocation(ctx context.Context, db *sql.DB, loc *model.Location) error {
	ts := loc.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var lat, long any
	if loc.HasCoordinates() {
		lat, long = *loc.Latitude, *loc.Longitude
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO locations (item_slug, latitude, longitude, ip_address, user_agent, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		loc.ItemSlug, lat, long, loc.IPAddress, loc.UserAgent, dbTime(ts),
	)
	if err != nil {
		return fmt.Errorf("creating location: %w", err)
	}
	return nil
}

// ListLocations returns captured locations, newest first, joined with the
// title of the item they reference (empty if the item is gone).
func ListLocations(ctx context.Context, db *sql.DB, filter model.LocationFilter) ([]model.Location, error) {
	query := `SELECT l.id, l.item_slug, i.title, l.latitude, l.longitude, l.ip_address, l.user_agent, l.timestamp
		 FROM locations l LEFT JOIN items i ON i.slug = l.item_slug
		 WHERE 1=1`
	var args []any

	if filter.ItemSlug != "" {
		query += ` AND l.item_slug = ?`
		args = append(args, filter.ItemSlug)
	}
	if filter.Start != nil {
		query += ` AND l.timestamp >= ?`
		args = append(args, dbTime(*filter.Start))
	}
	if filter.End != nil {
		query += ` AND l.timestamp <= ?`
		args = append(args, dbTime(*filter.End))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLocationLimit
	}
	if limit > MaxLocationLimit {
		limit = MaxLocationLimit
	}
	query += ` ORDER BY l.timestamp DESC, l.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var loc model.Location
		var title sql.NullString
		var lat, long sql.NullFloat64
		if err := rows.Scan(&loc.ID, &loc.ItemSlug, &title, &lat, &long, &loc.IPAddress, &loc.UserAgent, &loc.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		loc.ItemTitle = title.String
		if lat.Valid && long.Valid {
			loc.Latitude = &lat.Float64
			loc.Longitude = &long.Float64
		}
		loc.Timestamp = loc.Timestamp.UTC()
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// DeleteLocationsBefore removes capture rows older than cutoff.
func DeleteLocationsBefore(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM locations WHERE timestamp < ?`, dbTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old locations: %w", err)
	}
	return result.RowsAffected()
}

// CountLocationsSince counts capture rows recorded at or after since.
func CountLocationsSince(ctx context.Context, db *sql.DB, since time.Time) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE timestamp >= ?`, dbTime(since),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting locations: %w", err)
	}
	return n, nil
}
