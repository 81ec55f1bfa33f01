package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/sledilnik/internal/model"
)

const itemColumns = `id, slug, title, description, media_type, media_url, file_path, is_active, expires_at, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var mediaURL, filePath sql.NullString
	var expiresAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Slug, &item.Title, &item.Description, &item.MediaType,
		&mediaURL, &filePath, &item.IsActive, &expiresAt, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.MediaURL = mediaURL.String
	item.FilePath = filePath.String
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		item.ExpiresAt = &t
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

// CreateItem inserts a new item. It returns ErrSlugTaken if the slug is in use.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (slug, title, description, media_type, media_url, file_path, is_active, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Slug, item.Title, item.Description, item.MediaType,
		nullString(item.MediaURL), nullString(item.FilePath),
		item.IsActive, nullTime(item.ExpiresAt), dbTime(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, item.Slug)
}

// GetItem returns an item by slug regardless of its state.
func GetItem(ctx context.Context, db *sql.DB, slug string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE slug = ?`, slug,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetServableItem returns the item only if it is active and not expired at now.
func GetServableItem(ctx context.Context, db *sql.DB, slug string, now time.Time) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE slug = ? AND is_active = 1 AND (expires_at IS NULL OR expires_at > ?)`,
		slug, dbTime(now),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting servable item: %w", err)
	}
	return item, nil
}

// ListItems returns all items, newest first.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem applies a partial update and returns the number of rows matched.
// Columns are taken from a fixed allow-list; the slug is never updatable.
func UpdateItem(ctx context.Context, db *sql.DB, slug string, patch model.ItemPatch) (int64, error) {
	var sets []string
	var args []any

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.MediaType != nil {
		sets = append(sets, "media_type = ?")
		args = append(args, *patch.MediaType)
	}
	if patch.MediaURL != nil {
		sets = append(sets, "media_url = ?")
		args = append(args, nullString(*patch.MediaURL))
	}
	if patch.ClearExpiry {
		sets = append(sets, "expires_at = NULL")
	} else if patch.ExpiresAt != nil {
		sets = append(sets, "expires_at = ?")
		args = append(args, dbTime(*patch.ExpiresAt))
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}

	if len(sets) == 0 {
		return 0, fmt.Errorf("updating item: no fields to update")
	}

	args = append(args, slug)
	result, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE slug = ?`, args...,
	)
	if err != nil {
		return 0, fmt.Errorf("updating item: %w", err)
	}
	return result.RowsAffected()
}

// DeleteItem removes an item row. Deleting a missing slug is not an error.
func DeleteItem(ctx context.Context, db *sql.DB, slug string) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE slug = ?`, slug)
	if err != nil {
		return 0, fmt.Errorf("deleting item: %w", err)
	}
	return result.RowsAffected()
}

// ListExpiredActiveItems returns active items whose expiry lies before cutoff.
func ListExpiredActiveItems(ctx context.Context, db *sql.DB, cutoff time.Time) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE expires_at < ? AND is_active = 1
		 ORDER BY expires_at`, dbTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// DeactivateExpiredItems flips is_active off for every active item whose
// expiry lies before cutoff, returning the number of rows changed.
func DeactivateExpiredItems(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET is_active = 0 WHERE expires_at < ? AND is_active = 1`,
		dbTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivating expired items: %w", err)
	}
	return result.RowsAffected()
}

// ItemCounts summarises the item table for the console dashboard.
type ItemCounts struct {
	Total    int64
	Servable int64
	Expired  int64
}

// CountItems counts all, servable, and expired items at now.
func CountItems(ctx context.Context, db *sql.DB, now time.Time) (ItemCounts, error) {
	var c ItemCounts
	ts := dbTime(now)
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN is_active = 1 AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0)
		 FROM items`, ts, ts,
	).Scan(&c.Total, &c.Servable, &c.Expired)
	if err != nil {
		return ItemCounts{}, fmt.Errorf("counting items: %w", err)
	}
	return c, nil
}
