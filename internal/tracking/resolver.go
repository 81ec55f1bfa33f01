// Package tracking resolves a visitor's slug to a servable item and renders
// the tracking page that triggers a single location capture.
package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

// Resolver looks up servable items.
type Resolver struct {
	DB  *sql.DB
	Now func() time.Time
}

// Resolve returns the item for slug if it is active and unexpired right now,
// or nil otherwise.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*model.Item, error) {
	if slug == "" {
		return nil, nil
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	item, err := store.GetServableItem(ctx, r.DB, slug, now)
	if err != nil {
		return nil, fmt.Errorf("resolving slug: %w", err)
	}
	// The query compares at second precision; recheck against the exact instant.
	if item == nil || !item.Servable(now) {
		return nil, nil
	}
	return item, nil
}
