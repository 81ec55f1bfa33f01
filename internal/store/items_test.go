package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sledilnik/internal/db"
	"github.com/erazemk/sledilnik/internal/model"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newItem(slug string, createdAt time.Time) *model.Item {
	return &model.Item{
		Slug:      slug,
		Title:     "Title " + slug,
		MediaType: model.MediaImage,
		MediaURL:  "https://example.com/" + slug + ".png",
		IsActive:  true,
		CreatedAt: createdAt,
	}
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	expires := testNow.Add(48 * time.Hour)
	in := newItem("cat-pic-abc123", testNow)
	in.Description = "a cat"
	in.FilePath = "/uploads/cat-pic-abc123.png"
	in.ExpiresAt = &expires

	item, err := CreateItem(ctx, database, in)
	require.NoError(t, err)
	assert.Equal(t, "cat-pic-abc123", item.Slug)
	assert.Equal(t, "a cat", item.Description)
	assert.Equal(t, "/uploads/cat-pic-abc123.png", item.FilePath)
	assert.True(t, item.IsActive)
	require.NotNil(t, item.ExpiresAt)
	assert.True(t, expires.Equal(*item.ExpiresAt))
	assert.True(t, testNow.Equal(item.CreatedAt))

	missing, err := GetItem(ctx, database, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateItemDuplicateSlug(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateItem(ctx, database, newItem("dup", testNow))
	require.NoError(t, err)

	_, err = CreateItem(ctx, database, newItem("dup", testNow))
	assert.ErrorIs(t, err, ErrSlugTaken)

	items, err := ListItems(ctx, database)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListItemsNewestFirst(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, newItem("old", testNow.Add(-2*time.Hour)))
	CreateItem(ctx, database, newItem("new", testNow))
	CreateItem(ctx, database, newItem("mid", testNow.Add(-time.Hour)))

	items, err := ListItems(ctx, database)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "new", items[0].Slug)
	assert.Equal(t, "mid", items[1].Slug)
	assert.Equal(t, "old", items[2].Slug)
}

func TestGetServableItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Hour)

	active := newItem("active", testNow)
	expired := newItem("expired", testNow)
	expired.ExpiresAt = &past
	pending := newItem("pending", testNow)
	pending.ExpiresAt = &future
	inactive := newItem("inactive", testNow)
	inactive.IsActive = false

	for _, it := range []*model.Item{active, expired, pending, inactive} {
		_, err := CreateItem(ctx, database, it)
		require.NoError(t, err)
	}

	tests := []struct {
		slug     string
		servable bool
	}{
		{"active", true},
		{"pending", true},
		{"expired", false},
		{"inactive", false},
		{"missing", false},
	}
	for _, tt := range tests {
		item, err := GetServableItem(ctx, database, tt.slug, testNow)
		require.NoError(t, err)
		assert.Equal(t, tt.servable, item != nil, "slug %q", tt.slug)
	}
}

func TestUpdateItemPartial(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	expires := testNow.Add(time.Hour)
	in := newItem("upd", testNow)
	in.ExpiresAt = &expires
	_, err := CreateItem(ctx, database, in)
	require.NoError(t, err)

	title := "Renamed"
	inactive := false
	n, err := UpdateItem(ctx, database, "upd", model.ItemPatch{Title: &title, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	item, err := GetItem(ctx, database, "upd")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", item.Title)
	assert.False(t, item.IsActive)
	assert.Equal(t, model.MediaImage, item.MediaType, "untouched field changed")
	require.NotNil(t, item.ExpiresAt, "untouched expiry changed")

	n, err = UpdateItem(ctx, database, "upd", model.ItemPatch{ClearExpiry: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	item, _ = GetItem(ctx, database, "upd")
	assert.Nil(t, item.ExpiresAt)

	// Zero rows matched is not an error.
	n, err = UpdateItem(ctx, database, "ghost", model.ItemPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = UpdateItem(ctx, database, "upd", model.ItemPatch{})
	assert.Error(t, err)
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateItem(ctx, database, newItem("gone", testNow))
	require.NoError(t, err)

	n, err := DeleteItem(ctx, database, "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = DeleteItem(ctx, database, "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	item, _ := GetItem(ctx, database, "gone")
	assert.Nil(t, item)
}

func TestExpiredActiveItemsAndDeactivate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	expired := newItem("expired", testNow)
	expired.ExpiresAt = &past
	alreadyOff := newItem("already-off", testNow)
	alreadyOff.ExpiresAt = &past
	alreadyOff.IsActive = false
	live := newItem("live", testNow)
	live.ExpiresAt = &future
	forever := newItem("forever", testNow)

	for _, it := range []*model.Item{expired, alreadyOff, live, forever} {
		_, err := CreateItem(ctx, database, it)
		require.NoError(t, err)
	}

	items, err := ListExpiredActiveItems(ctx, database, testNow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "expired", items[0].Slug)

	n, err := DeactivateExpiredItems(ctx, database, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = DeactivateExpiredItems(ctx, database, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// The row survives passive expiry.
	item, err := GetItem(ctx, database, "expired")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.False(t, item.IsActive)
}

func TestCountItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	expired := newItem("expired", testNow)
	expired.ExpiresAt = &past
	CreateItem(ctx, database, expired)
	CreateItem(ctx, database, newItem("live", testNow))

	counts, err := CountItems(ctx, database, testNow)
	require.NoError(t, err)
	assert.Equal(t, ItemCounts{Total: 2, Servable: 1, Expired: 1}, counts)
}
