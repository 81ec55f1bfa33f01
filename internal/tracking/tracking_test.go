package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sledilnik/internal/db"
	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func setupHandler(t *testing.T, items ...*model.Item) *Handler {
	t.Helper()
	database := db.NewTestDB(t)
	for _, it := range items {
		if it.CreatedAt.IsZero() {
			it.CreatedAt = testNow
		}
		_, err := store.CreateItem(context.Background(), database, it)
		require.NoError(t, err)
	}

	h, err := NewHandler(&Resolver{DB: database, Now: func() time.Time { return testNow }}, "https://track.example.com/")
	require.NoError(t, err)
	return h
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMissingIDIsForbidden(t *testing.T) {
	h := setupHandler(t)
	rec := get(h, "/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "403")
}

func TestUnknownSlugIsNotFound(t *testing.T) {
	h := setupHandler(t)
	rec := get(h, "/?id=nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "geolocation")
}

func TestExpiredButActiveIsNotFound(t *testing.T) {
	past := testNow.Add(-time.Minute)
	h := setupHandler(t, &model.Item{
		Slug: "old", Title: "Old", MediaType: model.MediaImage,
		MediaURL: "https://cdn.example.com/old.png", IsActive: true, ExpiresAt: &past,
	})

	rec := get(h, "/?id=old")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "old.png")
}

func TestInactiveIsNotFound(t *testing.T) {
	h := setupHandler(t, &model.Item{Slug: "off", Title: "Off", MediaType: model.MediaLink, MediaURL: "https://example.com"})
	assert.Equal(t, http.StatusNotFound, get(h, "/?id=off").Code)
}

func TestRendersMediaByType(t *testing.T) {
	h := setupHandler(t,
		&model.Item{Slug: "img", Title: "Img", MediaType: model.MediaImage, MediaURL: "https://cdn.example.com/a.png", FilePath: "/uploads/img.png", IsActive: true},
		&model.Item{Slug: "vid", Title: "Vid", MediaType: model.MediaVideo, MediaURL: "https://cdn.example.com/v.mp4", IsActive: true},
		&model.Item{Slug: "lnk", Title: "Lnk", MediaType: model.MediaLink, MediaURL: "https://example.org/page", IsActive: true},
		&model.Item{Slug: "odd", Title: "Odd", MediaType: "hologram", MediaURL: "https://example.org/x", IsActive: true},
	)

	body := get(h, "/?id=img").Body.String()
	assert.Contains(t, body, `<img src="/uploads/img.png"`, "uploaded file wins over media url")
	assert.NotContains(t, body, "cdn.example.com/a.png")

	body = get(h, "/?id=vid").Body.String()
	assert.Contains(t, body, `<video src="https://cdn.example.com/v.mp4" autoplay muted`)

	body = get(h, "/?id=lnk").Body.String()
	assert.Contains(t, body, `<iframe src="https://example.org/page"`)

	rec := get(h, "/?id=odd")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported media type")
}

func TestPageCarriesCaptureTrigger(t *testing.T) {
	h := setupHandler(t, &model.Item{Slug: "cat-abc123", Title: "Cat", MediaType: model.MediaGIF, MediaURL: "https://cdn.example.com/cat.gif", IsActive: true})

	rec := get(h, "/?id=cat-abc123")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "https://track.example.com/api/locations/capture")
	assert.Contains(t, body, "getCurrentPosition")
	assert.Contains(t, body, "cat-abc123")
	assert.NotContains(t, body, "X-API-Key")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestViewFor(t *testing.T) {
	assert.Equal(t, mediaView{Kind: kindFrame, Src: "https://x"},
		viewFor(&model.Item{MediaType: model.MediaLink, MediaURL: "https://x", FilePath: "/uploads/ignored"}))
	assert.Equal(t, kindEmpty, viewFor(&model.Item{MediaType: model.MediaImage}).Kind)
	assert.Equal(t, kindUnsupported, viewFor(&model.Item{MediaType: "audio", MediaURL: "https://x"}).Kind)
}
