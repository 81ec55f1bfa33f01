package lifecycle

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sledilnik/internal/db"
	"github.com/erazemk/sledilnik/internal/media"
	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := media.NewStore(dir)
	require.NoError(t, err)

	m := NewManager(db.NewTestDB(t), files)
	m.Now = func() time.Time { return testNow }
	return m, dir
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }

func TestCreateRequiresTitleAndMediaType(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{MediaType: model.MediaImage})
	require.True(t, IsValidation(err), "got %v", err)
	assert.Contains(t, err.Error(), "title")

	_, err = m.Create(ctx, CreateInput{Title: "   ", MediaType: model.MediaImage})
	assert.True(t, IsValidation(err))

	_, err = m.Create(ctx, CreateInput{Title: "x"})
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "media_type")

	_, err = m.Create(ctx, CreateInput{Title: "x", MediaType: model.MediaLink, Slug: "Bad Slug"})
	assert.True(t, IsValidation(err))
}

func TestCreateExpiryCeiling(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{
		Title: "too far", MediaType: model.MediaLink,
		ExpiresAt: ptr(testNow.Add(8 * 24 * time.Hour)),
	})
	require.True(t, IsValidation(err))
	assert.Equal(t, "expiry exceeds maximum window", err.Error())

	item, err := m.Create(ctx, CreateInput{
		Title: "fine", MediaType: model.MediaLink,
		ExpiresAt: ptr(testNow.Add(6 * 24 * time.Hour)),
	})
	require.NoError(t, err)
	require.NotNil(t, item.ExpiresAt)

	// Expiry in the past is allowed; the item is simply not servable.
	item, err = m.Create(ctx, CreateInput{
		Title: "already over", MediaType: model.MediaLink,
		ExpiresAt: ptr(testNow.Add(-time.Hour)),
	})
	require.NoError(t, err)
	assert.False(t, item.Servable(testNow))
}

func TestCreateGeneratesSlugAndDefaultsActive(t *testing.T) {
	m, _ := newTestManager(t)

	item, err := m.Create(context.Background(), CreateInput{Title: "Hello World!", MediaType: model.MediaLink, MediaURL: "https://example.com"})
	require.NoError(t, err)
	assert.Regexp(t, `^hello-world-[a-z0-9]{6}$`, item.Slug)
	assert.True(t, item.IsActive)
	assert.True(t, testNow.Equal(item.CreatedAt))
}

func TestCreateDuplicateSlug(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	in := CreateInput{Slug: "taken", Title: "first", MediaType: model.MediaLink}
	_, err := m.Create(ctx, in)
	require.NoError(t, err)

	in.Title = "second"
	_, err = m.Create(ctx, in)
	require.True(t, IsConflict(err), "got %v", err)

	items, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Title)
}

func TestCreateWithUpload(t *testing.T) {
	m, dir := newTestManager(t)

	item, err := m.Create(context.Background(), CreateInput{
		Slug: "pic", Title: "Picture", MediaType: model.MediaImage,
		Upload: &Upload{Filename: "photo.PNG", Reader: bytes.NewReader(pngBytes(t))},
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/pic.png", item.FilePath)
	assert.FileExists(t, filepath.Join(dir, "pic.png"))
}

func TestCreateConflictLeavesExistingFile(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{
		Slug: "pic", Title: "Picture", MediaType: model.MediaImage,
		Upload: &Upload{Filename: "a.png", Reader: bytes.NewReader(pngBytes(t))},
	})
	require.NoError(t, err)

	_, err = m.Create(ctx, CreateInput{
		Slug: "pic", Title: "Other", MediaType: model.MediaImage,
		Upload: &Upload{Filename: "b.png", Reader: strings.NewReader("overwrite attempt")},
	})
	require.True(t, IsConflict(err))

	data, err := os.ReadFile(filepath.Join(dir, "pic.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), data)
}

func TestCreateUploadFailureLeavesNoRow(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// Point the file store at a path that cannot be a directory.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	m.Files = &media.Store{Dir: blocker}

	_, err := m.Create(ctx, CreateInput{
		Slug: "broken", Title: "Broken", MediaType: model.MediaVideo,
		Upload: &Upload{Filename: "clip.mp4", Reader: strings.NewReader("data")},
	})
	require.True(t, IsStorage(err), "got %v", err)

	item, err := m.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestCreateCorruptImageIsValidation(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(context.Background(), CreateInput{
		Title: "Corrupt", MediaType: model.MediaImage,
		Upload: &Upload{Filename: "x.png", Reader: strings.NewReader("\x89PNG\r\n\x1a\ngarbage")},
	})
	assert.True(t, IsValidation(err), "got %v", err)
}

func TestUpdate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{Slug: "upd", Title: "Old", MediaType: model.MediaLink})
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, "upd", model.ItemPatch{Title: ptr("New"), IsActive: ptr(false)}))
	item, err := m.Get(ctx, "upd")
	require.NoError(t, err)
	assert.Equal(t, "New", item.Title)
	assert.False(t, item.IsActive)

	err = m.Update(ctx, "upd", model.ItemPatch{})
	assert.True(t, IsValidation(err))

	err = m.Update(ctx, "upd", model.ItemPatch{ExpiresAt: ptr(testNow.Add(8 * 24 * time.Hour))})
	assert.True(t, IsValidation(err))

	err = m.Update(ctx, "upd", model.ItemPatch{Title: ptr("")})
	assert.True(t, IsValidation(err))

	// Unknown slugs are indistinguishable from zero matched rows.
	assert.NoError(t, m.Update(ctx, "ghost", model.ItemPatch{Title: ptr("x")}))
}

func TestUpdateEnforcesFieldLimits(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{Slug: "lim", Title: "Title", MediaType: model.MediaLink, MediaURL: "https://example.com"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch model.ItemPatch
		msg   string
	}{
		{"long title", model.ItemPatch{Title: ptr(strings.Repeat("a", 256))}, "title is too long"},
		{"long description", model.ItemPatch{Description: ptr(strings.Repeat("d", 4097))}, "description is too long"},
		{"long media type", model.ItemPatch{MediaType: ptr(strings.Repeat("m", 33))}, "media_type is too long"},
		{"blank media type", model.ItemPatch{MediaType: ptr("  ")}, "media_type is required"},
		{"long media url", model.ItemPatch{MediaURL: ptr("https://example.com/" + strings.Repeat("u", 2048))}, "media_url is too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Update(ctx, "lim", tt.patch)
			require.True(t, IsValidation(err), "got %v", err)
			assert.EqualError(t, err, tt.msg)
		})
	}

	item, err := m.Get(ctx, "lim")
	require.NoError(t, err)
	assert.Equal(t, "Title", item.Title)
	assert.Equal(t, model.MediaLink, item.MediaType)

	require.NoError(t, m.Update(ctx, "lim", model.ItemPatch{
		Title:       ptr(strings.Repeat("a", 255)),
		Description: ptr(strings.Repeat("d", 4096)),
		MediaURL:    ptr(""),
	}))
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{
		Slug: "foo", Title: "Foo", MediaType: model.MediaImage,
		Upload: &Upload{Filename: "foo.png", Reader: bytes.NewReader(pngBytes(t))},
	})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "foo.png"))

	require.NoError(t, m.Delete(ctx, "foo"))
	assert.NoFileExists(t, filepath.Join(dir, "foo.png"))
	item, err := store.GetItem(ctx, m.DB, "foo")
	require.NoError(t, err)
	assert.Nil(t, item)

	assert.NoError(t, m.Delete(ctx, "foo"), "repeat delete should be a no-op")
}

func TestSlugReusableAfterDelete(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{Slug: "again", Title: "First", MediaType: model.MediaLink})
	require.NoError(t, err)
	_, err = m.Create(ctx, CreateInput{Slug: "again", Title: "Clash", MediaType: model.MediaLink})
	require.True(t, IsConflict(err), "live slug must stay unique")

	require.NoError(t, m.Delete(ctx, "again"))
	item, err := m.Create(ctx, CreateInput{Slug: "again", Title: "Second", MediaType: model.MediaLink})
	require.NoError(t, err)
	assert.Equal(t, "again", item.Slug)
	assert.Equal(t, "Second", item.Title)
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{
		Slug: "foo", Title: "Foo", MediaType: model.MediaImage,
		Upload: &Upload{Filename: "foo.png", Reader: bytes.NewReader(pngBytes(t))},
	})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "foo.png")))

	require.NoError(t, m.Delete(ctx, "foo"))
	item, _ := m.Get(ctx, "foo")
	assert.Nil(t, item)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-20T10:00:00Z", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)},
		{"2026-10-20T12:00:00+02:00", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)},
		{"2026-10-20 10:00:00", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)},
		{"2026-10-20T10:00", time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)},
		{"2026-10-20", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		require.NoError(t, err, tt.in)
		require.NotNil(t, got)
		assert.True(t, tt.want.Equal(*got), "%s: got %s", tt.in, got)
	}

	got, err := ParseTime("  ")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseTime("next tuesday")
	assert.True(t, IsValidation(err))
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "true": true, "on": true, "0": false, "false": false, "off": false, "": false} {
		got, err := ParseBool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBool("maybe")
	assert.Error(t, err)
}
