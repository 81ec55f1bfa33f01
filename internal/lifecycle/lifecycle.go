// Package lifecycle creates, lists, updates and deletes tracking items. It
// owns the rules that sit above plain storage: the expiry ceiling, slug
// generation and conflict detection, and the coupling between an item row
// and its uploaded file.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/sledilnik/internal/media"
	"github.com/erazemk/sledilnik/internal/metrics"
	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/slug"
	"github.com/erazemk/sledilnik/internal/store"
)

// MaxExpiryWindow is the furthest into the future an expiry may be set.
const MaxExpiryWindow = 7 * 24 * time.Hour

// Upload is a file supplied alongside a create request.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// CreateInput holds the fields accepted by Create.
type CreateInput struct {
	Slug        string     `json:"slug" validate:"omitempty,max=128,slug"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=4096"`
	MediaType   string     `json:"media_type" validate:"required,max=32"`
	MediaURL    string     `json:"media_url" validate:"omitempty,max=2048"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    *bool      `json:"is_active"`
	Upload      *Upload    `json:"-"`
}

// Manager applies item lifecycle rules on top of the store.
type Manager struct {
	DB    *sql.DB
	Files *media.Store
	Now   func() time.Time

	validate *validator.Validate
}

// NewManager returns a Manager. files may be nil, in which case uploads are
// rejected and deletes leave the disk alone.
func NewManager(db *sql.DB, files *media.Store) *Manager {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	})

	return &Manager{DB: db, Files: files, Now: time.Now, validate: v}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// checkExpiry enforces the expiry ceiling. Past instants are allowed.
func (m *Manager) checkExpiry(expiresAt *time.Time) error {
	if expiresAt != nil && expiresAt.After(m.now().Add(MaxExpiryWindow)) {
		return invalid("expiry exceeds maximum window")
	}
	return nil
}

// validationMessage turns validator output into a single client message.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid input"
	}
	return fieldMessage(ve[0].Field(), ve[0].Tag())
}

func fieldMessage(field, tag string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "max":
		return field + " is too long"
	case "slug":
		return "slug may only contain lowercase letters, digits and hyphens"
	default:
		return field + " is invalid"
	}
}

// checkPatch applies the create-time field rules to every field the patch sets.
func (m *Manager) checkPatch(patch model.ItemPatch) error {
	fields := []struct {
		name  string
		value *string
		tag   string
	}{
		{"title", patch.Title, "required,max=255"},
		{"description", patch.Description, "max=4096"},
		{"media_type", patch.MediaType, "required,max=32"},
		{"media_url", patch.MediaURL, "omitempty,max=2048"},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		err := m.validate.Var(strings.TrimSpace(*f.value), f.tag)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return invalid("%s", fieldMessage(f.name, ve[0].Tag()))
		}
		if err != nil {
			return invalid("%s is invalid", f.name)
		}
	}
	return nil
}

// Create validates in and stores a new item. An uploaded file is written
// before the row, and removed again if the row cannot be inserted.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*model.Item, error) {
	item, err := m.create(ctx, in)
	metrics.ItemOperations.WithLabelValues("create", outcome(err)).Inc()
	return item, err
}

func (m *Manager) create(ctx context.Context, in CreateInput) (*model.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.MediaType = strings.TrimSpace(in.MediaType)
	in.Slug = strings.TrimSpace(in.Slug)
	in.MediaURL = strings.TrimSpace(in.MediaURL)

	if err := m.validate.Struct(in); err != nil {
		return nil, invalid("%s", validationMessage(err))
	}
	if err := m.checkExpiry(in.ExpiresAt); err != nil {
		return nil, err
	}

	if in.Slug == "" {
		in.Slug = slug.Generate(in.Title)
	}

	existing, err := store.GetItem(ctx, m.DB, in.Slug)
	if err != nil {
		return nil, storageErr("checking slug", err)
	}
	if existing != nil {
		return nil, &ConflictError{Slug: in.Slug}
	}

	item := &model.Item{
		Slug:        in.Slug,
		Title:       in.Title,
		Description: in.Description,
		MediaType:   in.MediaType,
		MediaURL:    in.MediaURL,
		IsActive:    true,
		ExpiresAt:   in.ExpiresAt,
		CreatedAt:   m.now(),
	}
	if in.IsActive != nil {
		item.IsActive = *in.IsActive
	}

	if in.Upload != nil {
		if m.Files == nil {
			return nil, storageErr("saving upload", errors.New("uploads are not configured"))
		}
		publicPath, err := m.Files.Save(item.Slug, in.Upload.Filename, in.Upload.Reader)
		switch {
		case errors.Is(err, media.ErrExists):
			return nil, &ConflictError{Slug: item.Slug}
		case errors.Is(err, media.ErrInvalidImage):
			return nil, invalid("uploaded file is not a valid image")
		case err != nil:
			return nil, storageErr("saving upload", err)
		}
		item.FilePath = publicPath
	}

	created, err := store.CreateItem(ctx, m.DB, item)
	if err != nil {
		if item.FilePath != "" {
			if _, rmErr := m.Files.Remove(item.FilePath); rmErr != nil {
				slog.Error("failed to remove orphaned upload", "path", item.FilePath, "error", rmErr)
			}
		}
		if errors.Is(err, store.ErrSlugTaken) {
			return nil, &ConflictError{Slug: item.Slug}
		}
		return nil, storageErr("creating item", err)
	}

	slog.Info("item created", "slug", created.Slug, "media_type", created.MediaType, "upload", created.FilePath != "")
	return created, nil
}

// Get returns the item with slug, or nil if there is none.
func (m *Manager) Get(ctx context.Context, slug string) (*model.Item, error) {
	item, err := store.GetItem(ctx, m.DB, slug)
	if err != nil {
		return nil, storageErr("getting item", err)
	}
	return item, nil
}

// List returns every item, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Item, error) {
	items, err := store.ListItems(ctx, m.DB)
	if err != nil {
		return nil, storageErr("listing items", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Update applies patch to the item with slug. Updating a slug that does not
// exist matches zero rows and is reported as success.
func (m *Manager) Update(ctx context.Context, slug string, patch model.ItemPatch) error {
	err := m.update(ctx, slug, patch)
	metrics.ItemOperations.WithLabelValues("update", outcome(err)).Inc()
	return err
}

func (m *Manager) update(ctx context.Context, slug string, patch model.ItemPatch) error {
	if slug == "" {
		return invalid("slug is required")
	}
	if patch.Empty() {
		return invalid("no fields to update")
	}
	if err := m.checkPatch(patch); err != nil {
		return err
	}
	if !patch.ClearExpiry {
		if err := m.checkExpiry(patch.ExpiresAt); err != nil {
			return err
		}
	}

	n, err := store.UpdateItem(ctx, m.DB, slug, patch)
	if err != nil {
		return storageErr("updating item", err)
	}
	if n == 0 {
		slog.Debug("update matched no item", "slug", slug)
		return nil
	}
	slog.Info("item updated", "slug", slug)
	return nil
}

// Delete removes the item row and then its uploaded file. A failure to remove
// the file is logged and does not fail the delete. Deleting a missing slug
// is a no-op.
func (m *Manager) Delete(ctx context.Context, slug string) error {
	err := m.delete(ctx, slug)
	metrics.ItemOperations.WithLabelValues("delete", outcome(err)).Inc()
	return err
}

func (m *Manager) delete(ctx context.Context, slug string) error {
	if slug == "" {
		return invalid("slug is required")
	}

	item, err := store.GetItem(ctx, m.DB, slug)
	if err != nil {
		return storageErr("getting item", err)
	}
	if item == nil {
		return nil
	}

	if _, err := store.DeleteItem(ctx, m.DB, slug); err != nil {
		return storageErr("deleting item", err)
	}

	if item.FilePath != "" && m.Files != nil {
		if _, err := m.Files.Remove(item.FilePath); err != nil {
			slog.Warn("failed to remove item file", "slug", slug, "path", item.FilePath, "error", err)
		}
	}

	slog.Info("item deleted", "slug", slug)
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "validation"
	case IsConflict(err):
		return "conflict"
	default:
		return "storage"
	}
}
