package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/erazemk/sledilnik/internal/lifecycle"
	"github.com/erazemk/sledilnik/internal/model"
)

// uploadField is the multipart field carrying an item's media file.
const uploadField = "media_file"

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Items *lifecycle.Manager
}

// writeItemError maps lifecycle errors onto HTTP responses.
func writeItemError(w http.ResponseWriter, err error, failure string) {
	switch {
	case lifecycle.IsValidation(err):
		jsonError(w, http.StatusBadRequest, err.Error())
	case lifecycle.IsConflict(err):
		jsonError(w, http.StatusBadRequest, "Slug already exists")
	default:
		slog.Error(failure, "error", err)
		jsonError(w, http.StatusInternalServerError, failure)
	}
}

// readItemFields reads the request, reporting body errors as 400 or 413.
func readItemFields(w http.ResponseWriter, r *http.Request) (fields, *multipart.Form, bool) {
	f, form, err := readFields(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, nil, false
		}
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return nil, nil, false
	}
	return f, form, true
}

// Create handles POST /api/items/create.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, form, ok := readItemFields(w, r)
	if !ok {
		return
	}
	if form != nil {
		defer form.RemoveAll()
	}

	in, err := createInput(f)
	if err != nil {
		writeItemError(w, err, "Failed to create item")
		return
	}

	if form != nil {
		if files := form.File[uploadField]; len(files) > 0 {
			file, err := files[0].Open()
			if err != nil {
				writeItemError(w, err, "File upload failed")
				return
			}
			defer file.Close()
			in.Upload = &lifecycle.Upload{Filename: files[0].Filename, Reader: file}
		}
	}

	item, err := h.Items.Create(r.Context(), in)
	if err != nil {
		writeItemError(w, err, "Failed to create item")
		return
	}

	jsonSuccess(w, map[string]any{"slug": item.Slug})
}

func createInput(f fields) (lifecycle.CreateInput, error) {
	in := lifecycle.CreateInput{
		Slug:        f.get("slug"),
		Title:       f.get("title"),
		Description: f.get("description"),
		MediaType:   f.get("media_type"),
		MediaURL:    f.get("media_url"),
	}

	expiresAt, err := lifecycle.ParseTime(f.get("expires_at"))
	if err != nil {
		return in, err
	}
	in.ExpiresAt = expiresAt

	if f.has("is_active") && f.get("is_active") != "" {
		active, err := lifecycle.ParseBool(f.get("is_active"))
		if err != nil {
			return in, err
		}
		in.IsActive = &active
	}
	return in, nil
}

// List handles GET /api/items/list.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Items.List(r.Context())
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to fetch items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Update handles POST /api/items/update.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, _, ok := readItemFields(w, r)
	if !ok {
		return
	}

	slug := f.get("slug")
	if slug == "" {
		jsonError(w, http.StatusBadRequest, "Item slug required")
		return
	}

	patch, err := patchFromFields(f)
	if err != nil {
		writeItemError(w, err, "Failed to update item")
		return
	}

	if err := h.Items.Update(r.Context(), slug, patch); err != nil {
		writeItemError(w, err, "Failed to update item")
		return
	}
	jsonSuccess(w, nil)
}

// patchFromFields builds a patch from the update allow-list. Keys outside
// the list, including slug and file_path, are ignored.
func patchFromFields(f fields) (model.ItemPatch, error) {
	var p model.ItemPatch

	str := func(key string) *string {
		if !f.has(key) {
			return nil
		}
		v := f.get(key)
		return &v
	}
	p.Title = str("title")
	p.Description = str("description")
	p.MediaType = str("media_type")
	p.MediaURL = str("media_url")

	if f.has("expires_at") {
		t, err := lifecycle.ParseTime(f.get("expires_at"))
		if err != nil {
			return p, err
		}
		if t == nil {
			p.ClearExpiry = true
		} else {
			p.ExpiresAt = t
		}
	}

	if f.has("is_active") {
		active, err := lifecycle.ParseBool(f.get("is_active"))
		if err != nil {
			return p, err
		}
		p.IsActive = &active
	}

	return p, nil
}

// Delete handles POST and GET /api/items/delete.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	f, _, ok := readItemFields(w, r)
	if !ok {
		return
	}

	slug := f.get("slug")
	if slug == "" {
		jsonError(w, http.StatusBadRequest, "Item slug required")
		return
	}

	if err := h.Items.Delete(r.Context(), slug); err != nil {
		writeItemError(w, err, "Failed to delete item")
		return
	}
	jsonSuccess(w, nil)
}
