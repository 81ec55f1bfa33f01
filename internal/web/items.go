package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/sledilnik/internal/lifecycle"
	"github.com/erazemk/sledilnik/internal/model"
)

// uploadField is the multipart field carrying an item's media file.
const uploadField = "media_file"

// maxFormMemory is how much of a multipart form is held in memory.
const maxFormMemory = 8 << 20

// ItemsPage handles GET /admin/items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	s.renderItems(w, r, http.StatusOK, PageData{})
}

func (s *Server) renderItems(w http.ResponseWriter, r *http.Request, status int, pd PageData) {
	items, err := s.Items.List(r.Context())
	if err != nil {
		slog.Error("failed to list items", "error", err)
	}

	pd.Title = "Predmeti"
	pd.Session = GetSession(r.Context())
	s.Templates.RenderStatus(w, status, "items.html", &struct {
		PageData
		Items      []model.Item
		MediaTypes []string
		BaseURL    string
		Now        time.Time
	}{
		PageData:   pd,
		Items:      items,
		MediaTypes: model.MediaTypes,
		BaseURL:    s.BaseURL,
		Now:        s.now(),
	})
}

// ItemCreateSubmit handles POST /admin/items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		status, msg := http.StatusBadRequest, "Neveljaven obrazec."
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			status, msg = http.StatusRequestEntityTooLarge, "Datoteka je prevelika."
		}
		s.renderItems(w, r, status, PageData{Error: msg})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := lifecycle.CreateInput{
		Slug:        strings.TrimSpace(r.FormValue("slug")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		MediaType:   strings.TrimSpace(r.FormValue("media_type")),
		MediaURL:    strings.TrimSpace(r.FormValue("media_url")),
	}
	active := r.FormValue("is_active") != ""
	in.IsActive = &active

	expiresAt, err := lifecycle.ParseTime(strings.TrimSpace(r.FormValue("expires_at")))
	if err != nil {
		s.renderItems(w, r, http.StatusBadRequest, PageData{Error: err.Error()})
		return
	}
	in.ExpiresAt = expiresAt

	if r.MultipartForm != nil {
		file, header, err := r.FormFile(uploadField)
		switch {
		case err == nil:
			defer file.Close()
			if header.Size > 0 {
				in.Upload = &lifecycle.Upload{Filename: header.Filename, Reader: file}
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			s.renderItems(w, r, http.StatusBadRequest, PageData{Error: "Nalaganje datoteke ni uspelo."})
			return
		}
	}

	item, err := s.Items.Create(r.Context(), in)
	if err != nil {
		s.renderItemError(w, r, err, "Predmeta ni bilo mogoče ustvariti.")
		return
	}

	slog.Info("item created", "username", GetSession(r.Context()).Username, "slug", item.Slug)
	http.Redirect(w, r, "/admin/items", http.StatusSeeOther)
}

// ItemToggleSubmit handles POST /admin/items/{slug}/toggle.
func (s *Server) ItemToggleSubmit(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	item, err := s.Items.Get(r.Context(), slug)
	if err != nil {
		s.renderItemError(w, r, err, "Predmeta ni bilo mogoče naložiti.")
		return
	}
	if item == nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}

	active := !item.IsActive
	if err := s.Items.Update(r.Context(), slug, model.ItemPatch{IsActive: &active}); err != nil {
		s.renderItemError(w, r, err, "Predmeta ni bilo mogoče posodobiti.")
		return
	}

	slog.Info("item toggled", "username", GetSession(r.Context()).Username, "slug", slug, "active", active)
	http.Redirect(w, r, "/admin/items", http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /admin/items/{slug}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if err := s.Items.Delete(r.Context(), slug); err != nil {
		s.renderItemError(w, r, err, "Predmeta ni bilo mogoče izbrisati.")
		return
	}

	slog.Info("item deleted", "username", GetSession(r.Context()).Username, "slug", slug)
	http.Redirect(w, r, "/admin/items", http.StatusSeeOther)
}

// renderItemError maps lifecycle errors onto the items page.
func (s *Server) renderItemError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	switch {
	case lifecycle.IsValidation(err):
		s.renderItems(w, r, http.StatusBadRequest, PageData{Error: err.Error()})
	case lifecycle.IsConflict(err):
		s.renderItems(w, r, http.StatusBadRequest, PageData{Error: "Oznaka že obstaja."})
	default:
		slog.Error(failure, "error", err)
		s.renderItems(w, r, http.StatusInternalServerError, PageData{Error: failure})
	}
}
