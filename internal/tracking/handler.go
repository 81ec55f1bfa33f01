package tracking

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/sledilnik/internal/metrics"
	"github.com/erazemk/sledilnik/internal/model"
	webembed "github.com/erazemk/sledilnik/web"
)

// CapturePath is the public capture endpoint the page calls.
const CapturePath = "/api/locations/capture"

// Media kinds understood by the page template.
const (
	kindImage       = "image"
	kindVideo       = "video"
	kindFrame       = "frame"
	kindUnsupported = "unsupported"
	kindEmpty       = "empty"
)

type mediaView struct {
	Kind string
	Src  string
}

// viewFor decides how an item's media is embedded.
func viewFor(item *model.Item) mediaView {
	var v mediaView
	switch item.MediaType {
	case model.MediaImage, model.MediaGIF:
		v = mediaView{Kind: kindImage, Src: item.MediaSource()}
	case model.MediaVideo:
		v = mediaView{Kind: kindVideo, Src: item.MediaSource()}
	case model.MediaLink:
		v = mediaView{Kind: kindFrame, Src: item.MediaURL}
	default:
		return mediaView{Kind: kindUnsupported}
	}
	if v.Src == "" {
		v.Kind = kindEmpty
	}
	return v
}

type pageData struct {
	Title       string
	Description string
	Slug        string
	Media       mediaView
	CaptureURL  string
}

// Handler serves the tracking page on GET /?id=<slug>.
type Handler struct {
	Resolver   *Resolver
	CaptureURL string

	pages *template.Template
}

// NewHandler parses the page templates. baseURL is the public origin the
// page should send its capture to; empty means same origin.
func NewHandler(resolver *Resolver, baseURL string) (*Handler, error) {
	pages, err := template.ParseFS(webembed.TemplatesFS(), "tracking.html")
	if err != nil {
		return nil, fmt.Errorf("parsing tracking templates: %w", err)
	}
	return &Handler{
		Resolver:   resolver,
		CaptureURL: strings.TrimRight(baseURL, "/") + CapturePath,
		pages:      pages,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("id")
	if slug == "" {
		metrics.TrackingVisits.WithLabelValues("forbidden").Inc()
		h.render(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	item, err := h.Resolver.Resolve(r.Context(), slug)
	if err != nil {
		metrics.TrackingVisits.WithLabelValues("error").Inc()
		slog.Error("failed to resolve tracking slug", "slug", slug, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		metrics.TrackingVisits.WithLabelValues("not_found").Inc()
		h.render(w, http.StatusNotFound, "not_found", nil)
		return
	}

	metrics.TrackingVisits.WithLabelValues("found").Inc()
	h.render(w, http.StatusOK, "page", &pageData{
		Title:       item.Title,
		Description: item.Description,
		Slug:        item.Slug,
		Media:       viewFor(item),
		CaptureURL:  h.CaptureURL,
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render tracking page", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
