package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/sledilnik/internal/capture"
	"github.com/erazemk/sledilnik/internal/lifecycle"
	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

// captureTimeout bounds the store write behind a capture call. The write
// is detached from the request so a visitor navigating away does not abort it.
const captureTimeout = 5 * time.Second

// LocationsHandler handles location endpoints.
type LocationsHandler struct {
	DB           *sql.DB
	Capture      *capture.Service
	TrustedProxy bool
}

// CaptureLocation handles GET /api/locations/capture. It always answers
// {"success": true}.
func (h *LocationsHandler) CaptureLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := capture.Input{
		ItemSlug:  strings.TrimSpace(q.Get("item_slug")),
		Latitude:  capture.ParseCoordinate(q.Get("lat")),
		Longitude: capture.ParseCoordinate(q.Get("long")),
		IPAddress: capture.ClientIP(r, h.TrustedProxy),
		UserAgent: r.UserAgent(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), captureTimeout)
	defer cancel()
	h.Capture.Capture(ctx, in)

	jsonSuccess(w, nil)
}

// captureLimited answers rate-limited capture calls exactly like accepted ones.
func captureLimited(w http.ResponseWriter, r *http.Request) {
	slog.Debug("capture rate limited", "remote", r.RemoteAddr)
	jsonSuccess(w, nil)
}

// List handles GET /api/locations/get.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.LocationFilter{ItemSlug: strings.TrimSpace(q.Get("item_slug"))}

	var err error
	if filter.Start, err = lifecycle.ParseTime(q.Get("start_date")); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid start_date")
		return
	}
	if filter.End, err = lifecycle.ParseTime(q.Get("end_date")); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid end_date")
		return
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			jsonError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	locations, err := store.ListLocations(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to fetch locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}
