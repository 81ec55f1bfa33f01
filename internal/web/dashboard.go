package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

// recentLocations is how many captures the dashboard lists.
const recentLocations = 10

// Dashboard handles GET /admin/.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, PageData{})
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, pd PageData) {
	ctx := r.Context()
	now := s.now()

	counts, err := store.CountItems(ctx, s.DB, now)
	if err != nil {
		slog.Error("failed to count items for dashboard", "error", err)
	}
	captures, err := store.CountLocationsSince(ctx, s.DB, now.Add(-24*time.Hour))
	if err != nil {
		slog.Error("failed to count locations for dashboard", "error", err)
	}
	recent, err := store.ListLocations(ctx, s.DB, model.LocationFilter{Limit: recentLocations})
	if err != nil {
		slog.Error("failed to list locations for dashboard", "error", err)
	}

	pd.Title = "Nadzorna plošča"
	pd.Session = GetSession(ctx)
	s.Templates.RenderStatus(w, status, "dashboard.html", &struct {
		PageData
		Counts      store.ItemCounts
		Captures24h int64
		Recent      []model.Location
	}{
		PageData:    pd,
		Counts:      counts,
		Captures24h: captures,
		Recent:      recent,
	})
}

// CleanupSubmit handles POST /admin/cleanup.
func (s *Server) CleanupSubmit(w http.ResponseWriter, r *http.Request) {
	report, err := s.Cleaner.Run(r.Context())
	if err != nil {
		slog.Error("console cleanup failed", "error", err, "report", report.String())
		s.renderDashboard(w, r, http.StatusInternalServerError, PageData{Error: "Čiščenje ni uspelo."})
		return
	}
	slog.Info("console cleanup", "username", GetSession(r.Context()).Username, "report", report.String())
	s.renderDashboard(w, r, http.StatusOK, PageData{Success: "Čiščenje končano: " + report.String()})
}
