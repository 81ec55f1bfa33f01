package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/sledilnik/internal/cleanup"
)

// CleanupHandler handles POST /api/cleanup.
type CleanupHandler struct {
	Cleaner *cleanup.Cleaner
}

func (h *CleanupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, err := h.Cleaner.Run(r.Context())
	if err != nil {
		slog.Error("cleanup request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}

	jsonSuccess(w, map[string]any{
		"locations_deleted": report.LocationsDeleted,
		"items_deactivated": report.ItemsDeactivated,
		"files_removed":     report.FilesRemoved,
	})
}
