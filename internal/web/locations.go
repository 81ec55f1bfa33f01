package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

// LocationsPage handles GET /admin/locations.
func (s *Server) LocationsPage(w http.ResponseWriter, r *http.Request) {
	filter := model.LocationFilter{ItemSlug: strings.TrimSpace(r.URL.Query().Get("slug"))}

	locations, err := store.ListLocations(r.Context(), s.DB, filter)
	pd := PageData{Title: "Lokacije", Session: GetSession(r.Context())}
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		pd.Error = "Lokacij ni bilo mogoče naložiti."
	}

	s.Templates.Render(w, "locations.html", &struct {
		PageData
		Slug      string
		Locations []model.Location
	}{
		PageData:  pd,
		Slug:      filter.ItemSlug,
		Locations: locations,
	})
}
