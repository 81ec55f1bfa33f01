// Package api serves the JSON API under /api/.
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/erazemk/sledilnik/internal/capture"
	"github.com/erazemk/sledilnik/internal/cleanup"
	"github.com/erazemk/sledilnik/internal/lifecycle"
)

const defaultMaxBody = 50 << 20

// Config wires the API to its services.
type Config struct {
	DB      *sql.DB
	Items   *lifecycle.Manager
	Capture *capture.Service
	Cleaner *cleanup.Cleaner

	// APIKey is the shared secret expected in X-API-Key.
	APIKey string

	TrustedProxy      bool
	MaxUploadBytes    int64
	CORSOrigins       []string
	CaptureRateLimit  int
	CaptureRateWindow time.Duration
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{Items: cfg.Items}
	locationsHandler := &LocationsHandler{DB: cfg.DB, Capture: cfg.Capture, TrustedProxy: cfg.TrustedProxy}
	cleanupHandler := &CleanupHandler{Cleaner: cfg.Cleaner}

	maxBody := cfg.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	keyMW := APIKeyMiddleware(cfg.APIKey)
	limitBody := LimitBody(maxBody)

	// Public: called from tracking pages.
	var captureHandler http.Handler = http.HandlerFunc(locationsHandler.CaptureLocation)
	if cfg.CaptureRateLimit > 0 {
		keyFunc := httprate.KeyByIP
		if cfg.TrustedProxy {
			keyFunc = httprate.KeyByRealIP
		}
		captureHandler = httprate.Limit(cfg.CaptureRateLimit, cfg.CaptureRateWindow,
			httprate.WithKeyFuncs(keyFunc),
			httprate.WithLimitHandler(captureLimited),
		)(captureHandler)
	}
	mux.Handle("GET /api/locations/capture", captureHandler)

	// Key-authenticated.
	mux.Handle("GET /api/locations/get", keyMW(http.HandlerFunc(locationsHandler.List)))

	mux.Handle("POST /api/items/create", keyMW(limitBody(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/list", keyMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items/update", keyMW(limitBody(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("POST /api/items/delete", keyMW(limitBody(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("GET /api/items/delete", keyMW(http.HandlerFunc(itemsHandler.Delete)))

	mux.Handle("POST /api/cleanup", keyMW(cleanupHandler))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "Endpoint not found")
	})

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"X-API-Key", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})(mux)
}
