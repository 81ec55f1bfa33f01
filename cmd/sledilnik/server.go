package main

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/erazemk/sledilnik/internal/api"
	"github.com/erazemk/sledilnik/internal/capture"
	"github.com/erazemk/sledilnik/internal/cleanup"
	"github.com/erazemk/sledilnik/internal/config"
	"github.com/erazemk/sledilnik/internal/lifecycle"
	"github.com/erazemk/sledilnik/internal/media"
	"github.com/erazemk/sledilnik/internal/metrics"
	"github.com/erazemk/sledilnik/internal/tracking"
	"github.com/erazemk/sledilnik/internal/web"
)

// services are the domain components shared by every surface.
type services struct {
	db      *sql.DB
	files   *media.Store
	items   *lifecycle.Manager
	capture *capture.Service
	cleaner *cleanup.Cleaner
}

func newServices(cfg *config.Config, database *sql.DB) (*services, error) {
	files, err := media.NewStore(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening upload store: %w", err)
	}
	return &services{
		db:      database,
		files:   files,
		items:   lifecycle.NewManager(database, files),
		capture: &capture.Service{DB: database},
		cleaner: &cleanup.Cleaner{DB: database, Files: files, Retention: cfg.Cleanup.LocationRetention},
	}, nil
}

// buildHandler assembles every surface behind one mux: the tracking page at
// /, the JSON API under /api/, uploaded media, the admin console and the
// operational endpoints.
func buildHandler(cfg *config.Config, svc *services, sessionSecret string) (http.Handler, error) {
	apiRouter := api.NewRouter(api.Config{
		DB:                svc.db,
		Items:             svc.items,
		Capture:           svc.capture,
		Cleaner:           svc.cleaner,
		APIKey:            cfg.Admin.Password,
		TrustedProxy:      cfg.Server.TrustedProxy,
		MaxUploadBytes:    cfg.Uploads.MaxBytes,
		CORSOrigins:       cfg.Security.CORSOrigins,
		CaptureRateLimit:  cfg.Security.CaptureRateLimit,
		CaptureRateWindow: cfg.Security.CaptureRateWindow,
	})

	consoleRouter, err := web.NewRouter(web.Config{
		DB:             svc.db,
		Items:          svc.items,
		Cleaner:        svc.cleaner,
		SessionSecret:  sessionSecret,
		AdminUsername:  cfg.Admin.Username,
		AdminPassword:  cfg.Admin.Password,
		BaseURL:        cfg.Server.BaseURL,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		LoginRateLimit: cfg.Security.LoginRateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up console: %w", err)
	}

	trackingHandler, err := tracking.NewHandler(&tracking.Resolver{DB: svc.db}, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("setting up tracking page: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", trackingHandler)
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET "+media.Prefix, svc.files.Handler())
	mux.Handle("GET /healthz", api.HealthHandler(svc.db))
	mux.Handle("/admin/", consoleRouter)
	mux.Handle("GET /static/", consoleRouter)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	return api.RequestID(api.LoggingMiddleware(api.MetricsMiddleware(mux))), nil
}
