// Package web serves the admin console: login session, dashboard, item
// management, captured locations and a manual cleanup trigger.
package web

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/erazemk/sledilnik/internal/auth"
	"github.com/erazemk/sledilnik/internal/cleanup"
	"github.com/erazemk/sledilnik/internal/lifecycle"
	webembed "github.com/erazemk/sledilnik/web"
)

const defaultMaxUpload = 50 << 20

// Config wires the console to the rest of the service.
type Config struct {
	DB             *sql.DB
	Items          *lifecycle.Manager
	Cleaner        *cleanup.Cleaner
	SessionSecret  string
	AdminUsername  string
	AdminPassword  string
	BaseURL        string
	MaxUploadBytes int64
	// LoginRateLimit is login attempts per minute per IP; 0 disables it.
	LoginRateLimit int
	Now            func() time.Time
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB             *sql.DB
	Items          *lifecycle.Manager
	Cleaner        *cleanup.Cleaner
	Templates      *Templates
	SessionSecret  string
	AdminUsername  string
	PasswordHash   string
	BaseURL        string
	MaxUploadBytes int64
	Now            func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NewRouter creates the console router. It serves /admin/ and /static/.
func NewRouter(cfg Config) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	s := &Server{
		DB:             cfg.DB,
		Items:          cfg.Items,
		Cleaner:        cfg.Cleaner,
		Templates:      templates,
		SessionSecret:  cfg.SessionSecret,
		AdminUsername:  cfg.AdminUsername,
		PasswordHash:   hash,
		BaseURL:        cfg.BaseURL,
		MaxUploadBytes: maxUpload,
		Now:            cfg.Now,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(cfg.SessionSecret, cfg.DB)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	var login http.Handler = http.HandlerFunc(s.LoginSubmit)
	if cfg.LoginRateLimit > 0 {
		login = httprate.LimitByIP(cfg.LoginRateLimit, time.Minute)(login)
	}
	mux.HandleFunc("GET /admin/login", s.LoginPage)
	mux.Handle("POST /admin/login", login)

	// Authenticated routes.
	mux.Handle("POST /admin/logout", cookieAuth(http.HandlerFunc(s.Logout)))
	mux.Handle("GET /admin/{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))
	mux.Handle("POST /admin/cleanup", cookieAuth(http.HandlerFunc(s.CleanupSubmit)))

	mux.Handle("GET /admin/items", cookieAuth(http.HandlerFunc(s.ItemsPage)))
	mux.Handle("POST /admin/items", cookieAuth(http.HandlerFunc(s.ItemCreateSubmit)))
	mux.Handle("POST /admin/items/{slug}/toggle", cookieAuth(http.HandlerFunc(s.ItemToggleSubmit)))
	mux.Handle("POST /admin/items/{slug}/delete", cookieAuth(http.HandlerFunc(s.ItemDeleteSubmit)))

	mux.Handle("GET /admin/locations", cookieAuth(http.HandlerFunc(s.LocationsPage)))

	return mux, nil
}
