package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sledilnik/internal/config"
	"github.com/erazemk/sledilnik/internal/db"
)

func TestBuildHandlerRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.Admin.Password = "shared-secret"
	cfg.Uploads.Dir = t.TempDir()
	cfg.Security.LoginRateLimit = 0

	svc, err := newServices(cfg, db.NewTestDB(t))
	require.NoError(t, err)
	handler, err := buildHandler(cfg, svc, "session-secret")
	require.NoError(t, err)

	tests := []struct {
		path   string
		key    string
		status int
	}{
		{"/healthz", "", http.StatusOK},
		{"/", "", http.StatusForbidden},
		{"/?id=missing", "", http.StatusNotFound},
		{"/api/items/list", "", http.StatusUnauthorized},
		{"/api/items/list", "shared-secret", http.StatusOK},
		{"/api/locations/capture?item_slug=x", "", http.StatusOK},
		{"/api/unknown", "shared-secret", http.StatusNotFound},
		{"/admin/", "", http.StatusSeeOther},
		{"/admin/login", "", http.StatusOK},
		{"/static/style.css", "", http.StatusOK},
		{"/uploads/missing.png", "", http.StatusNotFound},
		{"/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.key != "" {
			req.Header.Set("X-API-Key", tt.key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), tt.path)
	}
}

func TestBuildHandlerMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Admin.Password = "shared-secret"
	cfg.Uploads.Dir = t.TempDir()
	cfg.Metrics.Enabled = false

	svc, err := newServices(cfg, db.NewTestDB(t))
	require.NoError(t, err)
	handler, err := buildHandler(cfg, svc, "session-secret")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	t.Setenv("SLEDILNIK_CONFIG", "")
	t.Setenv("SLEDILNIK_SERVER_ADDR", ":7000")

	cfg, err := loadConfig([]string{"-a", ":9999", "-db", "/tmp/x.sqlite3", "-p", "/tmp/up"})
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/x.sqlite3", cfg.Database.Path)
	assert.Equal(t, "/tmp/up", cfg.Uploads.Dir)

	cfg, err = loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)

	_, err = loadConfig([]string{"extra"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"-h"})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestRunUnknownCommand(t *testing.T) {
	assert.Equal(t, 1, run([]string{"frobnicate"}))
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(24)
	require.NoError(t, err)
	b, err := generatePassword(24)
	require.NoError(t, err)
	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}

func TestLevelRouter(t *testing.T) {
	level, err := parseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)

	lr := &levelRouter{min: slog.LevelWarn, stdout: slog.DiscardHandler, stderr: slog.DiscardHandler}
	assert.False(t, lr.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, lr.Enabled(context.Background(), slog.LevelError))
}
