// Package capture records location events reported by tracking pages.
//
// Capture has no error result: the caller is an untrusted visitor's browser
// and must never learn whether storing its report worked. Failures are
// logged and counted only.
package capture

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/sledilnik/internal/metrics"
	"github.com/erazemk/sledilnik/internal/model"
	"github.com/erazemk/sledilnik/internal/store"
)

// Input is one capture report.
type Input struct {
	ItemSlug  string
	Latitude  *float64
	Longitude *float64
	IPAddress string
	UserAgent string
}

// Service stores capture reports.
type Service struct {
	DB  *sql.DB
	Now func() time.Time
}

// Capture stores in as a location event. The slug is not checked against
// existing items; history may reference deleted or expired items.
func (s *Service) Capture(ctx context.Context, in Input) {
	if in.ItemSlug == "" {
		metrics.CapturesTotal.WithLabelValues("dropped").Inc()
		slog.Warn("capture dropped: missing item slug", "ip", in.IPAddress)
		return
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	loc := &model.Location{
		ItemSlug:  in.ItemSlug,
		IPAddress: orUnknown(in.IPAddress),
		UserAgent: orUnknown(in.UserAgent),
		Timestamp: now,
	}
	if validCoordinates(in.Latitude, in.Longitude) {
		loc.Latitude, loc.Longitude = in.Latitude, in.Longitude
	}

	if err := store.CreateLocation(ctx, s.DB, loc); err != nil {
		metrics.CapturesTotal.WithLabelValues("failed").Inc()
		slog.Error("failed to store capture", "slug", in.ItemSlug, "error", err)
		return
	}

	metrics.CapturesTotal.WithLabelValues("stored").Inc()
	if loc.HasCoordinates() {
		metrics.CapturesWithCoordinates.Inc()
	}
	slog.Debug("capture stored", "slug", in.ItemSlug, "coordinates", loc.HasCoordinates())
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Unknown
	}
	return s
}

// validCoordinates reports whether both values are present, finite and in
// range. A single coordinate on its own is discarded.
func validCoordinates(lat, long *float64) bool {
	if lat == nil || long == nil {
		return false
	}
	for _, v := range []float64{*lat, *long} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return *lat >= -90 && *lat <= 90 && *long >= -180 && *long <= 180
}

// ParseCoordinate parses a query parameter. Empty or malformed values are nil.
func ParseCoordinate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ClientIP returns the visitor's address. With trustProxy set, the first
// X-Forwarded-For hop wins; otherwise the connection address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return model.Unknown
}
