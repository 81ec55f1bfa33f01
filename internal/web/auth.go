package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/sledilnik/internal/auth"
	"github.com/erazemk/sledilnik/internal/store"
)

// LoginPage handles GET /admin/login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{Title: "Prijava"})
}

// LoginSubmit handles POST /admin/login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", &PageData{
			Title: "Prijava",
			Error: "Vnesite uporabniško ime in geslo.",
		})
		return
	}

	// Both checks always run.
	userOK := auth.KeyMatches(username, s.AdminUsername)
	passOK := auth.CheckPassword(s.PasswordHash, password)
	if !userOK || !passOK {
		slog.Warn("console login failed", "username", username, "remote", r.RemoteAddr)
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", &PageData{
			Title: "Prijava",
			Error: "Napačno uporabniško ime ali geslo.",
		})
		return
	}

	token, err := auth.GenerateToken(s.SessionSecret, username)
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "login.html", &PageData{
			Title: "Prijava",
			Error: "Napaka pri prijavi.",
		})
		return
	}

	setSessionCookie(w, token)
	slog.Info("console login", "username", username)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// Logout handles POST /admin/logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetSession(r.Context()); claims != nil {
		expiresAt := time.Now().Add(auth.SessionTimeout)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := store.RevokeSession(r.Context(), s.DB, claims.ID, expiresAt); err != nil {
			slog.Error("failed to revoke session", "error", err)
		}
	}

	clearSessionCookie(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}
