package web

import (
	"errors"
	"log/slog"
	"net/http"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/member"
)

// handleRoot sends admins to the dashboard and visitors to registration.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/registration", http.StatusSeeOther)
}

func loginDeps() orchestrators.LoginDeps {
	return orchestrators.LoginDeps{
		Auth:     app.Backend,
		Sessions: app.Sessions,
		Audit:    auditRecorder(),
	}
}

// handleLogin shows the login form (GET) and exchanges credentials for a
// session (POST).
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		data := map[string]any{"Email": ""}
		if r.URL.Query().Get("expired") != "" {
			data["Error"] = "Your session has expired. Please log in again."
		}
		renderTemplate(w, r, "login.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	email := r.FormValue("Email")
	sess, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    email,
		Password: r.FormValue("Password"),
		IP:       clientIP(r),
	}, loginDeps())
	if err != nil {
		msg := "Login failed. Please try again later."
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, orchestrators.ErrMissingCredentials):
			msg, status = "Email and password are required.", http.StatusUnprocessableEntity
		case errors.Is(err, orchestrators.ErrInvalidCredentials):
			msg, status = "Invalid email or password.", http.StatusUnauthorized
		default:
			slog.Error("login_failed", "error", err)
		}
		renderStatus(w, r, status, "login.html", map[string]any{"Error": msg, "Email": email})
		return
	}

	middleware.SetSessionCookie(w, sess.ID, sess.ExpiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout closes the session.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		err := orchestrators.ExecuteLogout(r.Context(), orchestrators.LogoutInput{Session: sess, IP: clientIP(r)}, loginDeps())
		if err != nil {
			slog.Error("logout_failed", "error", err)
		}
		workspaces.drop(sess.ID)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// dashboardStat is one tile on the dashboard.
type dashboardStat struct {
	Label string
	Value int
	Link  string
}

// handleDashboard shows member and participant totals.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rc := requestContext(sess)

	var stats []dashboardStat
	for _, s := range []struct{ label, status string }{
		{"Members", ""},
		{"Active members", member.StatusActive},
		{"Inactive members", member.StatusInactive},
	} {
		page, err := app.Backend.ListMembers(ctx, rc, backend.ListQuery{Status: s.status, Limit: 1})
		if err != nil {
			if handleBackendAuth(w, r, sess, err) {
				return
			}
			ws.flash(noticeError, errorNotice("Could not load member totals", err))
			break
		}
		link := "/members"
		if s.status != "" {
			link += "?status=" + s.status
		}
		stats = append(stats, dashboardStat{Label: s.label, Value: page.Total, Link: link})
	}

	var participants map[string]int
	roster, err := app.Backend.ListParticipants(ctx, rc, "")
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		ws.flash(noticeError, errorNotice("Could not load participants", err))
	} else {
		stats = append(stats, dashboardStat{Label: "Participants", Value: len(roster.Participants), Link: "/participants"})
		participants = roster.CountByStatus()
	}

	renderTemplate(w, r, "dashboard.html", map[string]any{
		"Stats":        stats,
		"Participants": participants,
	})
}
