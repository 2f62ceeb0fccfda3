package web

import (
	"net/http"
	"time"

	"memberdesk/internal/adapters/http/middleware"
)

// registerRoutes mounts every page on mux. Everything except static assets,
// the login page and public registration requires a session.
func registerRoutes(mux *http.ServeMux) {
	auth := middleware.RequireAuth

	mux.Handle("/static/", staticHandler())
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.Handle("/registration", registrationLimit(http.HandlerFunc(handleRegistration)))
	mux.HandleFunc("/", handleRoot)
	mux.Handle("/dashboard", auth(http.HandlerFunc(handleDashboard)))

	// Members
	mux.Handle("/members", auth(http.HandlerFunc(handleMembers)))
	mux.Handle("/members/new", auth(http.HandlerFunc(handleMemberNew)))
	mux.Handle("/members/edit", auth(http.HandlerFunc(handleMemberEdit)))
	mux.Handle("/members/family", auth(http.HandlerFunc(handleMemberFamily)))
	mux.Handle("/members/delete", auth(http.HandlerFunc(handleMemberDelete)))
	mux.Handle("/members/import", auth(http.HandlerFunc(handleMemberImport)))
	mux.Handle("/members/export", auth(http.HandlerFunc(handleMemberExport)))

	// Email
	mux.Handle("/emails/send", auth(http.HandlerFunc(handleEmailSend)))
	mux.Handle("/email-templates", auth(http.HandlerFunc(handleTemplates)))
	mux.Handle("/email-templates/save", auth(http.HandlerFunc(handleTemplateSave)))
	mux.Handle("/email-templates/delete", auth(http.HandlerFunc(handleTemplateDelete)))
	mux.Handle("/email-templates/preview", auth(http.HandlerFunc(handleTemplatePreview)))

	// Inline-edited tables
	for _, p := range []rowPage{organizationPage(), eventPage(), ratePlanPage()} {
		mux.Handle(p.path, auth(http.HandlerFunc(p.list)))
		mux.Handle(p.path+"/add", auth(http.HandlerFunc(p.add)))
		mux.Handle(p.path+"/save", auth(http.HandlerFunc(p.save)))
		mux.Handle(p.path+"/delete", auth(http.HandlerFunc(p.remove)))
	}

	mux.Handle("/participants", auth(http.HandlerFunc(handleParticipants)))

	// Admin
	mux.Handle("/admin/audit", auth(http.HandlerFunc(handleAdminAudit)))
	mux.Handle("/admin/perf", auth(http.HandlerFunc(handleAdminPerf)))
	if app.Config.MetricsPath != "" {
		mux.Handle(app.Config.MetricsPath, auth(metricsHandler()))
	}
}

// registrationLimit throttles the public enrolment page per client IP on
// top of the global limit.
func registrationLimit(h http.Handler) http.Handler {
	if app.Config.RegistrationPerMinute <= 0 {
		return h
	}
	return middleware.RateLimit(middleware.NewRateLimiter(app.Config.RegistrationPerMinute, time.Minute))(h)
}

// metricsHandler exposes the registry the metrics were created on.
func metricsHandler() http.Handler {
	if app.Metrics == nil {
		return http.NotFoundHandler()
	}
	return app.Metrics.Handler()
}

// requireMethod rejects anything but the listed methods.
func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}
