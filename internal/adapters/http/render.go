package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/adapters/storage/session"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// staticHandler serves the embedded /static/ tree.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	renderStatus(w, r, http.StatusOK, templateName, data)
}

// renderStatus renders templateName inside the layout with the given status.
// Pending notices of the current session are consumed.
func renderStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())
	if loggedIn {
		data["Notices"] = currentWorkspace(sess).takeNotices()
	}

	funcMap := template.FuncMap{
		"isLoggedIn":  func() bool { return loggedIn },
		"adminName":   func() string { return firstNonBlank(sess.AdminName, sess.AdminEmail) },
		"csrfToken":   func() string { return csrf.Token(r) },
		"csrfField":   func() template.HTML { return csrf.TemplateField(r) },
		"currentPath": func() string { return r.URL.Path },
		"date":        formatDate,
		"dateTime":    func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"fieldError":  fieldError,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"query":       encodeQuery,
		"money":       func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
		"list":        func(items ...string) []string { return items },
		"dict":        dict,
		"rowArgs": func(path string, ref record.Ref, label string) map[string]any {
			return map[string]any{"Path": path, "Ref": ref, "Label": label}
		},
	}

	partials := []string{"templates/layout.html", "templates/pager.html", "templates/rowtools.html", "templates/" + templateName}
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, partials...)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// currentWorkspace returns the UI state of the logged-in session.
func currentWorkspace(sess session.Session) *workspace {
	return workspaces.get(sess.ID, app.Config.PageSize)
}

// requireSession returns the session and workspace, or redirects to login.
func requireSession(w http.ResponseWriter, r *http.Request) (session.Session, *workspace, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return session.Session{}, nil, false
	}
	return sess, currentWorkspace(sess), true
}

// requestContext builds the backend credentials for a session.
func requestContext(sess session.Session) backend.RequestContext {
	return backend.RequestContext{Token: sess.BackendToken, Actor: sess.AdminEmail}
}

func actorOf(r *http.Request, sess session.Session) orchestrators.Actor {
	return orchestrators.Actor{Email: sess.AdminEmail, IP: clientIP(r)}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleBackendAuth ends the session when the backend rejected its token.
// POST: returns true when a redirect to /login has been written
func handleBackendAuth(w http.ResponseWriter, r *http.Request, sess session.Session, err error) bool {
	if !backend.IsUnauthorized(err) {
		return false
	}
	slog.Warn("backend_token_rejected", "email", sess.AdminEmail)
	if delErr := app.Sessions.Delete(r.Context(), sess.ID); delErr != nil {
		slog.Error("session_delete_failed", "error", delErr)
	}
	workspaces.drop(sess.ID)
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login?expired=1", http.StatusSeeOther)
	return true
}

// redirectBack sends the browser to target after a POST.
func redirectBack(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(backend.DateLayout)
}

// fieldError returns the message for field in errs, which may be nil or any
// validation.Errors value.
func fieldError(errs any, field string) string {
	e, ok := errs.(validation.Errors)
	if !ok || e == nil {
		return ""
	}
	return e[field]
}

func encodeQuery(pairs ...string) template.URL {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			q.Set(pairs[i], pairs[i+1])
		}
	}
	return template.URL(q.Encode())
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// errorNotice turns any error into notification text.
func errorNotice(prefix string, err error) string {
	if verrs, ok := validation.As(err); ok {
		msgs := make([]string, 0, len(verrs))
		for _, m := range verrs {
			msgs = append(msgs, m)
		}
		sort.Strings(msgs)
		return prefix + ": " + strings.Join(msgs, "; ")
	}
	return prefix + ": " + backend.Message(err)
}
