package web

import (
	"net/http"
	"strings"
	"time"

	auditStore "memberdesk/internal/adapters/storage/audit"
	"memberdesk/internal/domain/audit"
)

// auditPageSize is how many audit events the log shows.
const auditPageSize = 200

// handleAdminAudit lists recent audit events, optionally filtered.
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if app.Audit == nil {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   audit.Category(q.Get("category")),
		Action:     audit.Action(q.Get("action")),
		ActorEmail: strings.ToLower(strings.TrimSpace(q.Get("actor"))),
	}
	if d, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		filter.From = d
	}
	if d, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		filter.To = d.Add(24*time.Hour - time.Nanosecond)
	}

	events, err := app.Audit.List(r.Context(), filter, auditPageSize)
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "audit.html", map[string]any{
		"Events":     events,
		"Filter":     filter,
		"From":       q.Get("from"),
		"To":         q.Get("to"),
		"Categories": audit.Categories,
		"Actions": []audit.Action{
			audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete, audit.ActionLogin,
			audit.ActionLogout, audit.ActionImport, audit.ActionExport, audit.ActionSend,
		},
	})
}

// handleAdminPerf shows request, query and backend timings for the last hour.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if app.Perf == nil {
		http.NotFound(w, r)
		return
	}
	window := time.Hour
	if d, err := time.ParseDuration(r.URL.Query().Get("window")); err == nil && d > 0 {
		window = d
	}
	snap := app.Perf.Snapshot(time.Now().Add(-window), 10)
	renderTemplate(w, r, "perf.html", map[string]any{
		"Snapshot": snap,
		"Window":   window.String(),
	})
}
