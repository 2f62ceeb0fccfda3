package web

import (
	"net/http"
	"strings"
)

// handleParticipants shows the read-only event roster.
func handleParticipants(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	roster, err := app.Backend.ListParticipants(r.Context(), requestContext(sess), search)
	status := http.StatusOK
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		ws.flash(noticeError, errorNotice("Could not load participants", err))
		status = http.StatusBadGateway
	}
	renderStatus(w, r, status, "participants.html", map[string]any{
		"Roster": roster,
		"Counts": roster.CountByStatus(),
		"Search": search,
	})
}
