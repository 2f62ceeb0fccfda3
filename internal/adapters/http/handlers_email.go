package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"memberdesk/internal/adapters/storage/session"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/email"
	"memberdesk/internal/domain/emailtemplate"
	"memberdesk/internal/domain/validation"
)

// isBulkValidation reports whether err came from BulkEmail.Validate.
func isBulkValidation(err error) bool {
	return errors.Is(err, email.ErrNoRecipients) ||
		errors.Is(err, email.ErrTooMany) ||
		errors.Is(err, email.ErrEmptySubject) ||
		errors.Is(err, email.ErrEmptyBody)
}

// loadTemplates lists saved templates for the picker. A failure is flashed
// and an empty list returned.
func loadTemplates(w http.ResponseWriter, r *http.Request, sess session.Session, ws *workspace) ([]emailtemplate.Template, bool) {
	templates, err := app.Backend.ListTemplates(r.Context(), requestContext(sess), "")
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return nil, false
		}
		ws.flash(noticeError, errorNotice("Could not load email templates", err))
		return nil, true
	}
	return templates, true
}

// renderCompose shows the bulk email composer for f.
func renderCompose(w http.ResponseWriter, r *http.Request, status int, f emailForm, templates []emailtemplate.Template) {
	renderStatus(w, r, status, "email_compose.html", map[string]any{
		"Form":       f,
		"Templates":  templates,
		"CustomID":   emailtemplate.CustomID,
		"Recipients": len(f.RecipientIDs),
		"Dispatch":   app.Config.EmailDispatch,
	})
}

// handleEmailSend shows the composer (GET) and sends the email (POST).
// The composer is opened from the member list with the selected
// RecipientIDs, or with All set to address every member matching q and
// status. Choosing a template reloads the composer with its subject and
// body; the custom choice clears both.
func handleEmailSend(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	templates, ok := loadTemplates(w, r, sess, ws)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		var f emailForm
		if err := formDecoder.Decode(&f, r.URL.Query()); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Has("pick") {
			subject, body, err := orchestrators.PickTemplate(templates, f.TemplateID)
			if err != nil {
				ws.flash(noticeError, "That template no longer exists.")
				f.TemplateID = emailtemplate.CustomID
			}
			f.Subject, f.Body = subject, body
		}
		renderCompose(w, r, http.StatusOK, f, templates)
		return
	}

	var f emailForm
	if err := decodeForm(r, &f); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	filters := listutil.ParseFilters(url.Values{"q": {f.Q}, "status": {f.Status}}, memberStatuses)
	res, err := orchestrators.ExecuteSendBulkEmail(r.Context(), requestContext(sess), orchestrators.SendBulkEmailInput{
		Email: email.BulkEmail{
			RecipientIDs: f.RecipientIDs,
			Subject:      f.Subject,
			Body:         f.Body,
			TemplateID:   f.TemplateID,
		},
		AllFiltered: f.All,
		Filters:     filters,
		Actor:       actorOf(r, sess),
	}, orchestrators.SendBulkEmailDeps{
		Dispatch:  app.Config.EmailDispatch,
		Backend:   app.Backend,
		Sender:    app.Sender,
		Members:   app.Backend,
		Templates: app.Backend,
		Observer:  bulkEmailObserver(),
		Audit:     auditRecorder(),
		ReplyTo:   app.Config.ReplyTo,
	})
	switch {
	case err == nil:
	case isBulkValidation(err):
		ws.flash(noticeError, orchestrators.ValidationNotice(err))
		renderCompose(w, r, http.StatusUnprocessableEntity, f, templates)
		return
	case handleBackendAuth(w, r, sess, err):
		return
	case errors.Is(err, email.ErrNoDeliverables):
		ws.flash(noticeError, orchestrators.NoticeEmailFailed+" "+strings.TrimSuffix(capitalize(err.Error()), ".")+".")
		renderCompose(w, r, http.StatusUnprocessableEntity, f, templates)
		return
	default:
		ws.flash(noticeError, orchestrators.NoticeEmailFailed)
		renderCompose(w, r, http.StatusBadGateway, f, templates)
		return
	}

	kind := noticeSuccess
	if res.Notice() != orchestrators.NoticeEmailSent {
		kind = noticeError
	}
	ws.flash(kind, res.Notice())
	if res.Skipped > 0 {
		ws.flash(noticeInfo, fmt.Sprintf("%d member(s) without an email address were skipped.", res.Skipped))
	}
	redirectBack(w, r, "/members")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// handleTemplates lists saved templates with an editor for one of them.
func handleTemplates(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	templates, err := app.Backend.ListTemplates(r.Context(), requestContext(sess), search)
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		ws.flash(noticeError, errorNotice("Could not load email templates", err))
	}

	var editing templateForm
	if id := r.URL.Query().Get("id"); id != "" {
		if t, err := emailtemplate.Find(templates, id); err == nil {
			editing = templateForm{ID: t.ID, Name: t.Name, Subject: t.Subject, Body: t.Body}
		}
	}
	renderTemplate(w, r, "email_templates.html", map[string]any{
		"Templates": templates,
		"Search":    search,
		"Form":      editing,
	})
}

// handleTemplateSave creates or updates a template.
func handleTemplateSave(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	var f templateForm
	if err := decodeForm(r, &f); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	saved, err := orchestrators.ExecuteSaveTemplate(r.Context(), requestContext(sess), orchestrators.SaveTemplateInput{
		Template: emailtemplate.Template{ID: f.ID, Name: f.Name, Subject: f.Subject, Body: f.Body},
		Actor:    actorOf(r, sess),
	}, orchestrators.TemplateDeps{Templates: app.Backend, Audit: auditRecorder()})
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		status := http.StatusBadGateway
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			status = http.StatusUnprocessableEntity
		}
		ws.flash(noticeError, errorNotice("Failed to save template", err))
		renderStatus(w, r, status, "email_templates.html", map[string]any{
			"Form":   f,
			"Errors": verrs,
		})
		return
	}
	ws.flash(noticeSuccess, fmt.Sprintf("Template %q saved.", saved.Name))
	redirectBack(w, r, "/email-templates?id="+saved.ID)
}

// handleTemplateDelete removes a template.
func handleTemplateDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("Name")
	err := orchestrators.ExecuteDeleteTemplate(r.Context(), requestContext(sess), orchestrators.DeleteTemplateInput{
		ID:    r.PostFormValue("ID"),
		Name:  name,
		Actor: actorOf(r, sess),
	}, orchestrators.TemplateDeps{Templates: app.Backend, Audit: auditRecorder()})
	switch {
	case err == nil:
		ws.flash(noticeSuccess, fmt.Sprintf("Template %q deleted.", name))
	case handleBackendAuth(w, r, sess, err):
		return
	default:
		ws.flash(noticeError, errorNotice("Failed to delete template", err))
	}
	redirectBack(w, r, "/email-templates")
}

// handleTemplatePreview renders a draft body as recipients will see it.
func handleTemplatePreview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var f templateForm
	if err := decodeForm(r, &f); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	preview, err := orchestrators.ExecutePreviewTemplate(f.Subject, f.Body)
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "email_templates.html", map[string]any{
		"Form":    f,
		"Preview": preview,
	})
}
