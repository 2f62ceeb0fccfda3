package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/emailtemplate"
)

// TemplateStore is the backend's template collection.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, rc backend.RequestContext, t emailtemplate.Template) (emailtemplate.Template, error)
	UpdateTemplate(ctx context.Context, rc backend.RequestContext, t emailtemplate.Template) error
	DeleteTemplate(ctx context.Context, rc backend.RequestContext, id string) error
}

// SaveTemplateInput is a template from the editor. An empty ID creates.
type SaveTemplateInput struct {
	Template emailtemplate.Template
	Actor    Actor
}

// TemplateDeps holds dependencies for the template orchestrators.
type TemplateDeps struct {
	Templates TemplateStore
	Audit     AuditRecorder
}

// ExecuteSaveTemplate validates and stores a template.
// PRE: none
// POST: returns validation.Errors before any network call; the saved template carries an ID
func ExecuteSaveTemplate(ctx context.Context, rc backend.RequestContext, input SaveTemplateInput, deps TemplateDeps) (emailtemplate.Template, error) {
	t := input.Template
	if t.ID == emailtemplate.CustomID {
		t.ID = ""
	}
	if err := t.Validate(); err != nil {
		return t, err
	}

	action := audit.ActionUpdate
	if t.ID == "" {
		action = audit.ActionCreate
		created, err := deps.Templates.CreateTemplate(ctx, rc, t)
		if err != nil {
			return t, fmt.Errorf("create template: %w", err)
		}
		t = created
	} else if err := deps.Templates.UpdateTemplate(ctx, rc, t); err != nil {
		return t, fmt.Errorf("update template %s: %w", t.ID, err)
	}

	slog.Info("email_template_saved", "template_id", t.ID, "action", action)
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, audit.CategoryTemplate, action).
		WithResource("email_template", t.ID).
		WithDescription(t.Name))
	return t, nil
}

// DeleteTemplateInput names the template to remove.
type DeleteTemplateInput struct {
	ID    string
	Name  string
	Actor Actor
}

// ExecuteDeleteTemplate removes a saved template.
// PRE: ID is a saved template id
func ExecuteDeleteTemplate(ctx context.Context, rc backend.RequestContext, input DeleteTemplateInput, deps TemplateDeps) error {
	if input.ID == "" || input.ID == emailtemplate.CustomID {
		return emailtemplate.ErrNotFound
	}
	if err := deps.Templates.DeleteTemplate(ctx, rc, input.ID); err != nil {
		return fmt.Errorf("delete template %s: %w", input.ID, err)
	}
	slog.Info("email_template_deleted", "template_id", input.ID)
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, audit.CategoryTemplate, audit.ActionDelete).
		WithResource("email_template", input.ID).
		WithDescription(input.Name))
	return nil
}

// TemplatePreview is a rendered subject and body.
type TemplatePreview struct {
	Subject string
	HTML    string
}

// ExecutePreviewTemplate renders a draft body the way recipients will see it.
func ExecutePreviewTemplate(subject, body string) (TemplatePreview, error) {
	html, err := emailtemplate.RenderHTML(body)
	if err != nil {
		return TemplatePreview{}, fmt.Errorf("render preview: %w", err)
	}
	return TemplatePreview{Subject: subject, HTML: html}, nil
}

// PickTemplate returns the subject and body the composer shows after the
// template picker changes. The custom choice clears both.
// POST: returns emailtemplate.ErrNotFound for an unknown id
func PickTemplate(templates []emailtemplate.Template, id string) (subject, body string, err error) {
	if id == "" || id == emailtemplate.CustomID {
		return "", "", nil
	}
	t, err := emailtemplate.Find(templates, id)
	if err != nil {
		return "", "", err
	}
	return t.Subject, t.Body, nil
}
