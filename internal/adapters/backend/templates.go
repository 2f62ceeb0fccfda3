package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"memberdesk/internal/domain/emailtemplate"
)

const templatesPath = "/email-template"

type rawTemplate struct {
	ID        flexString `json:"id"`
	Name      flexString `json:"name"`
	Subject   flexString `json:"subject"`
	Body      string     `json:"body"`
	CreatedAt flexString `json:"createdAt"`
	UpdatedAt flexString `json:"updatedAt"`
}

type templatePayload struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ListTemplates returns every template matching search. The template
// endpoint is not paginated.
func (c *Client) ListTemplates(ctx context.Context, rc RequestContext, search string) ([]emailtemplate.Template, error) {
	var resp struct {
		Data []rawTemplate `json:"data"`
	}
	if err := c.do(ctx, rc, http.MethodGet, templatesPath, url.Values{"search": {search}}, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]emailtemplate.Template, 0, len(resp.Data))
	for _, r := range resp.Data {
		out = append(out, emailtemplate.Template{
			ID:        r.ID.String(),
			Name:      r.Name.String(),
			Subject:   r.Subject.String(),
			Body:      r.Body,
			CreatedAt: ParseDate(r.CreatedAt.String()),
			UpdatedAt: ParseDate(r.UpdatedAt.String()),
		})
	}
	return out, nil
}

// CreateTemplate stores a new template. The backend echoes the saved
// fields; the id is picked up on the next listing.
func (c *Client) CreateTemplate(ctx context.Context, rc RequestContext, t emailtemplate.Template) (emailtemplate.Template, error) {
	var resp struct {
		Data struct {
			ID flexString `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, rc, http.MethodPost, templatesPath, nil, templatePayload{Name: t.Name, Subject: t.Subject, Body: t.Body}, &resp); err != nil {
		return t, err
	}
	t.ID = resp.Data.ID.String()
	return t, nil
}

// UpdateTemplate replaces a template.
// PRE: t.ID is non-empty
func (c *Client) UpdateTemplate(ctx context.Context, rc RequestContext, t emailtemplate.Template) error {
	if t.ID == "" {
		return fmt.Errorf("update template: %w", ErrMissingID)
	}
	return c.do(ctx, rc, http.MethodPut, templatesPath, url.Values{"id": {t.ID}}, templatePayload{Name: t.Name, Subject: t.Subject, Body: t.Body}, nil)
}

// DeleteTemplate removes a template.
func (c *Client) DeleteTemplate(ctx context.Context, rc RequestContext, id string) error {
	return c.do(ctx, rc, http.MethodDelete, templatesPath, url.Values{"id": {id}}, nil, nil)
}
