package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/record"
)

const organizationsPath = "/organizations"

type rawOrganization struct {
	OrgID     flexString `json:"org_id"`
	Name      flexString `json:"org_name"`
	Slug      flexString `json:"org_slug"`
	Type      flexString `json:"org_type"`
	CreatedAt flexString `json:"created_at"`
	UpdatedAt flexString `json:"updated_at"`
}

func (r rawOrganization) toOrganization() organization.Organization {
	return organization.Organization{
		Ref:       record.Persisted(r.OrgID.String()),
		Name:      r.Name.String(),
		Slug:      r.Slug.String(),
		Type:      r.Type.String(),
		CreatedAt: ParseDate(r.CreatedAt.String()),
		UpdatedAt: ParseDate(r.UpdatedAt.String()),
	}
}

type organizationPayload struct {
	Name string `json:"org_name"`
	Type string `json:"org_type"`
}

// ListOrganizations fetches one page of organizations.
func (c *Client) ListOrganizations(ctx context.Context, rc RequestContext, q ListQuery) (Page[organization.Organization], error) {
	var raw rawListing
	if err := c.do(ctx, rc, http.MethodGet, organizationsPath, q.values("lastKey"), nil, &raw); err != nil {
		return Page[organization.Organization]{}, err
	}
	p, err := normalizePage(raw, effectiveLimit(q), rawOrganization.toOrganization)
	if err != nil {
		return p, fmt.Errorf("GET %s: decode organizations: %w", organizationsPath, err)
	}
	return p, nil
}

// WalkOrganizations calls fn for every organization matching q.
func (c *Client) WalkOrganizations(ctx context.Context, rc RequestContext, q ListQuery, fn func(organization.Organization) error) error {
	return walk(ctx, q, func(ctx context.Context, q ListQuery) (Page[organization.Organization], error) {
		return c.ListOrganizations(ctx, rc, q)
	}, fn)
}

// CreateOrganization stores a new organization and returns its id and slug.
// POST: ErrMissingID when the backend omits org_id
func (c *Client) CreateOrganization(ctx context.Context, rc RequestContext, o organization.Organization) (organization.Organization, error) {
	var resp struct {
		OrgID flexString `json:"org_id"`
		Slug  flexString `json:"org_slug"`
	}
	if err := c.do(ctx, rc, http.MethodPost, organizationsPath, nil, organizationPayload{Name: o.Name, Type: o.Type}, &resp); err != nil {
		return o, err
	}
	if resp.OrgID == "" {
		return o, fmt.Errorf("POST %s: %w", organizationsPath, ErrMissingID)
	}
	o.Ref = record.Persisted(resp.OrgID.String())
	o.Slug = resp.Slug.String()
	return o, nil
}

// UpdateOrganization replaces an organization.
// PRE: o.Ref is persisted
func (c *Client) UpdateOrganization(ctx context.Context, rc RequestContext, o organization.Organization) error {
	id, ok := o.Ref.BackendID()
	if !ok {
		return fmt.Errorf("update organization: %w", ErrMissingID)
	}
	return c.do(ctx, rc, http.MethodPut, organizationsPath, url.Values{"org_id": {id}}, organizationPayload{Name: o.Name, Type: o.Type}, nil)
}

// DeleteOrganization removes an organization.
func (c *Client) DeleteOrganization(ctx context.Context, rc RequestContext, id string) error {
	return c.do(ctx, rc, http.MethodDelete, organizationsPath, url.Values{"org_id": {id}}, nil, nil)
}
