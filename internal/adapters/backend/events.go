package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/record"
)

const eventsPath = "/events"

type rawEvent struct {
	EventID   flexString `json:"event_id"`
	OrgID     flexString `json:"org_id"`
	Name      flexString `json:"event_name"`
	Slug      flexString `json:"event_slug"`
	Date      flexString `json:"event_date"`
	AltDate   flexString `json:"event_alt_date"`
	Address1  flexString `json:"address_ln1"`
	Address2  flexString `json:"address_ln2"`
	City      flexString `json:"city"`
	State     flexString `json:"state"`
	Zip       flexString `json:"zip"`
	Active    flexString `json:"active_flag"`
	CreatedAt flexString `json:"created_at"`
}

func (r rawEvent) toEvent() event.Event {
	return event.Event{
		Ref:       record.Persisted(r.EventID.String()),
		OrgID:     r.OrgID.String(),
		Name:      r.Name.String(),
		Slug:      r.Slug.String(),
		Date:      ParseDate(r.Date.String()),
		AltDate:   ParseDate(r.AltDate.String()),
		Address1:  r.Address1.String(),
		Address2:  r.Address2.String(),
		City:      r.City.String(),
		State:     r.State.String(),
		Zip:       r.Zip.String(),
		Active:    event.ParseActiveFlag(r.Active.String()),
		CreatedAt: ParseDate(r.CreatedAt.String()),
	}
}

type eventPayload struct {
	OrgID    string `json:"org_id"`
	Name     string `json:"event_name"`
	Date     string `json:"event_date"`
	AltDate  string `json:"event_alt_date,omitempty"`
	Address1 string `json:"address_ln1"`
	Address2 string `json:"address_ln2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Active   string `json:"active_flag"`
}

func newEventPayload(e event.Event) eventPayload {
	return eventPayload{
		OrgID:    e.OrgID,
		Name:     e.Name,
		Date:     formatDate(e.Date),
		AltDate:  formatDate(e.AltDate),
		Address1: e.Address1,
		Address2: e.Address2,
		City:     e.City,
		State:    e.State,
		Zip:      e.Zip,
		Active:   e.ActiveFlag(),
	}
}

// ListEvents fetches one page of events.
func (c *Client) ListEvents(ctx context.Context, rc RequestContext, q ListQuery) (Page[event.Event], error) {
	var raw rawListing
	if err := c.do(ctx, rc, http.MethodGet, eventsPath, q.values("lastKey"), nil, &raw); err != nil {
		return Page[event.Event]{}, err
	}
	p, err := normalizePage(raw, effectiveLimit(q), rawEvent.toEvent)
	if err != nil {
		return p, fmt.Errorf("GET %s: decode events: %w", eventsPath, err)
	}
	return p, nil
}

// CreateEvent stores a new event.
// POST: the returned event carries the backend id; ErrMissingID if none was returned
func (c *Client) CreateEvent(ctx context.Context, rc RequestContext, e event.Event) (event.Event, error) {
	var resp struct {
		EventID flexString `json:"event_id"`
	}
	if err := c.do(ctx, rc, http.MethodPost, eventsPath, nil, newEventPayload(e), &resp); err != nil {
		return e, err
	}
	if resp.EventID == "" {
		return e, fmt.Errorf("POST %s: %w", eventsPath, ErrMissingID)
	}
	e.Ref = record.Persisted(resp.EventID.String())
	return e, nil
}

// UpdateEvent replaces an event.
// PRE: e.Ref is persisted
func (c *Client) UpdateEvent(ctx context.Context, rc RequestContext, e event.Event) error {
	id, ok := e.Ref.BackendID()
	if !ok {
		return fmt.Errorf("update event: %w", ErrMissingID)
	}
	return c.do(ctx, rc, http.MethodPut, eventsPath, url.Values{"event_id": {id}}, newEventPayload(e), nil)
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, rc RequestContext, id string) error {
	return c.do(ctx, rc, http.MethodDelete, eventsPath, url.Values{"event_id": {id}}, nil, nil)
}
