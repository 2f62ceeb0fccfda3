package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/rateplan"
	"memberdesk/internal/domain/record"
)

// RowResource adapts one backend resource to inline row editing.
type RowResource[T any] struct {
	Name     string // singular, for notices ("organization")
	Category audit.Category
	RefOf    func(T) record.Ref
	Label    func(T) string
	Validate func(*T) error
	Create   func(ctx context.Context, rc backend.RequestContext, row T) (T, error)
	Update   func(ctx context.Context, rc backend.RequestContext, row T) error
	Delete   func(ctx context.Context, rc backend.RequestContext, id string) error
}

// Drafts holds one session's unsaved rows in insertion order.
type Drafts[T any] struct {
	mu    sync.Mutex
	refOf func(T) record.Ref
	order []string
	rows  map[string]T
}

// NewDrafts creates an empty draft set.
func NewDrafts[T any](refOf func(T) record.Ref) *Drafts[T] {
	return &Drafts[T]{refOf: refOf, rows: map[string]T{}}
}

// Put adds or replaces a local row.
// PRE: refOf(row).IsLocal()
func (d *Drafts[T]) Put(row T) {
	key := d.refOf(row).String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rows[key]; !ok {
		d.order = append(d.order, key)
	}
	d.rows[key] = row
}

// Get returns the draft for ref.
func (d *Drafts[T]) Get(ref record.Ref) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.rows[ref.String()]
	return row, ok
}

// Remove drops the draft for ref. Removing an unknown ref is a no-op.
func (d *Drafts[T]) Remove(ref record.Ref) {
	key := ref.String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rows[key]; !ok {
		return
	}
	delete(d.rows, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// List returns the drafts, newest first, the way new rows appear at the top of a table.
func (d *Drafts[T]) List() []T {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]T, 0, len(d.order))
	for i := len(d.order) - 1; i >= 0; i-- {
		out = append(out, d.rows[d.order[i]])
	}
	return out
}

// Len returns the number of drafts.
func (d *Drafts[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// SaveRowInput carries one edited row.
type SaveRowInput[T any] struct {
	Row   T
	Actor Actor
}

// SaveRowDeps holds dependencies for ExecuteSaveRow.
type SaveRowDeps[T any] struct {
	Resource RowResource[T]
	Drafts   *Drafts[T]
	Audit    AuditRecorder
}

// SaveRowResult reports what ExecuteSaveRow did.
type SaveRowResult[T any] struct {
	Row     T
	Created bool
}

// ExecuteSaveRow validates a row and creates it (local rows) or updates it
// (persisted rows).
// PRE: RefOf(Row) is not zero
// POST: a created row leaves the drafts and carries its persisted Ref; a local
// row that fails validation or creation stays in the drafts with the edits
func ExecuteSaveRow[T any](ctx context.Context, rc backend.RequestContext, input SaveRowInput[T], deps SaveRowDeps[T]) (SaveRowResult[T], error) {
	res := deps.Resource
	row := input.Row
	ref := res.RefOf(row)
	if ref.IsZero() {
		return SaveRowResult[T]{}, fmt.Errorf("save %s: %w", res.Name, record.ErrEmptyRef)
	}
	if err := res.Validate(&row); err != nil {
		if ref.IsLocal() && deps.Drafts != nil {
			deps.Drafts.Put(row)
		}
		return SaveRowResult[T]{Row: row}, err
	}

	if !ref.IsLocal() {
		if err := res.Update(ctx, rc, row); err != nil {
			slog.Warn("row_update_failed", "resource", res.Name, "id", ref.ID(), "error", err)
			return SaveRowResult[T]{Row: row}, err
		}
		recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, res.Category, audit.ActionUpdate).
			WithResource(res.Name, ref.ID()).
			WithDescription(res.Label(row)))
		return SaveRowResult[T]{Row: row}, nil
	}

	created, err := res.Create(ctx, rc, row)
	if err != nil {
		if deps.Drafts != nil {
			deps.Drafts.Put(row)
		}
		slog.Warn("row_create_failed", "resource", res.Name, "error", err)
		return SaveRowResult[T]{Row: row}, err
	}
	if deps.Drafts != nil {
		deps.Drafts.Remove(ref)
	}
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, res.Category, audit.ActionCreate).
		WithResource(res.Name, res.RefOf(created).ID()).
		WithDescription(res.Label(created)))
	return SaveRowResult[T]{Row: created, Created: true}, nil
}

// DeleteRowInput identifies the row to delete.
type DeleteRowInput struct {
	Ref   record.Ref
	Label string
	Actor Actor
}

// ExecuteDeleteRow removes a row. Local rows are discarded without a
// backend call; persisted rows are deleted on the backend.
// POST: returns true when the backend was called
func ExecuteDeleteRow[T any](ctx context.Context, rc backend.RequestContext, input DeleteRowInput, deps SaveRowDeps[T]) (bool, error) {
	if input.Ref.IsZero() {
		return false, record.ErrEmptyRef
	}
	if input.Ref.IsLocal() {
		if deps.Drafts != nil {
			deps.Drafts.Remove(input.Ref)
		}
		return false, nil
	}
	res := deps.Resource
	if err := res.Delete(ctx, rc, input.Ref.ID()); err != nil {
		slog.Warn("row_delete_failed", "resource", res.Name, "id", input.Ref.ID(), "error", err)
		return true, err
	}
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, res.Category, audit.ActionDelete).
		WithResource(res.Name, input.Ref.ID()).
		WithDescription(input.Label).
		WithSeverity(audit.SeverityWarning))
	return true, nil
}

// OrganizationBackend is the backend surface for organization rows.
type OrganizationBackend interface {
	CreateOrganization(ctx context.Context, rc backend.RequestContext, o organization.Organization) (organization.Organization, error)
	UpdateOrganization(ctx context.Context, rc backend.RequestContext, o organization.Organization) error
	DeleteOrganization(ctx context.Context, rc backend.RequestContext, id string) error
}

// OrganizationRows adapts b to row editing.
func OrganizationRows(b OrganizationBackend) RowResource[organization.Organization] {
	return RowResource[organization.Organization]{
		Name:     "organization",
		Category: audit.CategoryOrganization,
		RefOf:    func(o organization.Organization) record.Ref { return o.Ref },
		Label:    func(o organization.Organization) string { return o.Name },
		Validate: (*organization.Organization).Validate,
		Create:   b.CreateOrganization,
		Update:   b.UpdateOrganization,
		Delete:   b.DeleteOrganization,
	}
}

// EventBackend is the backend surface for event rows.
type EventBackend interface {
	CreateEvent(ctx context.Context, rc backend.RequestContext, e event.Event) (event.Event, error)
	UpdateEvent(ctx context.Context, rc backend.RequestContext, e event.Event) error
	DeleteEvent(ctx context.Context, rc backend.RequestContext, id string) error
}

// EventRows adapts b to row editing.
func EventRows(b EventBackend) RowResource[event.Event] {
	return RowResource[event.Event]{
		Name:     "event",
		Category: audit.CategoryEvent,
		RefOf:    func(e event.Event) record.Ref { return e.Ref },
		Label:    func(e event.Event) string { return e.Name },
		Validate: (*event.Event).Validate,
		Create:   b.CreateEvent,
		Update:   b.UpdateEvent,
		Delete:   b.DeleteEvent,
	}
}

// RatePlanBackend is the backend surface for rate plan rows.
type RatePlanBackend interface {
	CreateRatePlan(ctx context.Context, rc backend.RequestContext, r rateplan.RatePlan) (rateplan.RatePlan, error)
	UpdateRatePlan(ctx context.Context, rc backend.RequestContext, r rateplan.RatePlan) error
	DeleteRatePlan(ctx context.Context, rc backend.RequestContext, id string) error
}

// RatePlanRows adapts b to row editing.
func RatePlanRows(b RatePlanBackend) RowResource[rateplan.RatePlan] {
	return RowResource[rateplan.RatePlan]{
		Name:     "rate plan",
		Category: audit.CategoryRatePlan,
		RefOf:    func(r rateplan.RatePlan) record.Ref { return r.Ref },
		Label:    func(r rateplan.RatePlan) string { return r.Name },
		Validate: (*rateplan.RatePlan).Validate,
		Create:   b.CreateRatePlan,
		Update:   b.UpdateRatePlan,
		Delete:   b.DeleteRatePlan,
	}
}
