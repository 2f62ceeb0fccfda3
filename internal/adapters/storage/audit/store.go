package audit

import (
	"context"
	"time"

	domain "memberdesk/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event.ID is non-empty
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events matching filter.
	// PRE: limit > 0
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// GetByID retrieves a specific audit event.
	// PRE: id is non-empty
	// POST: Returns the event or sql.ErrNoRows
	GetByID(ctx context.Context, id string) (domain.Event, error)
}

// Filter narrows List. Zero-valued fields do not filter.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ActorEmail string
	ResourceID string
	From       time.Time
	To         time.Time
}

var _ Store = (*SQLiteStore)(nil)
