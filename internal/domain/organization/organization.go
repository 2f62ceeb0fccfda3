package organization

import (
	"strings"
	"time"

	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/validation"
)

// Types offered when creating an organization.
var Types = []string{"Non-Profit", "Temple", "Community", "School", "Business"}

// Organization is the canonical organization record.
type Organization struct {
	Ref       record.Ref
	Name      string `validate:"required,min=2,max=120" label:"Organization name"`
	Slug      string
	Type      string `validate:"required,max=60" label:"Organization type"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns an unsaved organization.
// POST: Ref.IsLocal() is true
func New() Organization {
	return Organization{Ref: record.Local()}
}

// Validate checks if the Organization has valid data.
// PRE: none
// POST: returns nil or validation.Errors
func (o *Organization) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	o.Type = strings.TrimSpace(o.Type)
	return validation.Struct(o)
}
