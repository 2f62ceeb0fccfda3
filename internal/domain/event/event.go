package event

import (
	"strings"
	"time"

	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/validation"
)

// Event is the canonical event record.
// INVARIANT: AltDate, when set, is not before Date
type Event struct {
	Ref       record.Ref
	OrgID     string `validate:"required" label:"Organization"`
	Name      string `validate:"required,min=2,max=120" label:"Event name"`
	Slug      string
	Date      time.Time `validate:"required" label:"Event date"`
	AltDate   time.Time `label:"Alternate date"`
	Address1  string    `validate:"max=200" label:"Address line 1"`
	Address2  string    `validate:"max=200" label:"Address line 2"`
	City      string
	State     string `validate:"omitempty,usstate"`
	Zip       string `validate:"omitempty,min=5,max=10"`
	Active    bool
	CreatedAt time.Time
}

// New returns an unsaved, active event for orgID.
// POST: Ref.IsLocal() is true
func New(orgID string) Event {
	return Event{Ref: record.Local(), OrgID: orgID, Active: true}
}

// Validate checks if the Event has valid data.
// PRE: none
// POST: returns nil or validation.Errors
func (e *Event) Validate() error {
	e.Name = strings.TrimSpace(e.Name)
	e.State = strings.ToUpper(strings.TrimSpace(e.State))
	errs, _ := validation.As(validation.Struct(e))
	if errs == nil {
		errs = validation.Errors{}
	}
	if !e.AltDate.IsZero() && !e.Date.IsZero() && e.AltDate.Before(e.Date) {
		errs.Add("AltDate", "Alternate date must not be before the event date")
	}
	return errs.OrNil()
}

// ActiveFlag encodes Active the way the backend stores it.
func (e Event) ActiveFlag() string {
	if e.Active {
		return "Y"
	}
	return "N"
}

// ParseActiveFlag decodes the backend's active flag.
func ParseActiveFlag(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "TRUE", "1":
		return true
	}
	return false
}
