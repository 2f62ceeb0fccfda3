package rateplan

import (
	"strings"
	"time"

	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/validation"
)

// RatePlan prices admission to an event.
// INVARIANT: EndDate is not before EffectiveDate
type RatePlan struct {
	Ref           record.Ref
	Name          string    `validate:"required,max=120" label:"Rate plan name"`
	Code          string    `validate:"required,max=20" label:"Rate plan code"`
	EffectiveDate time.Time `validate:"required" label:"Effective date"`
	EndDate       time.Time `validate:"required" label:"End date"`
	AdultCount    int       `validate:"gte=0" label:"Adult count"`
	ChildCount    int       `validate:"gte=0" label:"Child count"`
	AdultAmount   float64   `validate:"gte=0" label:"Adult amount"`
	ChildAmount   float64   `validate:"gte=0" label:"Child amount"`
	CreatedAt     time.Time
}

// New returns an unsaved rate plan effective today.
// POST: Ref.IsLocal() is true
func New(today time.Time) RatePlan {
	d := today.Truncate(24 * time.Hour)
	return RatePlan{Ref: record.Local(), EffectiveDate: d, EndDate: d, AdultCount: 1}
}

// Validate checks if the RatePlan has valid data.
// PRE: none
// POST: returns nil or validation.Errors
func (r *RatePlan) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	errs, _ := validation.As(validation.Struct(r))
	if errs == nil {
		errs = validation.Errors{}
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.EffectiveDate) {
		errs.Add("EndDate", "End date must not be before the effective date")
	}
	return errs.OrNil()
}

// Total returns the price for the plan's party size.
func (r RatePlan) Total() float64 {
	return float64(r.AdultCount)*r.AdultAmount + float64(r.ChildCount)*r.ChildAmount
}
