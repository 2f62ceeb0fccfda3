package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/form"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/rateplan"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/submission"
)

// formDecoder maps posted form values onto the structs below. Field names
// follow the Go field names; nested values use "Primary.Name" and
// "Dependents[0].Member.Name".
var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return backend.ParseDate(vals[0]), nil
	}, time.Time{})
	return d
}

// decodeForm parses the request body into v.
func decodeForm(r *http.Request, v any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return formDecoder.Decode(v, r.PostForm)
}

// dependentForm is one family row on the member form.
type dependentForm struct {
	Ref    string // record.Ref.String()
	Member member.Member
}

// familyForm is the member dialog: a primary and its family rows.
type familyForm struct {
	Mode       string
	Primary    member.Member
	Dependents []dependentForm
	Op         string // "add" or "remove:<index>" on /members/family
}

// mode returns the submission mode, defaulting to create.
func (f familyForm) mode() submission.Mode {
	if submission.Mode(f.Mode) == submission.ModeEdit {
		return submission.ModeEdit
	}
	return submission.ModeCreate
}

// rows converts the family rows for submission. Rows with an unreadable
// reference are treated as new.
func (f familyForm) rows() []orchestrators.FamilyRow {
	out := make([]orchestrators.FamilyRow, 0, len(f.Dependents))
	for _, d := range f.Dependents {
		ref, err := record.ParseRef(d.Ref)
		if err != nil {
			ref = record.Local()
		}
		out = append(out, orchestrators.FamilyRow{Ref: ref, Member: d.Member})
	}
	return out
}

// applyOp adds a blank dependent or removes a local one.
// POST: persisted rows are never removed
func (f *familyForm) applyOp() {
	op := strings.TrimSpace(f.Op)
	switch {
	case op == "add":
		f.Dependents = append(f.Dependents, dependentForm{
			Ref:    record.Local().String(),
			Member: member.NewDependent(f.Primary),
		})
	case strings.HasPrefix(op, "remove:"):
		i, err := strconv.Atoi(strings.TrimPrefix(op, "remove:"))
		if err != nil || i < 0 || i >= len(f.Dependents) {
			return
		}
		ref, err := record.ParseRef(f.Dependents[i].Ref)
		if err == nil && !ref.IsLocal() {
			return
		}
		f.Dependents = append(f.Dependents[:i], f.Dependents[i+1:]...)
	}
	f.Op = ""
}

// organizationForm is one posted organization row.
type organizationForm struct {
	Ref  string
	Name string
	Type string
}

func (f organizationForm) row() (organization.Organization, error) {
	ref, err := record.ParseRef(f.Ref)
	if err != nil {
		return organization.Organization{}, err
	}
	return organization.Organization{Ref: ref, Name: f.Name, Type: f.Type}, nil
}

// eventForm is one posted event row.
type eventForm struct {
	Ref      string
	OrgID    string
	Name     string
	Date     time.Time
	AltDate  time.Time
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Active   bool
}

func (f eventForm) row() (event.Event, error) {
	ref, err := record.ParseRef(f.Ref)
	if err != nil {
		return event.Event{}, err
	}
	return event.Event{
		Ref:      ref,
		OrgID:    strings.TrimSpace(f.OrgID),
		Name:     f.Name,
		Date:     f.Date,
		AltDate:  f.AltDate,
		Address1: strings.TrimSpace(f.Address1),
		Address2: strings.TrimSpace(f.Address2),
		City:     strings.TrimSpace(f.City),
		State:    f.State,
		Zip:      strings.TrimSpace(f.Zip),
		Active:   f.Active,
	}, nil
}

// ratePlanForm is one posted rate plan row.
type ratePlanForm struct {
	Ref           string
	Name          string
	Code          string
	EffectiveDate time.Time
	EndDate       time.Time
	AdultCount    int
	ChildCount    int
	AdultAmount   float64
	ChildAmount   float64
}

func (f ratePlanForm) row() (rateplan.RatePlan, error) {
	ref, err := record.ParseRef(f.Ref)
	if err != nil {
		return rateplan.RatePlan{}, err
	}
	return rateplan.RatePlan{
		Ref:           ref,
		Name:          f.Name,
		Code:          f.Code,
		EffectiveDate: f.EffectiveDate,
		EndDate:       f.EndDate,
		AdultCount:    f.AdultCount,
		ChildCount:    f.ChildCount,
		AdultAmount:   f.AdultAmount,
		ChildAmount:   f.ChildAmount,
	}, nil
}

// emailForm is the bulk email composer.
type emailForm struct {
	RecipientIDs []string
	All          bool // send to every member matching Q and Status
	Q            string
	Status       string
	TemplateID   string
	Subject      string
	Body         string
}

// templateForm is the template editor.
type templateForm struct {
	ID      string
	Name    string
	Subject string
	Body    string
}
