package event

import (
	"testing"
	"time"

	"memberdesk/internal/domain/validation"
)

func TestValidate(t *testing.T) {
	d := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := New("ORG1")
	e.Name = "Spring Mela"
	e.Date = d
	e.State = "tx"
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if e.State != "TX" {
		t.Errorf("State = %q", e.State)
	}

	e.AltDate = d.AddDate(0, 0, -1)
	ve, ok := validation.As(e.Validate())
	if !ok || ve["AltDate"] == "" {
		t.Errorf("expected AltDate error, got %v", ve)
	}

	bad := Event{}
	ve, _ = validation.As(bad.Validate())
	for _, f := range []string{"OrgID", "Name", "Date"} {
		if ve[f] == "" {
			t.Errorf("missing %s error in %v", f, ve)
		}
	}
}

func TestActiveFlag(t *testing.T) {
	for in, want := range map[string]bool{"Y": true, "y": true, "true": true, "N": false, "": false} {
		if got := ParseActiveFlag(in); got != want {
			t.Errorf("ParseActiveFlag(%q) = %v", in, got)
		}
	}
	if (Event{Active: true}).ActiveFlag() != "Y" || (Event{}).ActiveFlag() != "N" {
		t.Error("ActiveFlag encoding wrong")
	}
}

func TestNew_IsLocal(t *testing.T) {
	if !New("o").Ref.IsLocal() {
		t.Error("New event is not local")
	}
}
