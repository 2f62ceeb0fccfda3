package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name  string    `validate:"required,min=2" label:"Full name"`
	Phone string    `validate:"omitempty,phone"`
	State string    `validate:"omitempty,usstate"`
	When  time.Time `validate:"omitempty,notfuture" label:"Date"`
}

func TestStruct_KeysByFieldAndUsesLabel(t *testing.T) {
	err := Struct(sample{Name: "", Phone: "123", State: "QQ"})
	ve, ok := As(err)
	if !ok {
		t.Fatalf("Struct() = %v, want Errors", err)
	}
	if ve["Name"] != "Full name is required" {
		t.Errorf("Name message = %q", ve["Name"])
	}
	if !strings.HasPrefix(ve["Phone"], "Invalid phone") {
		t.Errorf("Phone message = %q", ve["Phone"])
	}
	if ve["State"] != "Unknown state" {
		t.Errorf("State message = %q", ve["State"])
	}
}

func TestStruct_NotFuture(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	Now = func() time.Time { return fixed }
	defer func() { Now = time.Now }()

	if err := Struct(sample{Name: "Al", When: fixed}); err != nil {
		t.Errorf("same instant rejected: %v", err)
	}
	ve, _ := As(Struct(sample{Name: "Al", When: fixed.Add(time.Hour)}))
	if ve["When"] != "Date cannot be in the future" {
		t.Errorf("When message = %q", ve["When"])
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(sample{Name: "Al", Phone: "+1 555 123 4567", State: "ny"}); err != nil {
		t.Errorf("Struct() = %v", err)
	}
}

func TestIsPhone(t *testing.T) {
	tests := map[string]bool{
		"5551234567":        true,
		"+1 (555) 123-4567": true,
		"555.123.4567":      true,
		"12345":             false,
		"":                  false,
		"555-123-456x":      false,
		"1234567890123456":  false,
	}
	for in, want := range tests {
		if got := IsPhone(in); got != want {
			t.Errorf("IsPhone(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestErrors_OrNil(t *testing.T) {
	if (Errors{}).OrNil() != nil {
		t.Error("empty Errors should be nil")
	}
	err := Errors{}.Add("Subject", "Subject is required").OrNil()
	var ve Errors
	if !errors.As(err, &ve) || ve["Subject"] == "" {
		t.Errorf("OrNil() = %v", err)
	}
}
