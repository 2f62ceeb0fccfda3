package record

import (
	"errors"
	"testing"
)

func TestLocal_IsUniqueAndLocal(t *testing.T) {
	a, b := Local(), Local()
	if !a.IsLocal() || !b.IsLocal() {
		t.Fatal("Local() produced a persisted ref")
	}
	if a.ID() == b.ID() {
		t.Errorf("two local refs share id %q", a.ID())
	}
	if _, ok := a.BackendID(); ok {
		t.Error("BackendID reported ok for a local ref")
	}
}

func TestPersisted_BackendID(t *testing.T) {
	r := Persisted("1712345678901")
	if r.IsLocal() {
		t.Error("numeric backend id must not be treated as local")
	}
	id, ok := r.BackendID()
	if !ok || id != "1712345678901" {
		t.Errorf("BackendID = (%q, %v)", id, ok)
	}
}

// TestParseRef verifies String/ParseRef agree for both variants.
func TestParseRef(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantLocal bool
		wantID    string
		wantErr   error
	}{
		{"persisted", "ORG-42", false, "ORG-42", nil},
		{"local", "local:abc", true, "abc", nil},
		{"trimmed", "  7 ", false, "7", nil},
		{"empty", "", false, "", ErrEmptyRef},
		{"bare prefix", "local:", false, "", ErrEmptyRef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.IsLocal() != tt.wantLocal || got.ID() != tt.wantID {
				t.Errorf("got (%v, %q), want (%v, %q)", got.IsLocal(), got.ID(), tt.wantLocal, tt.wantID)
			}
		})
	}

	l := Local()
	back, err := ParseRef(l.String())
	if err != nil || back != l {
		t.Errorf("round trip of %v gave %v, %v", l, back, err)
	}
}
