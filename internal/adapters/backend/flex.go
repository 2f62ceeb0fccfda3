package backend

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// The backend is not consistent about JSON types: ids arrive as numbers or
// strings, amounts as numbers or "N/A", booleans as true or "yes". The flex
// types below accept every shape seen in practice.

// flexString accepts strings, numbers, booleans, objects and null.
// Non-string values keep their JSON text.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	default:
		*f = flexString(b)
	}
	return nil
}

// String returns the value as a Go string.
func (f flexString) String() string {
	return string(f)
}

// flexBool accepts JSON booleans, 0/1 and the strings true/yes/y/1.
type flexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexBool) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = flexBool(ParseBool(string(s)))
	return nil
}

// ParseBool reads the loose boolean spellings used by the backend and by
// spreadsheet imports.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

// flexInt accepts integers, floats and numeric strings; anything else is 0.
type flexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsNaN(v) {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// flexFloat accepts numbers and numeric strings; anything else is 0.
type flexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(string(s), "$"), 64)
	if err != nil || math.IsNaN(v) {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

// ParseDate reads any date layout the backend or a spreadsheet produces.
// POST: returns the zero time for empty or unrecognised input
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DateLayout is the wire format for dates sent to the backend.
const DateLayout = "2006-01-02"

// formatDate renders t in DateLayout, or "" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(vals ...flexString) string {
	for _, v := range vals {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
