// Package record distinguishes rows that exist only in the browser session
// from rows the backend has already stored.
package record

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const localPrefix = "local:"

// ErrEmptyRef is returned when parsing an empty reference.
var ErrEmptyRef = errors.New("record reference is empty")

// Ref identifies a row either by a temporary local id or by the id the
// backend assigned to it. The zero Ref is invalid.
type Ref struct {
	id    string
	local bool
}

// Local returns a fresh reference for a row that has not been saved.
// POST: IsLocal() is true and ID() is unique
func Local() Ref {
	return Ref{id: uuid.NewString(), local: true}
}

// Persisted returns a reference for a row stored by the backend under id.
// PRE: id is non-empty
func Persisted(id string) Ref {
	return Ref{id: id}
}

// IsLocal reports whether the row has never been saved.
func (r Ref) IsLocal() bool {
	return r.local
}

// IsZero reports whether r was never assigned.
func (r Ref) IsZero() bool {
	return r.id == ""
}

// ID returns the backend id, or the temporary id for local rows.
func (r Ref) ID() string {
	return r.id
}

// BackendID returns the backend id and true, or "" and false for local rows.
func (r Ref) BackendID() (string, bool) {
	if r.local || r.id == "" {
		return "", false
	}
	return r.id, true
}

// String encodes r for form round-trips; see ParseRef.
func (r Ref) String() string {
	if r.local {
		return localPrefix + r.id
	}
	return r.id
}

// ParseRef decodes the output of String.
// PRE: s was produced by Ref.String
// POST: returns ErrEmptyRef for empty input
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, ErrEmptyRef
	}
	if rest, ok := strings.CutPrefix(s, localPrefix); ok {
		if rest == "" {
			return Ref{}, ErrEmptyRef
		}
		return Ref{id: rest, local: true}, nil
	}
	return Persisted(s), nil
}
