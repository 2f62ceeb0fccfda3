// Package participant holds the read-only event participant listing.
package participant

import (
	"strings"
	"time"
)

// Participant is one registered attendee.
type Participant struct {
	Serial    int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	GuestType string
	Status    string
}

// FullName joins first and last name.
func (p Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Roster is the participant listing with its refresh time.
type Roster struct {
	LastUpdated  time.Time
	Participants []Participant
}

// CountByStatus tallies participants per status, case-insensitively.
func (r Roster) CountByStatus() map[string]int {
	out := make(map[string]int)
	for _, p := range r.Participants {
		out[strings.ToLower(strings.TrimSpace(p.Status))]++
	}
	return out
}
