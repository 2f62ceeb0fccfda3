// Package submission models the result of saving a primary member together
// with the family members that depend on it.
package submission

import (
	"errors"
	"fmt"
	"strings"
)

// Mode says whether the primary is being created or updated.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// State is a step of the submission lifecycle.
//
//	Idle -> SubmittingPrimary -> PrimaryFailed
//	                          -> PrimarySucceeded -> SubmittingDependents -> Complete
//	                                              -> Complete (no dependents)
type State string

const (
	StateIdle                 State = "idle"
	StateSubmittingPrimary    State = "submitting_primary"
	StatePrimaryFailed        State = "primary_failed"
	StatePrimarySucceeded     State = "primary_succeeded"
	StateSubmittingDependents State = "submitting_dependents"
	StateComplete             State = "complete"
)

var transitions = map[State][]State{
	StateIdle:                 {StateSubmittingPrimary},
	StateSubmittingPrimary:    {StatePrimaryFailed, StatePrimarySucceeded},
	StatePrimarySucceeded:     {StateSubmittingDependents, StateComplete},
	StateSubmittingDependents: {StateComplete},
}

// ErrInvalidTransition is returned when a state change skips a step.
var ErrInvalidTransition = errors.New("invalid submission state transition")

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StatePrimaryFailed || s == StateComplete
}

// ItemFailure records one dependent that the backend refused.
type ItemFailure struct {
	Index  int    // position in the submitted dependent list
	Name   string // display name of the dependent
	Reason string
}

// Outcome aggregates the result of one submission.
// INVARIANT: SuccessCount <= 1 + Dependents
// INVARIANT: SuccessCount + len(Failures) == Attempted when State == StateComplete
type Outcome struct {
	Mode       Mode
	State      State
	Dependents int // number of dependents queued for submission
	Attempted  int // primary plus dependents actually sent

	SuccessCount int
	Failures     []ItemFailure

	FamilyID string // grouping id shared by the whole family
	MemberID string // id of the primary

	// PrimaryErr is set when State == StatePrimaryFailed.
	PrimaryErr error
}

// Advance moves the outcome to the next state.
// PRE: CanTransition(o.State, to)
// POST: o.State == to, or ErrInvalidTransition and o unchanged
func (o *Outcome) Advance(to State) error {
	if o.State == "" {
		o.State = StateIdle
	}
	if !CanTransition(o.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.State, to)
	}
	o.State = to
	return nil
}

// RecordSuccess counts one stored record.
func (o *Outcome) RecordSuccess() {
	o.Attempted++
	o.SuccessCount++
}

// RecordFailure records a refused dependent.
func (o *Outcome) RecordFailure(index int, name string, err error) {
	o.Attempted++
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	o.Failures = append(o.Failures, ItemFailure{Index: index, Name: name, Reason: reason})
}

// Succeeded reports whether every attempted record was stored.
func (o Outcome) Succeeded() bool {
	return o.State == StateComplete && len(o.Failures) == 0
}

// Consistent checks the outcome invariants.
func (o Outcome) Consistent() bool {
	if o.SuccessCount > 1+o.Dependents {
		return false
	}
	if o.State == StateComplete && o.SuccessCount+len(o.Failures) != o.Attempted {
		return false
	}
	return true
}

// Notices returns the user-facing messages for the outcome: one summary and
// one line per refused dependent.
func (o Outcome) Notices() (successes, failures []string) {
	switch o.State {
	case StatePrimaryFailed:
		msg := "Failed to save member"
		if o.PrimaryErr != nil {
			msg += ": " + o.PrimaryErr.Error()
		}
		return nil, []string{msg}
	case StateComplete:
	default:
		return nil, nil
	}

	verb := "Saved"
	if o.Mode == ModeCreate {
		verb = "Registered"
	}
	if o.SuccessCount > 0 {
		successes = append(successes, fmt.Sprintf("%s %d member(s).", verb, o.SuccessCount))
	}
	for _, f := range o.Failures {
		failures = append(failures, "Failed to save data for "+f.Name)
	}
	return successes, failures
}

// String summarizes the outcome for logs.
func (o Outcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d/%d stored", o.Mode, o.State, o.SuccessCount, 1+o.Dependents)
	if len(o.Failures) > 0 {
		fmt.Fprintf(&b, ", %d failed", len(o.Failures))
	}
	return b.String()
}
