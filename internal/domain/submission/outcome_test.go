package submission

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateSubmittingPrimary, true},
		{StateSubmittingPrimary, StatePrimaryFailed, true},
		{StateSubmittingPrimary, StatePrimarySucceeded, true},
		{StatePrimarySucceeded, StateSubmittingDependents, true},
		{StatePrimarySucceeded, StateComplete, true},
		{StateSubmittingDependents, StateComplete, true},
		{StateIdle, StateComplete, false},
		{StatePrimaryFailed, StateSubmittingDependents, false},
		{StateSubmittingPrimary, StateSubmittingDependents, false},
		{StateComplete, StateIdle, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAdvance_RejectsSkippedStep(t *testing.T) {
	var o Outcome
	if err := o.Advance(StatePrimarySucceeded); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Advance from idle = %v, want ErrInvalidTransition", err)
	}
	if o.State != StateIdle {
		t.Errorf("State = %s, want idle", o.State)
	}
}

// TestOutcome_Notices verifies a partial failure yields a summary and one
// line per failed dependent.
func TestOutcome_Notices(t *testing.T) {
	o := Outcome{Mode: ModeCreate, Dependents: 3}
	for _, s := range []State{StateSubmittingPrimary, StatePrimarySucceeded, StateSubmittingDependents} {
		if err := o.Advance(s); err != nil {
			t.Fatal(err)
		}
	}
	o.RecordSuccess()
	o.RecordSuccess()
	o.RecordFailure(1, "Meera", errors.New("conflict"))
	o.RecordSuccess()
	if err := o.Advance(StateComplete); err != nil {
		t.Fatal(err)
	}

	if !o.Consistent() {
		t.Errorf("outcome inconsistent: %+v", o)
	}
	ok, bad := o.Notices()
	if len(ok) != 1 || ok[0] != "Registered 3 member(s)." {
		t.Errorf("successes = %v", ok)
	}
	if len(bad) != 1 || bad[0] != "Failed to save data for Meera" {
		t.Errorf("failures = %v", bad)
	}
	if o.Succeeded() {
		t.Error("Succeeded() = true with a failure")
	}
}

func TestOutcome_PrimaryFailedNotice(t *testing.T) {
	o := Outcome{Mode: ModeEdit, State: StatePrimaryFailed, PrimaryErr: errors.New("boom")}
	ok, bad := o.Notices()
	if len(ok) != 0 || len(bad) != 1 || bad[0] != "Failed to save member: boom" {
		t.Errorf("Notices() = %v, %v", ok, bad)
	}
}

func TestOutcome_ConsistentRejectsOvercount(t *testing.T) {
	o := Outcome{Dependents: 1, SuccessCount: 3}
	if o.Consistent() {
		t.Error("Consistent() = true for SuccessCount > 1+Dependents")
	}
}
