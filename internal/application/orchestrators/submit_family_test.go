package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/submission"
)

// fakeMembers records every backend write.
type fakeMembers struct {
	familyID   string          // returned by the primary create
	failNames  map[string]bool // creates for these names fail
	failUpdate error
	created    []member.Member
	updated    []member.Member
}

func (f *fakeMembers) CreateMember(_ context.Context, _ backend.RequestContext, m member.Member) (backend.CreatedMember, error) {
	f.created = append(f.created, m)
	if f.failNames[m.Name] {
		return backend.CreatedMember{}, &backend.APIError{Op: "POST /members", Status: 400, Message: "rejected"}
	}
	if m.IsPrimary {
		return backend.CreatedMember{FamilyID: f.familyID, MemberID: "M1"}, nil
	}
	return backend.CreatedMember{FamilyID: m.FamilyID, MemberID: "M" + m.Name}, nil
}

func (f *fakeMembers) UpdateMember(_ context.Context, _ backend.RequestContext, m member.Member) error {
	f.updated = append(f.updated, m)
	return f.failUpdate
}

func (f *fakeMembers) dependentCreates() []member.Member {
	var out []member.Member
	for _, m := range f.created {
		if !m.IsPrimary {
			out = append(out, m)
		}
	}
	return out
}

type fakeAudit struct{ events []audit.Event }

func (f *fakeAudit) Save(_ context.Context, e audit.Event) error {
	f.events = append(f.events, e)
	return nil
}

type fakeObserver struct{ outcomes []submission.Outcome }

func (f *fakeObserver) ObserveSubmission(o submission.Outcome) { f.outcomes = append(f.outcomes, o) }

func validPrimary() member.Member {
	return member.Member{
		Name:         "Asha Rao",
		Gender:       "Female",
		EmailAddress: "asha@example.org",
		PhoneNo:      "408-555-0100",
		DOB:          time.Date(1985, 4, 2, 0, 0, 0, 0, time.UTC),
		Street:       "1 Main St",
		City:         "San Jose",
		State:        "ca",
		Zip:          "95112",
		Status:       member.StatusActive,
	}
}

func localDependents(names ...string) []FamilyRow {
	rows := make([]FamilyRow, 0, len(names))
	for _, n := range names {
		rows = append(rows, FamilyRow{Ref: record.Local(), Member: member.Member{Name: n, Gender: "Male"}})
	}
	return rows
}

// TestSubmitFamily_PartialDependentFailure verifies a failed dependent is
// recorded and the following dependent is still attempted.
func TestSubmitFamily_PartialDependentFailure(t *testing.T) {
	fm := &fakeMembers{familyID: "F100", failNames: map[string]bool{"Dev Two": true}}
	input := SubmitFamilyInput{
		Mode:       submission.ModeCreate,
		Primary:    validPrimary(),
		Dependents: localDependents("Dev One", "Dev Two", "Dev Three"),
	}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != submission.StateComplete {
		t.Fatalf("state = %s, want complete", out.State)
	}
	if out.SuccessCount != 3 {
		t.Errorf("SuccessCount = %d, want 3", out.SuccessCount)
	}
	if len(out.Failures) != 1 || out.Failures[0].Index != 1 || out.Failures[0].Name != "Dev Two" {
		t.Errorf("Failures = %+v, want one failure for dependent #2", out.Failures)
	}
	deps := fm.dependentCreates()
	if len(deps) != 3 || deps[2].Name != "Dev Three" {
		t.Errorf("dependent calls = %d, last %q; want 3 ending with Dev Three", len(deps), deps[len(deps)-1].Name)
	}
	if !out.Consistent() {
		t.Errorf("outcome inconsistent: %+v", out)
	}
	_, failures := out.Notices()
	if len(failures) != 1 || failures[0] != "Failed to save data for Dev Two" {
		t.Errorf("failure notices = %v", failures)
	}
}

// TestSubmitFamily_PrimaryFailureAbortsDependents verifies no dependent call
// follows a rejected primary.
func TestSubmitFamily_PrimaryFailureAbortsDependents(t *testing.T) {
	fm := &fakeMembers{familyID: "F100", failNames: map[string]bool{"Asha Rao": true}}
	obs := &fakeObserver{}
	input := SubmitFamilyInput{
		Mode:       submission.ModeCreate,
		Primary:    validPrimary(),
		Dependents: localDependents("Dev One", "Dev Two"),
	}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm, Observer: obs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != submission.StatePrimaryFailed || out.PrimaryErr == nil {
		t.Fatalf("outcome = %+v, want primary_failed", out)
	}
	if n := len(fm.dependentCreates()); n != 0 {
		t.Errorf("dependent calls = %d, want 0", n)
	}
	if out.SuccessCount != 0 {
		t.Errorf("SuccessCount = %d, want 0", out.SuccessCount)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0].State != submission.StatePrimaryFailed {
		t.Errorf("observer saw %+v", obs.outcomes)
	}
}

// TestSubmitFamily_CreatePropagatesFamilyID verifies every dependent carries
// the id the backend assigned to the primary.
func TestSubmitFamily_CreatePropagatesFamilyID(t *testing.T) {
	fm := &fakeMembers{familyID: "F100"}
	input := SubmitFamilyInput{
		Mode:       submission.ModeCreate,
		Primary:    validPrimary(),
		Dependents: localDependents("Dev One", "Dev Two"),
	}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if err != nil {
		t.Fatal(err)
	}
	if fm.created[0].FamilyID != "" || !fm.created[0].IsPrimary {
		t.Errorf("primary payload = %+v, want no family id", fm.created[0])
	}
	for i, d := range fm.dependentCreates() {
		if d.FamilyID != "F100" {
			t.Errorf("dependent %d FamilyID = %q, want F100", i, d.FamilyID)
		}
		if d.Street != "1 Main St" || d.State != "CA" || d.Amount != member.DependentAmount {
			t.Errorf("dependent %d did not inherit the primary's address: %+v", i, d)
		}
	}
	if out.FamilyID != "F100" || out.MemberID != "M1" {
		t.Errorf("outcome ids = %q/%q", out.FamilyID, out.MemberID)
	}
}

// TestSubmitFamily_EditReusesFamilyID verifies edit mode updates the primary
// and creates only the new dependent, under the existing family id.
func TestSubmitFamily_EditReusesFamilyID(t *testing.T) {
	fm := &fakeMembers{familyID: "SHOULD-NOT-BE-USED"}
	primary := validPrimary()
	primary.FamilyID = "F200"
	primary.MemberID = "M9"
	primary.IsPrimary = true
	existing := FamilyRow{Ref: record.Persisted("M10"), Member: member.Member{Name: "Old Kid", Gender: "Female", FamilyID: "F200", MemberID: "M10"}}
	input := SubmitFamilyInput{
		Mode:       submission.ModeEdit,
		Primary:    primary,
		Dependents: append([]FamilyRow{existing}, localDependents("New Kid")...),
	}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if err != nil {
		t.Fatal(err)
	}
	if len(fm.updated) != 1 || fm.updated[0].FamilyID != "F200" {
		t.Fatalf("primary updates = %+v", fm.updated)
	}
	if len(fm.created) != 1 {
		t.Fatalf("creates = %d, want only the new dependent", len(fm.created))
	}
	if got := fm.created[0]; got.FamilyID != "F200" || got.Name != "New Kid" || got.IsPrimary {
		t.Errorf("dependent payload = %+v", got)
	}
	if out.Dependents != 1 || out.SuccessCount != 2 || out.FamilyID != "F200" {
		t.Errorf("outcome = %+v", out)
	}
}

// TestSubmitFamily_MissingFamilyID verifies a create without a family id is a primary failure.
func TestSubmitFamily_MissingFamilyID(t *testing.T) {
	fm := &fakeMembers{familyID: ""}
	input := SubmitFamilyInput{
		Mode:       submission.ModeCreate,
		Primary:    validPrimary(),
		Dependents: localDependents("Dev One"),
	}
	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if err != nil {
		t.Fatal(err)
	}
	if out.State != submission.StatePrimaryFailed || !errors.Is(out.PrimaryErr, backend.ErrMissingFamilyID) {
		t.Errorf("outcome = %+v, want ErrMissingFamilyID", out)
	}
	if len(fm.dependentCreates()) != 0 {
		t.Error("dependents sent without a family id")
	}
}

// TestSubmitFamily_ValidationBeforeNetwork verifies invalid fields stop the
// workflow before any backend call.
func TestSubmitFamily_ValidationBeforeNetwork(t *testing.T) {
	fm := &fakeMembers{familyID: "F100"}
	primary := validPrimary()
	primary.EmailAddress = "not-an-email"
	deps := localDependents("Dev One", "")
	input := SubmitFamilyInput{Mode: submission.ModeCreate, Primary: primary, Dependents: deps}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	var verr *FamilyValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want FamilyValidationError", err)
	}
	if _, ok := verr.Primary["EmailAddress"]; !ok {
		t.Errorf("primary errors = %v, want EmailAddress", verr.Primary)
	}
	if _, ok := verr.Dependents[1]["Name"]; !ok {
		t.Errorf("dependent errors = %v, want Name on row 1", verr.Dependents)
	}
	if len(fm.created)+len(fm.updated) != 0 {
		t.Error("backend called despite validation errors")
	}
	if out.State != submission.StateIdle {
		t.Errorf("state = %s, want idle", out.State)
	}
}

func TestSubmitFamily_NoDependentsCompletes(t *testing.T) {
	fm := &fakeMembers{familyID: "F1"}
	rec := &fakeAudit{}
	input := SubmitFamilyInput{Mode: submission.ModeCreate, Primary: validPrimary(), Actor: Actor{Email: "admin@example.org"}}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm, Audit: rec})
	if err != nil {
		t.Fatal(err)
	}
	if out.State != submission.StateComplete || out.SuccessCount != 1 || !out.Succeeded() {
		t.Errorf("outcome = %+v", out)
	}
	if len(rec.events) != 1 || rec.events[0].ActorEmail != "admin@example.org" || rec.events[0].ResourceID != "F1" {
		t.Errorf("audit = %+v", rec.events)
	}
}

func TestSubmitFamily_UnknownMode(t *testing.T) {
	_, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, SubmitFamilyInput{Mode: "upsert"}, SubmitFamilyDeps{Members: &fakeMembers{}})
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("err = %v, want ErrUnknownMode", err)
	}
}

func TestSubmitFamily_EditPrimaryFailure(t *testing.T) {
	fm := &fakeMembers{failUpdate: errors.New("timeout")}
	primary := validPrimary()
	primary.FamilyID, primary.MemberID = "F200", "M9"
	primary.IsPrimary = true
	input := SubmitFamilyInput{Mode: submission.ModeEdit, Primary: primary, Dependents: localDependents("Kid")}

	out, _ := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if out.State != submission.StatePrimaryFailed || len(fm.created) != 0 {
		t.Errorf("outcome = %+v, creates = %d", out, len(fm.created))
	}
}

// TestSubmitFamily_EditDependentKeepsRole verifies a family member is saved
// with the dependent rules and is never promoted to primary.
func TestSubmitFamily_EditDependentKeepsRole(t *testing.T) {
	fm := &fakeMembers{}
	kid := member.Member{
		FamilyID: "F1",
		MemberID: "M2",
		Name:     "Kiran Rao",
		Gender:   "Male",
		Street:   "1 Main St",
		City:     "San Jose",
		State:    "CA",
		Zip:      "95112",
	}
	input := SubmitFamilyInput{Mode: submission.ModeEdit, Primary: kid}

	out, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if err != nil {
		t.Fatalf("err = %v, want dependent rules to accept a record without contact details", err)
	}
	if out.State != submission.StateComplete {
		t.Errorf("state = %s", out.State)
	}
	if len(fm.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(fm.updated))
	}
	if got := fm.updated[0]; got.IsPrimary || got.MemberID != "M2" || got.FamilyID != "F1" {
		t.Errorf("update payload = %+v, want dependent M2 in F1", got)
	}
}

func TestSubmitFamily_EditDependentValidatesDependentFields(t *testing.T) {
	fm := &fakeMembers{}
	kid := member.Member{FamilyID: "F1", MemberID: "M2", Name: "Kiran Rao", Gender: "Male", EmailAddress: "nope"}

	_, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, SubmitFamilyInput{Mode: submission.ModeEdit, Primary: kid}, SubmitFamilyDeps{Members: fm})
	var verr *FamilyValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want FamilyValidationError", err)
	}
	if _, ok := verr.Primary["EmailAddress"]; !ok || len(verr.Primary) != 1 {
		t.Errorf("errors = %v, want only EmailAddress", verr.Primary)
	}
	if len(fm.updated) != 0 {
		t.Error("backend called despite validation errors")
	}
}

func TestSubmitFamily_EditDependentRejectsNewFamilyRows(t *testing.T) {
	fm := &fakeMembers{}
	kid := member.Member{FamilyID: "F1", MemberID: "M2", Name: "Kiran Rao", Gender: "Male"}
	input := SubmitFamilyInput{Mode: submission.ModeEdit, Primary: kid, Dependents: localDependents("Grandkid")}

	_, err := ExecuteSubmitFamily(context.Background(), backend.Anonymous, input, SubmitFamilyDeps{Members: fm})
	if !errors.Is(err, ErrNotPrimary) {
		t.Errorf("err = %v, want ErrNotPrimary", err)
	}
	if len(fm.created)+len(fm.updated) != 0 {
		t.Error("backend called for a dependent with family rows")
	}
}

func TestMustAdvance_PanicsOnIllegalStep(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for complete -> submitting_primary")
		}
	}()
	out := submission.Outcome{State: submission.StateComplete}
	mustAdvance(&out, submission.StateSubmittingPrimary)
}
