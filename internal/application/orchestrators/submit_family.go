package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/submission"
	"memberdesk/internal/domain/validation"
)

// Submission errors.
var (
	ErrUnknownMode = errors.New("unknown submission mode")
	ErrNotPrimary  = errors.New("family members can only be added to a primary member")
)

// FamilyRow is one dependent on the family form. Local rows are new and
// will be created; persisted rows already exist and are never re-sent.
type FamilyRow struct {
	Ref    record.Ref
	Member member.Member
}

// SubmitFamilyInput carries the primary member and its dependents.
type SubmitFamilyInput struct {
	Mode       submission.Mode
	Primary    member.Member
	Dependents []FamilyRow
	Actor      Actor
}

// SubmitFamilyDeps holds dependencies for the submission workflow.
type SubmitFamilyDeps struct {
	Members  MemberWriter
	Audit    AuditRecorder      // optional
	Observer SubmissionObserver // optional
}

// FamilyValidationError reports field errors found before any network call.
type FamilyValidationError struct {
	Primary    validation.Errors
	Dependents map[int]validation.Errors // keyed by index in SubmitFamilyInput.Dependents
}

// Error implements error.
func (e *FamilyValidationError) Error() string {
	n := len(e.Primary)
	for _, d := range e.Dependents {
		n += len(d)
	}
	return fmt.Sprintf("%d field(s) need attention", n)
}

// validateFamily checks the primary and every local dependent.
// POST: dependents have inherited the primary's address
func validateFamily(in *SubmitFamilyInput) error {
	verr := &FamilyValidationError{Dependents: map[int]validation.Errors{}}
	check := in.Primary.ValidatePrimary
	if editingDependent(*in) {
		check = in.Primary.ValidateDependent
	}
	if err := check(); err != nil {
		fe, ok := validation.As(err)
		if !ok {
			return err
		}
		verr.Primary = fe
	}
	for i := range in.Dependents {
		row := &in.Dependents[i]
		if !row.Ref.IsLocal() {
			continue
		}
		row.Member.InheritAddress(in.Primary)
		if err := row.Member.ValidateDependent(); err != nil {
			fe, ok := validation.As(err)
			if !ok {
				return err
			}
			verr.Dependents[i] = fe
		}
	}
	if len(verr.Primary) == 0 && len(verr.Dependents) == 0 {
		return nil
	}
	return verr
}

// editingDependent reports whether an edit targets a family member rather
// than the primary. Such a record keeps its role and cannot take dependents.
func editingDependent(in SubmitFamilyInput) bool {
	return in.Mode == submission.ModeEdit && !in.Primary.IsPrimary
}

// ExecuteSubmitFamily saves a primary member and then its new dependents.
//
// The primary is created (ModeCreate) or updated (ModeEdit) first. When that
// fails the workflow stops in StatePrimaryFailed and no dependent is sent. In
// create mode the backend must return the new FamilyId; a success without one
// is a primary failure. Dependents are then created one at a time in list
// order, each carrying the family id. A dependent failure is recorded and the
// loop continues with the next dependent.
//
// In edit mode the record keeps its IsPrimary flag. A dependent being edited
// is checked with the dependent rules and may not carry new family rows.
//
// PRE: Mode is ModeCreate or ModeEdit; in ModeEdit Primary has FamilyID and MemberID
// POST: returns *FamilyValidationError with no network call when fields are invalid;
// otherwise returns the Outcome (State PrimaryFailed or Complete) and a nil error
// INVARIANT: Outcome.SuccessCount <= 1 + Outcome.Dependents
func ExecuteSubmitFamily(ctx context.Context, rc backend.RequestContext, input SubmitFamilyInput, deps SubmitFamilyDeps) (submission.Outcome, error) {
	if input.Mode != submission.ModeCreate && input.Mode != submission.ModeEdit {
		return submission.Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMode, input.Mode)
	}
	var pending []int
	for i, row := range input.Dependents {
		if row.Ref.IsLocal() {
			pending = append(pending, i)
		}
	}
	if len(pending) > 0 && editingDependent(input) {
		return submission.Outcome{Mode: input.Mode, State: submission.StateIdle}, ErrNotPrimary
	}
	if err := validateFamily(&input); err != nil {
		return submission.Outcome{Mode: input.Mode, State: submission.StateIdle}, err
	}

	out := submission.Outcome{Mode: input.Mode, State: submission.StateIdle, Dependents: len(pending)}
	mustAdvance(&out, submission.StateSubmittingPrimary)

	primary := input.Primary
	if input.Mode == submission.ModeCreate {
		primary.IsPrimary = true
	}
	familyID, memberID, err := submitPrimary(ctx, rc, input.Mode, primary, deps.Members)
	if err != nil {
		out.Attempted = 1
		out.PrimaryErr = err
		mustAdvance(&out, submission.StatePrimaryFailed)
		finishSubmission(ctx, input, deps, out)
		return out, nil
	}
	out.FamilyID = familyID
	out.MemberID = memberID
	out.RecordSuccess()
	mustAdvance(&out, submission.StatePrimarySucceeded)

	if len(pending) > 0 {
		mustAdvance(&out, submission.StateSubmittingDependents)
		for _, i := range pending {
			dep := input.Dependents[i].Member
			dep.FamilyID = familyID
			dep.MemberID = ""
			dep.IsPrimary = false
			if _, err := deps.Members.CreateMember(ctx, rc, dep); err != nil {
				slog.Warn("dependent_submit_failed", "family_id", familyID, "index", i, "name", dep.DisplayName(), "error", err)
				out.RecordFailure(i, dep.DisplayName(), err)
				continue
			}
			out.RecordSuccess()
		}
	}
	mustAdvance(&out, submission.StateComplete)

	finishSubmission(ctx, input, deps, out)
	return out, nil
}

// mustAdvance moves out to the next state. The workflow only takes legal
// steps, so a rejected transition is a programming error.
func mustAdvance(out *submission.Outcome, to submission.State) {
	if err := out.Advance(to); err != nil {
		panic(fmt.Sprintf("submission workflow: %v", err))
	}
}

// submitPrimary stores the primary and returns the family and member ids to use.
func submitPrimary(ctx context.Context, rc backend.RequestContext, mode submission.Mode, primary member.Member, w MemberWriter) (familyID, memberID string, err error) {
	if mode == submission.ModeEdit {
		familyID, memberID, err = primary.Identity()
		if err != nil {
			return "", "", err
		}
		if err := w.UpdateMember(ctx, rc, primary); err != nil {
			return "", "", err
		}
		return familyID, memberID, nil
	}

	primary.FamilyID = ""
	primary.MemberID = ""
	created, err := w.CreateMember(ctx, rc, primary)
	if err != nil {
		return "", "", err
	}
	if created.FamilyID == "" {
		return "", "", backend.ErrMissingFamilyID
	}
	return created.FamilyID, created.MemberID, nil
}

func finishSubmission(ctx context.Context, input SubmitFamilyInput, deps SubmitFamilyDeps, out submission.Outcome) {
	slog.Info("member_submission",
		"mode", out.Mode,
		"state", out.State,
		"family_id", out.FamilyID,
		"dependents", out.Dependents,
		"success_count", out.SuccessCount,
		"failures", len(out.Failures),
		"actor", input.Actor.Email,
	)
	if deps.Observer != nil {
		deps.Observer.ObserveSubmission(out)
	}

	action := audit.ActionCreate
	if out.Mode == submission.ModeEdit {
		action = audit.ActionUpdate
	}
	e := audit.NewEvent(input.Actor.Email, audit.CategoryMember, action).
		WithResource("family", out.FamilyID).
		WithDescription(fmt.Sprintf("%s: %s", input.Primary.DisplayName(), out.String())).
		WithMetadata(map[string]any{
			"member_id":     out.MemberID,
			"success_count": out.SuccessCount,
			"failures":      out.Failures,
		})
	if out.State == submission.StatePrimaryFailed {
		e = e.WithSeverity(audit.SeverityWarning)
	}
	recordAudit(ctx, deps.Audit, input.Actor, e)
}
