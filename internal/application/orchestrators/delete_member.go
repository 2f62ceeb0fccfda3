package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/member"
)

// MemberDeleter removes members from the backend.
type MemberDeleter interface {
	DeleteMember(ctx context.Context, rc backend.RequestContext, familyID, memberID string) error
}

// DeleteMemberInput identifies the member to remove.
type DeleteMemberInput struct {
	FamilyID string
	MemberID string
	Name     string // for the notice and audit trail
	Actor    Actor
}

// DeleteMemberDeps holds dependencies for ExecuteDeleteMember.
type DeleteMemberDeps struct {
	Members MemberDeleter
	Audit   AuditRecorder
}

// ExecuteDeleteMember removes a single member from its family.
// PRE: FamilyID and MemberID are non-empty
// POST: the member is gone from the backend or an error is returned
func ExecuteDeleteMember(ctx context.Context, rc backend.RequestContext, input DeleteMemberInput, deps DeleteMemberDeps) error {
	if input.FamilyID == "" || input.MemberID == "" {
		return member.ErrNoIdentity
	}
	if err := deps.Members.DeleteMember(ctx, rc, input.FamilyID, input.MemberID); err != nil {
		return fmt.Errorf("delete member %s/%s: %w", input.FamilyID, input.MemberID, err)
	}

	slog.Info("member_deleted", "family_id", input.FamilyID, "member_id", input.MemberID, "actor", input.Actor.Email)
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, audit.CategoryMember, audit.ActionDelete).
		WithResource("member", input.FamilyID+"/"+input.MemberID).
		WithDescription("Deleted member "+input.Name))
	return nil
}
