package orchestrators

import (
	"context"
	"log/slog"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/submission"
)

// MemberWriter is the part of the backend client that stores members.
type MemberWriter interface {
	CreateMember(ctx context.Context, rc backend.RequestContext, m member.Member) (backend.CreatedMember, error)
	UpdateMember(ctx context.Context, rc backend.RequestContext, m member.Member) error
}

// MemberWalker iterates every member matching a listing query.
type MemberWalker interface {
	WalkMembers(ctx context.Context, rc backend.RequestContext, q backend.ListQuery, fn func(member.Member) error) error
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, e audit.Event) error
}

// SubmissionObserver is told about every finished submission.
type SubmissionObserver interface {
	ObserveSubmission(o submission.Outcome)
}

// Actor identifies who triggered an orchestrator and from where.
type Actor struct {
	Email string
	IP    string
}

// recordAudit saves e when a recorder is configured. Audit failures are
// logged and never fail the operation that produced them.
func recordAudit(ctx context.Context, rec AuditRecorder, actor Actor, e audit.Event) {
	if rec == nil {
		return
	}
	e.ActorEmail = actor.Email
	e.IPAddress = actor.IP
	if err := rec.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "category", e.Category, "action", e.Action, "error", err)
	}
}
