package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"memberdesk/internal/adapters/backend"
	mail "memberdesk/internal/adapters/email"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/email"
	"memberdesk/internal/domain/emailtemplate"
	"memberdesk/internal/domain/member"
)

// Bulk email notices.
const (
	NoticeEmailSent      = "Email sent!"
	NoticeEmailFailed    = "Failed to send email."
	NoticeNoRecipients   = "No recipients selected."
	NoticeSubjectBodyReq = "Subject and Body required."
)

// EmailBackend is the backend's own bulk mail endpoint.
type EmailBackend interface {
	SendEmail(ctx context.Context, rc backend.RequestContext, req backend.SendEmailRequest) error
}

// TemplateLister loads saved email templates.
type TemplateLister interface {
	ListTemplates(ctx context.Context, rc backend.RequestContext, search string) ([]emailtemplate.Template, error)
}

// BulkEmailObserver is told how each bulk send went.
type BulkEmailObserver interface {
	ObserveBulkEmail(dispatch string, sent, skipped, failed int)
}

// SendBulkEmailInput is one compose-and-send request.
// When AllFiltered is set the recipients are every member of the filtered
// listing and Email.RecipientIDs is replaced.
type SendBulkEmailInput struct {
	Email       email.BulkEmail
	AllFiltered bool
	Filters     listutil.Filters
	Actor       Actor
}

// SendBulkEmailDeps holds dependencies for ExecuteSendBulkEmail.
type SendBulkEmailDeps struct {
	Dispatch  string // email.DispatchBackend or email.DispatchResend
	Backend   EmailBackend
	Sender    mail.Sender
	Members   MemberWalker
	Templates TemplateLister
	Observer  BulkEmailObserver
	Audit     AuditRecorder
	ReplyTo   string
}

// SendBulkEmailResult counts what happened to each recipient.
type SendBulkEmailResult struct {
	Recipients int
	Sent       int
	Skipped    int // members without an address (resend mode only)
	Failed     int
}

// Notice returns the notification text for the send.
func (r SendBulkEmailResult) Notice() string {
	if r.Sent == 0 || r.Failed > 0 {
		return NoticeEmailFailed
	}
	return NoticeEmailSent
}

// ValidationNotice maps a BulkEmail validation error to its notification text.
func ValidationNotice(err error) string {
	switch {
	case errors.Is(err, email.ErrNoRecipients):
		return NoticeNoRecipients
	case errors.Is(err, email.ErrEmptySubject), errors.Is(err, email.ErrEmptyBody):
		return NoticeSubjectBodyReq
	default:
		return NoticeEmailFailed
	}
}

// ExecuteSendBulkEmail validates a bulk email and hands it to the configured
// dispatcher.
// PRE: deps.Dispatch names a configured dispatcher
// POST: validation errors come from email.BulkEmail before any delivery
// POST: Sent + Skipped + Failed equals Recipients once delivery is attempted
func ExecuteSendBulkEmail(ctx context.Context, rc backend.RequestContext, input SendBulkEmailInput, deps SendBulkEmailDeps) (SendBulkEmailResult, error) {
	msg := input.Email
	if err := fillFromTemplate(ctx, rc, &msg, deps.Templates); err != nil {
		return SendBulkEmailResult{}, err
	}

	var resolved []member.Member
	if input.AllFiltered || deps.Dispatch == email.DispatchResend {
		all, err := collectMembers(ctx, rc, deps.Members, input.Filters, input.AllFiltered, msg.RecipientIDs)
		if err != nil {
			return SendBulkEmailResult{}, fmt.Errorf("resolve recipients: %w", err)
		}
		resolved = all
		if input.AllFiltered {
			msg.RecipientIDs = make([]string, 0, len(all))
			for _, m := range all {
				msg.RecipientIDs = append(msg.RecipientIDs, m.UUID)
			}
		}
	}
	if err := msg.Validate(); err != nil {
		return SendBulkEmailResult{}, err
	}
	html, err := msg.HTML()
	if err != nil {
		return SendBulkEmailResult{}, fmt.Errorf("render email body: %w", err)
	}

	result := SendBulkEmailResult{Recipients: len(msg.RecipientIDs)}
	var sendErr error
	switch deps.Dispatch {
	case email.DispatchBackend:
		sendErr = deps.Backend.SendEmail(ctx, rc, backend.SendEmailRequest{
			RecipientIDs: msg.RecipientIDs,
			Subject:      msg.Subject,
			Body:         html,
		})
		if sendErr != nil {
			result.Failed = result.Recipients
		} else {
			result.Sent = result.Recipients
		}
	case email.DispatchResend:
		sendErr = sendDirect(ctx, deps, msg, html, resolved, &result)
	default:
		return SendBulkEmailResult{}, fmt.Errorf("%w: %q", email.ErrUnknownMode, deps.Dispatch)
	}

	if deps.Observer != nil {
		deps.Observer.ObserveBulkEmail(deps.Dispatch, result.Sent, result.Skipped, result.Failed)
	}
	sev := audit.SeverityInfo
	if sendErr != nil {
		sev = audit.SeverityWarning
		slog.Error("bulk_email_failed", "dispatch", deps.Dispatch, "recipients", result.Recipients, "error", sendErr)
	} else {
		slog.Info("bulk_email_sent", "dispatch", deps.Dispatch, "sent", result.Sent, "skipped", result.Skipped)
	}
	recordAudit(ctx, deps.Audit, input.Actor, audit.NewEvent(input.Actor.Email, audit.CategoryEmail, audit.ActionSend).
		WithSeverity(sev).
		WithResource("email_template", msg.TemplateID).
		WithDescription(msg.Subject).
		WithMetadata(result))

	if sendErr != nil && !errors.Is(sendErr, email.ErrNoDeliverables) {
		return result, fmt.Errorf("send bulk email: %w", sendErr)
	}
	return result, sendErr
}

// fillFromTemplate applies the chosen template when the message was started
// from one and has no subject or body of its own.
func fillFromTemplate(ctx context.Context, rc backend.RequestContext, msg *email.BulkEmail, lister TemplateLister) error {
	if msg.TemplateID == "" || msg.TemplateID == emailtemplate.CustomID || lister == nil {
		return nil
	}
	if msg.Subject != "" && msg.Body != "" {
		return nil
	}
	templates, err := lister.ListTemplates(ctx, rc, "")
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	t, err := emailtemplate.Find(templates, msg.TemplateID)
	if err != nil {
		return err
	}
	subject, body := msg.Subject, msg.Body
	msg.ApplyTemplate(t)
	if subject != "" {
		msg.Subject = subject
	}
	if body != "" {
		msg.Body = body
	}
	return nil
}

// collectMembers walks the filtered listing. With all unset only the members
// named in ids are kept.
func collectMembers(ctx context.Context, rc backend.RequestContext, walker MemberWalker, f listutil.Filters, all bool, ids []string) ([]member.Member, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	q := backend.ListQuery{Search: f.Search, Status: f.Status, Limit: 100}
	if !all {
		q = backend.ListQuery{Limit: 100}
	}
	var out []member.Member
	err := walker.WalkMembers(ctx, rc, q, func(m member.Member) error {
		if m.UUID == "" {
			return nil
		}
		if all || want[m.UUID] {
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func sendDirect(ctx context.Context, deps SendBulkEmailDeps, msg email.BulkEmail, html string, members []member.Member, result *SendBulkEmailResult) error {
	byID := make(map[string]member.Member, len(members))
	for _, m := range members {
		byID[m.UUID] = m
	}
	recipients := make([]email.Recipient, 0, len(msg.RecipientIDs))
	for _, id := range msg.RecipientIDs {
		m := byID[id]
		recipients = append(recipients, email.Recipient{MemberID: id, Name: m.Name, Address: m.EmailAddress})
	}
	msgs, skipped := mail.PerRecipient(recipients, msg.Subject, html, deps.ReplyTo)
	result.Skipped = skipped
	if len(msgs) == 0 {
		return email.ErrNoDeliverables
	}
	sent, err := deps.Sender.SendBatch(ctx, msgs)
	result.Sent = len(sent)
	result.Failed = len(msgs) - len(sent)
	return err
}
