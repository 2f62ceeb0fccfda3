package email

import (
	"errors"
	"strings"

	"memberdesk/internal/domain/emailtemplate"
)

// Dispatch modes.
const (
	DispatchBackend = "backend" // the REST backend's /send-email endpoint
	DispatchResend  = "resend"  // direct delivery through Resend
)

// MaxRecipients bounds a single bulk send.
const MaxRecipients = 5000

// Domain errors
var (
	ErrNoRecipients   = errors.New("at least one recipient is required")
	ErrTooMany        = errors.New("too many recipients for a single send")
	ErrEmptySubject   = errors.New("email subject is required")
	ErrEmptyBody      = errors.New("email body is required")
	ErrUnknownMode    = errors.New("unknown email dispatch mode")
	ErrNoDeliverables = errors.New("none of the selected members has an email address")
)

// BulkEmail is one message sent to many members.
type BulkEmail struct {
	RecipientIDs []string // member UUIDs
	Subject      string
	Body         string // Markdown or HTML
	TemplateID   string // template the message was started from, if any
}

// Validate checks that the BulkEmail can be sent.
// PRE: none
// POST: returns the first failing rule; RecipientIDs are de-duplicated
func (b *BulkEmail) Validate() error {
	b.RecipientIDs = dedupe(b.RecipientIDs)
	b.Subject = strings.TrimSpace(b.Subject)
	if len(b.RecipientIDs) == 0 {
		return ErrNoRecipients
	}
	if len(b.RecipientIDs) > MaxRecipients {
		return ErrTooMany
	}
	if b.Subject == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(b.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

// ApplyTemplate pre-fills subject and body from t.
// POST: Subject and Body equal t's; TemplateID is t.ID
func (b *BulkEmail) ApplyTemplate(t emailtemplate.Template) {
	b.Subject = t.Subject
	b.Body = t.Body
	b.TemplateID = t.ID
}

// HTML renders the body for delivery.
func (b BulkEmail) HTML() (string, error) {
	return emailtemplate.RenderHTML(b.Body)
}

// Recipient is a member resolved to a deliverable address.
type Recipient struct {
	MemberID string
	Name     string
	Address  string
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
