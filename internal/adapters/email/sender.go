// Package email delivers bulk member mail through an external provider.
package email

import (
	"context"
	"net/mail"
	"strings"
	"time"

	domain "memberdesk/internal/domain/email"
)

// BatchSize is the most messages the provider accepts per batch call.
const BatchSize = 100

// Message is one outbound email.
type Message struct {
	To      []string
	From    string // empty selects the sender's default
	Subject string
	HTML    string
	ReplyTo string
}

// Result is the provider's acknowledgement of one Message.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	SendBatch(ctx context.Context, msgs []Message) ([]Result, error)
}

// PerRecipient builds one message per recipient so that members never see
// each other's addresses. Recipients without an address are skipped.
// POST: len(result) + skipped == len(recipients)
func PerRecipient(recipients []domain.Recipient, subject, html, replyTo string) (msgs []Message, skipped int) {
	for _, r := range recipients {
		addr := strings.TrimSpace(r.Address)
		if addr == "" {
			skipped++
			continue
		}
		to := addr
		if r.Name != "" {
			to = (&mail.Address{Name: r.Name, Address: addr}).String()
		}
		msgs = append(msgs, Message{To: []string{to}, Subject: subject, HTML: html, ReplyTo: replyTo})
	}
	return msgs, skipped
}

// chunks splits n items into [start, end) windows of at most size.
func chunks(n, size int) [][2]int {
	var out [][2]int
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{i, end})
	}
	return out
}
