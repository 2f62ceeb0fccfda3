package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers messages through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender with the given API key and default from address.
// PRE: apiKey is a Resend API key; from is a valid sender address
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) params(msg Message) *resend.SendEmailRequest {
	from := msg.From
	if from == "" {
		from = s.from
	}
	p := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		p.ReplyTo = msg.ReplyTo
	}
	return p
}

// Send delivers a single message.
// POST: returns the Resend message id
func (s *ResendSender) Send(ctx context.Context, msg Message) (Result, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(msg))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "subject", msg.Subject)
		return Result{}, fmt.Errorf("resend send: %w", err)
	}
	slog.Info("resend_sent", "message_id", sent.Id, "subject", msg.Subject)
	return Result{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// SendBatch delivers msgs in chunks of BatchSize.
// POST: on error, the results of the chunks already accepted are returned
func (s *ResendSender) SendBatch(ctx context.Context, msgs []Message) ([]Result, error) {
	var results []Result
	for _, w := range chunks(len(msgs), BatchSize) {
		batch := make([]*resend.SendEmailRequest, 0, w[1]-w[0])
		for _, msg := range msgs[w[0]:w[1]] {
			batch = append(batch, s.params(msg))
		}
		resp, err := s.client.Batch.SendWithContext(ctx, batch)
		if err != nil {
			slog.Error("resend_batch_failed", "error", err, "batch_start", w[0], "batch_size", len(batch))
			return results, fmt.Errorf("resend batch send: %w", err)
		}
		now := time.Now()
		for _, item := range resp.Data {
			results = append(results, Result{MessageID: item.Id, SentAt: now})
		}
		slog.Info("resend_batch_sent", "count", len(batch), "total_sent", len(results))
	}
	return results, nil
}
