package backend

import (
	"context"
	"net/http"
)

// SendEmailRequest asks the backend to mail members by id.
type SendEmailRequest struct {
	RecipientIDs []string `json:"recipientIds"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
}

// SendEmail hands a bulk email to the backend for delivery.
// PRE: req has at least one recipient, a subject and an HTML body
func (c *Client) SendEmail(ctx context.Context, rc RequestContext, req SendEmailRequest) error {
	return c.do(ctx, rc, http.MethodPost, "/send-email", nil, req, nil)
}
