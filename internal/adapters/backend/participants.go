package backend

import (
	"context"
	"net/http"
	"net/url"

	"memberdesk/internal/domain/participant"
)

// ListParticipants returns the event participant roster matching search.
func (c *Client) ListParticipants(ctx context.Context, rc RequestContext, search string) (participant.Roster, error) {
	var resp struct {
		LastUpdated  flexString `json:"lastUpdated"`
		Participants []struct {
			Serial    flexInt    `json:"sl"`
			FirstName flexString `json:"firstName"`
			LastName  flexString `json:"lastName"`
			Email     flexString `json:"email"`
			Phone     flexString `json:"phone"`
			GuestType flexString `json:"guestType"`
			Status    flexString `json:"status"`
		} `json:"participants"`
	}
	if err := c.do(ctx, rc, http.MethodGet, "/participants", url.Values{"search": {search}}, nil, &resp); err != nil {
		return participant.Roster{}, err
	}
	roster := participant.Roster{LastUpdated: ParseDate(resp.LastUpdated.String())}
	for _, p := range resp.Participants {
		roster.Participants = append(roster.Participants, participant.Participant{
			Serial:    int(p.Serial),
			FirstName: p.FirstName.String(),
			LastName:  p.LastName.String(),
			Email:     p.Email.String(),
			Phone:     p.Phone.String(),
			GuestType: p.GuestType.String(),
			Status:    p.Status.String(),
		})
	}
	return roster, nil
}
