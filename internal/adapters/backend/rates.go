package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"memberdesk/internal/domain/rateplan"
	"memberdesk/internal/domain/record"
)

const ratesPath = "/rates"

type rawRatePlan struct {
	RatePlanID    flexString `json:"rate_plan_id"`
	Name          flexString `json:"rate_plan_name"`
	Code          flexString `json:"rate_plan_code"`
	EffectiveDate flexString `json:"effective_date"`
	EndDate       flexString `json:"end_date"`
	AdultCount    flexInt    `json:"adult_count"`
	ChildCount    flexInt    `json:"child_count"`
	AdultAmount   flexFloat  `json:"adult_amount"`
	ChildAmount   flexFloat  `json:"child_amount"`
	CreatedAt     flexString `json:"created_at"`
}

func (r rawRatePlan) toRatePlan() rateplan.RatePlan {
	return rateplan.RatePlan{
		Ref:           record.Persisted(r.RatePlanID.String()),
		Name:          r.Name.String(),
		Code:          r.Code.String(),
		EffectiveDate: ParseDate(r.EffectiveDate.String()),
		EndDate:       ParseDate(r.EndDate.String()),
		AdultCount:    int(r.AdultCount),
		ChildCount:    int(r.ChildCount),
		AdultAmount:   float64(r.AdultAmount),
		ChildAmount:   float64(r.ChildAmount),
		CreatedAt:     ParseDate(r.CreatedAt.String()),
	}
}

type ratePlanPayload struct {
	Name          string  `json:"rate_plan_name"`
	Code          string  `json:"rate_plan_code"`
	EffectiveDate string  `json:"effective_date"`
	EndDate       string  `json:"end_date"`
	AdultCount    int     `json:"adult_count"`
	ChildCount    int     `json:"child_count"`
	AdultAmount   float64 `json:"adult_amount"`
	ChildAmount   float64 `json:"child_amount"`
}

func newRatePlanPayload(r rateplan.RatePlan) ratePlanPayload {
	return ratePlanPayload{
		Name:          r.Name,
		Code:          r.Code,
		EffectiveDate: formatDate(r.EffectiveDate),
		EndDate:       formatDate(r.EndDate),
		AdultCount:    r.AdultCount,
		ChildCount:    r.ChildCount,
		AdultAmount:   r.AdultAmount,
		ChildAmount:   r.ChildAmount,
	}
}

// ListRatePlans fetches one page of rate plans.
func (c *Client) ListRatePlans(ctx context.Context, rc RequestContext, q ListQuery) (Page[rateplan.RatePlan], error) {
	var raw rawListing
	if err := c.do(ctx, rc, http.MethodGet, ratesPath, q.values("lastKey"), nil, &raw); err != nil {
		return Page[rateplan.RatePlan]{}, err
	}
	p, err := normalizePage(raw, effectiveLimit(q), rawRatePlan.toRatePlan)
	if err != nil {
		return p, fmt.Errorf("GET %s: decode rate plans: %w", ratesPath, err)
	}
	return p, nil
}

// CreateRatePlan stores a new rate plan.
// POST: the returned plan carries the backend id; ErrMissingID if none was returned
func (c *Client) CreateRatePlan(ctx context.Context, rc RequestContext, r rateplan.RatePlan) (rateplan.RatePlan, error) {
	var resp struct {
		RatePlanID flexString `json:"rate_plan_id"`
	}
	if err := c.do(ctx, rc, http.MethodPost, ratesPath, nil, newRatePlanPayload(r), &resp); err != nil {
		return r, err
	}
	if resp.RatePlanID == "" {
		return r, fmt.Errorf("POST %s: %w", ratesPath, ErrMissingID)
	}
	r.Ref = record.Persisted(resp.RatePlanID.String())
	return r, nil
}

// UpdateRatePlan replaces a rate plan.
// PRE: r.Ref is persisted
func (c *Client) UpdateRatePlan(ctx context.Context, rc RequestContext, r rateplan.RatePlan) error {
	id, ok := r.Ref.BackendID()
	if !ok {
		return fmt.Errorf("update rate plan: %w", ErrMissingID)
	}
	return c.do(ctx, rc, http.MethodPut, ratesPath, url.Values{"rate_plan_id": {id}}, newRatePlanPayload(r), nil)
}

// DeleteRatePlan removes a rate plan.
func (c *Client) DeleteRatePlan(ctx context.Context, rc RequestContext, id string) error {
	return c.do(ctx, rc, http.MethodDelete, ratesPath, url.Values{"rate_plan_id": {id}}, nil, nil)
}
