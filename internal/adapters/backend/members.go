package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/paging"
)

const membersPath = "/members"

// rawMember accepts both member shapes: the spreadsheet-style record
// (Name, EmailAddress, PhoneNo, Status, Zip) and the profile-style record
// (firstName/lastName, email, phone, status, zipCode).
type rawMember struct {
	UUID     flexString `json:"UUID"`
	ID       flexString `json:"id"`
	FamilyID flexString `json:"FamilyId"`
	MemberID flexString `json:"MemberId"`

	Name      flexString `json:"Name"`
	FirstName flexString `json:"firstName"`
	LastName  flexString `json:"lastName"`

	EmailAddress flexString `json:"EmailAddress"`
	Email        flexString `json:"email"`
	PhoneNo      flexString `json:"PhoneNo"`
	Phone        flexString `json:"phone"`

	Gender      flexString `json:"Gender"`
	DOB         flexString `json:"DOB"`
	Activity    flexString `json:"Activity"`
	Status      flexString `json:"Status"`
	StatusLower flexString `json:"status"`

	Street  flexString `json:"Street"`
	City    flexString `json:"City"`
	State   flexString `json:"State"`
	Zip     flexString `json:"Zip"`
	ZipCode flexString `json:"zipCode"`

	WhatsappGroupMember flexBool `json:"WhatsappGroupMember"`
	SendEmail           flexBool `json:"SendEmail"`

	PaymentMethod   flexString `json:"PaymentMethod"`
	Amount          flexString `json:"Amount"`
	ForYear         flexString `json:"ForYear"`
	TransactionDate flexString `json:"TransactionDate"`
	DepositDate     flexString `json:"DepositDate"`
	Comments        flexString `json:"Comments"`

	IsPrimary flexBool `json:"isPrimary"`
	Family    *struct {
		Members []rawMember `json:"members"`
	} `json:"family"`
}

// toMember normalizes r into the canonical record.
func (r rawMember) toMember() member.Member {
	name := firstNonEmpty(r.Name)
	if name == "" {
		name = strings.TrimSpace(r.FirstName.String() + " " + r.LastName.String())
	}
	m := member.Member{
		UUID:                firstNonEmpty(r.UUID, r.ID),
		FamilyID:            r.FamilyID.String(),
		MemberID:            r.MemberID.String(),
		Name:                name,
		EmailAddress:        firstNonEmpty(r.EmailAddress, r.Email),
		PhoneNo:             firstNonEmpty(r.PhoneNo, r.Phone),
		Gender:              r.Gender.String(),
		DOB:                 ParseDate(r.DOB.String()),
		Activity:            r.Activity.String(),
		Status:              firstNonEmpty(r.Status, r.StatusLower),
		Street:              r.Street.String(),
		City:                r.City.String(),
		State:               r.State.String(),
		Zip:                 firstNonEmpty(r.Zip, r.ZipCode),
		WhatsappGroupMember: bool(r.WhatsappGroupMember),
		SendEmail:           bool(r.SendEmail),
		PaymentMethod:       r.PaymentMethod.String(),
		Amount:              r.Amount.String(),
		ForYear:             r.ForYear.String(),
		TransactionDate:     ParseDate(r.TransactionDate.String()),
		DepositDate:         ParseDate(r.DepositDate.String()),
		Comments:            r.Comments.String(),
		IsPrimary:           bool(r.IsPrimary),
	}
	if r.Family != nil {
		for _, fm := range r.Family.Members {
			f := fm.toMember()
			if f.UUID != "" && f.UUID == m.UUID {
				continue
			}
			m.Family = append(m.Family, f)
		}
	}
	m.Normalize()
	return m
}

// memberPayload is the body sent on create and update.
type memberPayload struct {
	UUID                string `json:"UUID,omitempty"`
	FamilyID            string `json:"FamilyId,omitempty"`
	MemberID            string `json:"MemberId,omitempty"`
	Name                string `json:"Name"`
	EmailAddress        string `json:"EmailAddress"`
	PhoneNo             string `json:"PhoneNo"`
	Gender              string `json:"Gender"`
	DOB                 string `json:"DOB,omitempty"`
	Activity            string `json:"Activity,omitempty"`
	Status              string `json:"Status,omitempty"`
	Street              string `json:"Street"`
	City                string `json:"City"`
	State               string `json:"State"`
	Zip                 string `json:"Zip"`
	WhatsappGroupMember bool   `json:"WhatsappGroupMember"`
	SendEmail           bool   `json:"SendEmail"`
	PaymentMethod       string `json:"PaymentMethod,omitempty"`
	Amount              any    `json:"Amount,omitempty"`
	ForYear             string `json:"ForYear,omitempty"`
	TransactionDate     string `json:"TransactionDate,omitempty"`
	DepositDate         string `json:"DepositDate,omitempty"`
	Comments            string `json:"Comments,omitempty"`
	IsPrimary           bool   `json:"isPrimary"`
}

func newMemberPayload(m member.Member) memberPayload {
	return memberPayload{
		UUID:                m.UUID,
		FamilyID:            m.FamilyID,
		MemberID:            m.MemberID,
		Name:                m.Name,
		EmailAddress:        m.EmailAddress,
		PhoneNo:             m.PhoneNo,
		Gender:              m.Gender,
		DOB:                 formatDate(m.DOB),
		Activity:            m.Activity,
		Status:              m.Status,
		Street:              m.Street,
		City:                m.City,
		State:               m.State,
		Zip:                 m.Zip,
		WhatsappGroupMember: m.WhatsappGroupMember,
		SendEmail:           m.SendEmail,
		PaymentMethod:       m.PaymentMethod,
		Amount:              amountValue(m.Amount),
		ForYear:             m.ForYear,
		TransactionDate:     formatDate(m.TransactionDate),
		DepositDate:         formatDate(m.DepositDate),
		Comments:            m.Comments,
		IsPrimary:           m.IsPrimary,
	}
}

// amountValue sends numeric amounts as JSON numbers and anything else
// (such as "N/A") as a string.
func amountValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64); err == nil {
		return f
	}
	return s
}

// CreatedMember identifies a member the backend has just stored.
type CreatedMember struct {
	FamilyID string
	MemberID string
}

// ListMembers fetches one page of members.
// PRE: rc carries a valid token
// POST: returns the normalized page or an error; nothing is cached
func (c *Client) ListMembers(ctx context.Context, rc RequestContext, q ListQuery) (Page[member.Member], error) {
	var raw rawListing
	if err := c.do(ctx, rc, http.MethodGet, membersPath, q.values("lastKey"), nil, &raw); err != nil {
		return Page[member.Member]{}, err
	}
	p, err := normalizePage(raw, effectiveLimit(q), rawMember.toMember)
	if err != nil {
		return Page[member.Member]{}, fmt.Errorf("GET %s: decode members: %w", membersPath, err)
	}
	return p, nil
}

// CreateMember stores a new member. When m.FamilyID is empty the backend
// allocates a new family.
// PRE: m has passed validation
// POST: FamilyID and MemberID are whatever the backend returned; either may be empty
func (c *Client) CreateMember(ctx context.Context, rc RequestContext, m member.Member) (CreatedMember, error) {
	var resp struct {
		FamilyID flexString `json:"FamilyId"`
		MemberID flexString `json:"MemberId"`
	}
	if err := c.do(ctx, rc, http.MethodPost, membersPath, nil, newMemberPayload(m), &resp); err != nil {
		return CreatedMember{}, err
	}
	return CreatedMember{FamilyID: resp.FamilyID.String(), MemberID: resp.MemberID.String()}, nil
}

// UpdateMember replaces an existing member. The backend locates the record
// by the FamilyId and MemberId in the body.
// PRE: m.FamilyID and m.MemberID are set
func (c *Client) UpdateMember(ctx context.Context, rc RequestContext, m member.Member) error {
	if _, _, err := m.Identity(); err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return c.do(ctx, rc, http.MethodPut, membersPath, nil, newMemberPayload(m), nil)
}

// DeleteMember removes a single member.
// PRE: familyID and memberID are non-empty
func (c *Client) DeleteMember(ctx context.Context, rc RequestContext, familyID, memberID string) error {
	q := url.Values{"familyId": {familyID}, "memberId": {memberID}}
	return c.do(ctx, rc, http.MethodDelete, membersPath, q, nil, nil)
}

// WalkMembers calls fn for every member matching q, following continuation
// keys until the backend reports no further page.
// PRE: fn is non-nil
// POST: stops at the first error from the backend or fn; ErrKeyLoop if a key repeats
func (c *Client) WalkMembers(ctx context.Context, rc RequestContext, q ListQuery, fn func(member.Member) error) error {
	return walk(ctx, q, func(ctx context.Context, q ListQuery) (Page[member.Member], error) {
		return c.ListMembers(ctx, rc, q)
	}, fn)
}

// walk drives a keyed listing to exhaustion.
func walk[T any](ctx context.Context, q ListQuery, list func(context.Context, ListQuery) (Page[T], error), fn func(T) error) error {
	seen := map[paging.Key]bool{}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := list(ctx, q)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if !page.HasNext() {
			return nil
		}
		if seen[page.NextKey] {
			return fmt.Errorf("%w: %q", ErrKeyLoop, page.NextKey)
		}
		seen[page.NextKey] = true
		q.Key = page.NextKey
	}
}
