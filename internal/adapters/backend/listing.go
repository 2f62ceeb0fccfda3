package backend

import (
	"encoding/json"
	"net/url"
	"strconv"

	"memberdesk/internal/domain/paging"
)

// DefaultLimit is the page size used when a query does not set one.
const DefaultLimit = 10

// ListQuery selects one page of a keyed listing.
type ListQuery struct {
	Search string
	Status string // members only
	Limit  int
	Key    paging.Key
}

func (q ListQuery) values(keyParam string) url.Values {
	v := url.Values{}
	v.Set("search", q.Search)
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if !q.Key.IsZero() {
		v.Set(keyParam, string(q.Key))
	}
	return v
}

// Page is one normalized page of a listing.
// INVARIANT: NextKey is zero exactly when the backend reported no further page
type Page[T any] struct {
	Items      []T
	NextKey    paging.Key
	Total      int
	TotalPages int
}

// HasNext reports whether another page can be fetched.
func (p Page[T]) HasNext() bool {
	return !p.NextKey.IsZero()
}

// rawListing accepts both listing envelopes the backend produces:
//
//	members:  {members, lastKey, totalPages, totalMembers, totalItems, hasNextPage}
//	others:   {data, next_key, next_page, count, total}
type rawListing struct {
	Data    json.RawMessage `json:"data"`
	Members json.RawMessage `json:"members"`

	LastKey flexString `json:"lastKey"`
	NextKey flexString `json:"next_key"`

	Total        flexInt `json:"total"`
	TotalMembers flexInt `json:"totalMembers"`
	TotalItems   flexInt `json:"totalItems"`
	TotalPages   flexInt `json:"totalPages"`
}

// items returns whichever item array the envelope carries.
func (r rawListing) items() json.RawMessage {
	if len(r.Members) > 0 && string(r.Members) != "null" {
		return r.Members
	}
	return r.Data
}

// normalizePage converts a raw listing into a Page using conv per item.
// PRE: limit > 0
// POST: TotalPages >= 1
func normalizePage[R, T any](raw rawListing, limit int, conv func(R) T) (Page[T], error) {
	var rows []R
	if body := raw.items(); len(body) > 0 && string(body) != "null" {
		if err := json.Unmarshal(body, &rows); err != nil {
			return Page[T]{}, err
		}
	}
	p := Page[T]{
		Items:   make([]T, 0, len(rows)),
		NextKey: paging.Key(firstNonEmpty(raw.LastKey, raw.NextKey)),
	}
	for _, r := range rows {
		p.Items = append(p.Items, conv(r))
	}

	switch {
	case raw.TotalMembers > 0:
		p.Total = int(raw.TotalMembers)
	case raw.Total > 0:
		p.Total = int(raw.Total)
	case raw.TotalItems > 0:
		p.Total = int(raw.TotalItems)
	default:
		p.Total = len(p.Items)
	}

	p.TotalPages = int(raw.TotalPages)
	if p.TotalPages <= 0 && limit > 0 {
		p.TotalPages = (p.Total + limit - 1) / limit
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	return p, nil
}

func effectiveLimit(q ListQuery) int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}
