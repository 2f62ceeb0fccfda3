package orchestrators

import (
	"context"
	"errors"
	"sync"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/domain/paging"
)

// ErrStale is returned when a newer navigation finished or started before
// this one completed. Its result has been discarded.
var ErrStale = errors.New("listing superseded by a newer request")

// FetchFunc loads one keyed page.
type FetchFunc[T any] func(ctx context.Context, q backend.ListQuery) (backend.Page[T], error)

// PagerView is what a list page renders.
type PagerView[T any] struct {
	Items      []T
	State      paging.State
	Filters    listutil.Filters
	PerPage    int
	Total      int
	TotalPages int
	HasNext    bool
}

// PageView converts the view into rendering metadata.
func (v PagerView[T]) PageView() listutil.PageView {
	return listutil.NewPageView(v.State.Page, v.TotalPages, v.Total, v.PerPage, len(v.Items), v.HasNext, len(v.State.History) > 0)
}

// Pager keeps one session's position in a keyed listing.
//
// Navigation is computed against a candidate copy of the controller and
// committed only when the fetch for the new position succeeds, so a failed
// fetch leaves page, key and history untouched. Every navigation takes a
// generation stamp; only the latest generation may commit. A navigation
// that names the page it was issued from is applied only while that page
// is still the committed one, so a repeated click moves once.
// INVARIANT: ctrl always describes the last page successfully shown
type Pager[T any] struct {
	mu      sync.Mutex
	ctrl    paging.Controller
	filters listutil.Filters
	perPage int
	nextKey paging.Key
	gen     uint64
	loaded  bool
}

// NewPager creates a pager positioned on page 1.
// PRE: perPage > 0
func NewPager[T any](perPage int) *Pager[T] {
	if perPage < 1 {
		perPage = backend.DefaultLimit
	}
	return &Pager[T]{perPage: perPage}
}

// NavigateInput describes one list request.
type NavigateInput struct {
	Filters listutil.Filters
	PerPage int // 0 keeps the current page size
	Nav     listutil.Nav
	From    int // page the request was issued from; 0 applies Nav unconditionally
}

// Navigate applies the request and fetches the resulting page.
// A change of filters or page size resets to page 1 before nav is applied.
// When From is set and differs from the committed page, nav is dropped and
// the committed page is refetched.
// PRE: fetch is non-nil
// POST: on success the new position is committed and its next key cached;
// on error or ErrStale the committed position is unchanged
func (p *Pager[T]) Navigate(ctx context.Context, in NavigateInput, fetch FetchFunc[T]) (PagerView[T], error) {
	p.mu.Lock()
	candidate := p.ctrl.Clone()
	perPage := p.perPage
	if in.PerPage > 0 {
		perPage = in.PerPage
	}
	if in.Filters != p.filters || perPage != p.perPage {
		candidate.ResetFilters()
	} else if in.From == 0 || in.From == candidate.Page() {
		switch in.Nav {
		case listutil.NavNext:
			candidate.GoNext(p.nextKey)
		case listutil.NavPrev:
			candidate.GoPrevious()
		}
	}
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	page, err := fetch(ctx, backend.ListQuery{
		Search: in.Filters.Search,
		Status: in.Filters.Status,
		Limit:  perPage,
		Key:    candidate.Key(),
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return PagerView[T]{}, ErrStale
	}
	if err != nil {
		return PagerView[T]{}, err
	}
	p.ctrl = candidate
	p.filters = in.Filters
	p.perPage = perPage
	p.nextKey = page.NextKey
	p.loaded = true
	return PagerView[T]{
		Items:      page.Items,
		State:      candidate.State(),
		Filters:    in.Filters,
		PerPage:    perPage,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext(),
	}, nil
}

// Refresh refetches the committed position with the committed filters.
func (p *Pager[T]) Refresh(ctx context.Context, fetch FetchFunc[T]) (PagerView[T], error) {
	p.mu.Lock()
	in := NavigateInput{Filters: p.filters, PerPage: p.perPage}
	p.mu.Unlock()
	return p.Navigate(ctx, in, fetch)
}

// State returns the committed position.
func (p *Pager[T]) State() paging.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.State()
}

// Filters returns the committed filters and page size.
func (p *Pager[T]) Filters() (listutil.Filters, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filters, p.perPage
}
