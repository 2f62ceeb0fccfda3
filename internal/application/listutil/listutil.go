// Package listutil parses list-view query parameters and shapes keyed
// pagination state for rendering.
package listutil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Nav is a navigation request carried by the nav query parameter.
type Nav string

const (
	NavNone Nav = ""
	NavNext Nav = "next"
	NavPrev Nav = "prev"
)

// Filters are the server-side list filters. Any change to them resets
// pagination to the first page.
type Filters struct {
	Search string // free-text search query (q)
	Status string // exact status filter; empty means all
}

// IsZero reports whether no filter is applied.
func (f Filters) IsZero() bool {
	return f.Search == "" && f.Status == ""
}

// Query encodes the filters for links.
func (f Filters) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return q
}

// ListParams combines all list view parameters.
type ListParams struct {
	Filters
	PerPage int
	Nav     Nav
	From    int // page the nav link was rendered on; 0 when absent
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 10

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100}

// ParsePerPage extracts per_page, falling back to def when absent or not allowed.
// POST: result is def or a member of PerPageOptions
func ParsePerPage(q url.Values, def int) int {
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !isValidPerPage(perPage) {
		return def
	}
	return perPage
}

// ParseNav extracts the nav parameter. Unknown values are ignored.
func ParseNav(q url.Values) Nav {
	switch Nav(strings.ToLower(q.Get("nav"))) {
	case NavNext:
		return NavNext
	case NavPrev:
		return NavPrev
	}
	return NavNone
}

// ParseFrom extracts the from parameter. Anything but a positive page number is 0.
func ParseFrom(q url.Values) int {
	from, err := strconv.Atoi(q.Get("from"))
	if err != nil || from < 1 {
		return 0
	}
	return from
}

// ParseFilters extracts q and status. status must be one of allowedStatus
// (case-insensitive) or it is dropped.
// POST: Status is either empty or the canonical spelling from allowedStatus
func ParseFilters(q url.Values, allowedStatus []string) Filters {
	f := Filters{Search: strings.TrimSpace(q.Get("q"))}
	status := strings.TrimSpace(q.Get("status"))
	for _, s := range allowedStatus {
		if strings.EqualFold(status, s) {
			f.Status = s
			break
		}
	}
	return f
}

// ParseListParams parses all list parameters from URL query values.
func ParseListParams(q url.Values, defaultPerPage int, allowedStatus []string) ListParams {
	if defaultPerPage < 1 {
		defaultPerPage = DefaultPerPage
	}
	return ListParams{
		Filters: ParseFilters(q, allowedStatus),
		PerPage: ParsePerPage(q, defaultPerPage),
		Nav:     ParseNav(q),
		From:    ParseFrom(q),
	}
}

// PageView carries keyed-pagination metadata for rendering.
type PageView struct {
	Page       int // current page (1-indexed)
	TotalPages int // as reported by the backend; at least 1
	Total      int // total matching rows
	PerPage    int
	Count      int // rows on this page
	HasNext    bool
	HasPrev    bool
}

// NewPageView builds a PageView.
// PRE: page >= 1
// POST: TotalPages >= Page
func NewPageView(page, totalPages, total, perPage, count int, hasNext, hasPrev bool) PageView {
	if page < 1 {
		page = 1
	}
	if totalPages < page {
		totalPages = page
	}
	return PageView{
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		PerPage:    perPage,
		Count:      count,
		HasNext:    hasNext,
		HasPrev:    hasPrev,
	}
}

// Label returns "Page N of M".
func (p PageView) Label() string {
	return fmt.Sprintf("Page %d of %d", p.Page, p.TotalPages)
}

// StartRow returns the 1-indexed first row number on the current page.
// POST: Returns 0 if the page is empty
func (p PageView) StartRow() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Page-1)*p.PerPage + 1
}

// EndRow returns the 1-indexed last row number on the current page.
func (p PageView) EndRow() int {
	if p.Count == 0 {
		return 0
	}
	return p.StartRow() + p.Count - 1
}

// ShowPagination returns true if pagination controls should be displayed.
func (p PageView) ShowPagination() bool {
	return p.HasNext || p.HasPrev
}

func isValidPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
