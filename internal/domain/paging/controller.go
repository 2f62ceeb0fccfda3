// Package paging implements navigation over keyed (cursor) listings.
//
// A keyed listing cannot be addressed by page number: the backend hands out an
// opaque key with each page that locates the start of the following page.
// The Controller remembers the keys it has already used so that the user can
// walk back through pages without re-fetching from the beginning.
package paging

// Key is an opaque continuation key issued by the backend.
// The zero value denotes "no key", i.e. the start of the listing.
type Key string

// IsZero reports whether k is the "no key" value.
func (k Key) IsZero() bool {
	return k == ""
}

// State is a read-only snapshot of a Controller.
type State struct {
	Page    int
	Key     Key
	History []Key
}

// Controller tracks the position within a keyed listing.
// INVARIANT: page >= 1
// INVARIANT: len(history) == page-1 whenever navigation was performed only via GoNext/GoPrevious
type Controller struct {
	page    int
	key     Key
	history []Key
}

// NewController returns a controller positioned at the first page.
// PRE: none
// POST: Page() == 1, Key() is zero, History() is empty
func NewController() *Controller {
	return &Controller{page: 1}
}

// ResetFilters returns the controller to the first page and forgets all keys.
// Callers must invoke it whenever the filter set (search text, status) changes,
// since keys issued under one filter are meaningless under another.
// PRE: none
// POST: Page() == 1, Key() is zero, History() is empty
func (c *Controller) ResetFilters() {
	c.page = 1
	c.key = ""
	c.history = nil
}

// GoNext advances to the page located by next.
// PRE: next is the key returned by the most recent successful fetch, or zero
// POST: if next is zero nothing changes and false is returned; otherwise the
// previous key (possibly zero) is pushed, next becomes current, page is incremented
func (c *Controller) GoNext(next Key) bool {
	if next.IsZero() {
		return false
	}
	c.normalize()
	c.history = append(c.history, c.key)
	c.key = next
	c.page++
	return true
}

// GoPrevious steps back to the previously visited page.
// PRE: none
// POST: if history is empty nothing changes and false is returned; otherwise the
// last pushed key becomes current and page is decremented, never below 1
func (c *Controller) GoPrevious() bool {
	c.normalize()
	if len(c.history) == 0 {
		return false
	}
	last := len(c.history) - 1
	c.key = c.history[last]
	c.history = c.history[:last]
	if c.page > 1 {
		c.page--
	}
	return true
}

// Page returns the 1-based current page number.
func (c *Controller) Page() int {
	c.normalize()
	return c.page
}

// Key returns the key used to fetch the current page.
func (c *Controller) Key() Key {
	return c.key
}

// History returns a copy of the stack of keys for earlier pages.
func (c *Controller) History() []Key {
	out := make([]Key, len(c.history))
	copy(out, c.history)
	return out
}

// Clone returns an independent copy of c.
func (c *Controller) Clone() Controller {
	c.normalize()
	return Controller{page: c.page, key: c.key, history: c.History()}
}

// CanGoPrevious reports whether GoPrevious would move.
func (c *Controller) CanGoPrevious() bool {
	return len(c.history) > 0
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	return State{Page: c.Page(), Key: c.key, History: c.History()}
}

// normalize makes the zero Controller usable.
func (c *Controller) normalize() {
	if c.page < 1 {
		c.page = 1
	}
}
