package web

import (
	"sync"
	"time"

	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/rateplan"
	"memberdesk/internal/domain/record"
)

// Notice kinds
const (
	noticeSuccess = "success"
	noticeError   = "error"
	noticeInfo    = "info"
)

// workspaceIdle is how long an untouched workspace survives.
const workspaceIdle = 12 * time.Hour

// notice is one flash message shown on the next rendered page.
type notice struct {
	Kind string
	Text string
}

// workspace is one admin session's in-memory UI state: list positions,
// unsaved rows and pending notices.
type workspace struct {
	Members *orchestrators.Pager[member.Member]
	Orgs    *orchestrators.Pager[organization.Organization]
	Events  *orchestrators.Pager[event.Event]
	Rates   *orchestrators.Pager[rateplan.RatePlan]

	OrgDrafts   *orchestrators.Drafts[organization.Organization]
	EventDrafts *orchestrators.Drafts[event.Event]
	RateDrafts  *orchestrators.Drafts[rateplan.RatePlan]

	mu       sync.Mutex
	notices  []notice
	listed   map[string]member.Member // last rendered members page, by identityKey
	lastUsed time.Time
}

func newWorkspace(perPage int) *workspace {
	return &workspace{
		Members:     orchestrators.NewPager[member.Member](perPage),
		Orgs:        orchestrators.NewPager[organization.Organization](perPage),
		Events:      orchestrators.NewPager[event.Event](perPage),
		Rates:       orchestrators.NewPager[rateplan.RatePlan](perPage),
		OrgDrafts:   orchestrators.NewDrafts(func(o organization.Organization) record.Ref { return o.Ref }),
		EventDrafts: orchestrators.NewDrafts(func(e event.Event) record.Ref { return e.Ref }),
		RateDrafts:  orchestrators.NewDrafts(func(r rateplan.RatePlan) record.Ref { return r.Ref }),
		listed:      map[string]member.Member{},
		lastUsed:    time.Now(),
	}
}

// flash queues a notice for the next page.
func (ws *workspace) flash(kind, text string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.notices = append(ws.notices, notice{Kind: kind, Text: text})
}

// takeNotices returns and clears the pending notices.
func (ws *workspace) takeNotices() []notice {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := ws.notices
	ws.notices = nil
	return out
}

func identityKey(familyID, memberID string) string {
	return familyID + "/" + memberID
}

// remember keeps the members just rendered so the edit form can open them.
// Family members nested under a primary are remembered too.
func (ws *workspace) remember(members []member.Member) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.listed = make(map[string]member.Member, len(members))
	for _, m := range members {
		ws.listed[identityKey(m.FamilyID, m.MemberID)] = m
		for _, f := range m.Family {
			if _, ok := ws.listed[identityKey(f.FamilyID, f.MemberID)]; !ok {
				ws.listed[identityKey(f.FamilyID, f.MemberID)] = f
			}
		}
	}
}

// lookup returns a remembered member.
func (ws *workspace) lookup(familyID, memberID string) (member.Member, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	m, ok := ws.listed[identityKey(familyID, memberID)]
	return m, ok
}

// workspaceRegistry maps session ids to workspaces.
type workspaceRegistry struct {
	mu        sync.Mutex
	byID      map[string]*workspace
	lastPrune time.Time
}

func newWorkspaceRegistry() *workspaceRegistry {
	return &workspaceRegistry{byID: map[string]*workspace{}, lastPrune: time.Now()}
}

// get returns the workspace for a session, creating it on first use.
// Idle workspaces are pruned at most every few minutes.
func (r *workspaceRegistry) get(sessionID string, perPage int) *workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.lastPrune) > 5*time.Minute {
		for id, ws := range r.byID {
			if now.Sub(ws.lastUsed) > workspaceIdle {
				delete(r.byID, id)
			}
		}
		r.lastPrune = now
	}
	ws, ok := r.byID[sessionID]
	if !ok {
		ws = newWorkspace(perPage)
		r.byID[sessionID] = ws
	}
	ws.lastUsed = now
	return ws
}

// drop discards a session's workspace.
func (r *workspaceRegistry) drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, sessionID)
}

// len reports how many workspaces are live.
func (r *workspaceRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
