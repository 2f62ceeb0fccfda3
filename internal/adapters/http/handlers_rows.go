package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/rateplan"
	"memberdesk/internal/domain/record"
)

// rowPage is the set of handlers behind one inline-edited table.
type rowPage struct {
	path   string
	list   http.HandlerFunc
	add    http.HandlerFunc
	save   http.HandlerFunc
	remove http.HandlerFunc
}

// rowTable describes one inline-edited resource.
type rowTable[T any] struct {
	path     string
	title    string
	template string
	pager    func(*workspace) *orchestrators.Pager[T]
	drafts   func(*workspace) *orchestrators.Drafts[T]
	resource func() orchestrators.RowResource[T]
	fetch    func(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[T], error)
	blank    func() T
	decode   func(r *http.Request) (T, error)
	// extra adds page data such as choices for select inputs. Optional.
	extra func(ctx context.Context, rc backend.RequestContext) (map[string]any, error)
}

func newRowPage[T any](t rowTable[T]) rowPage {
	return rowPage{
		path:   t.path,
		list:   t.handleList,
		add:    t.handleAdd,
		save:   t.handleSave,
		remove: t.handleDelete,
	}
}

func (t rowTable[T]) deps(ws *workspace) orchestrators.SaveRowDeps[T] {
	return orchestrators.SaveRowDeps[T]{
		Resource: t.resource(),
		Drafts:   t.drafts(ws),
		Audit:    auditRecorder(),
	}
}

// backToList returns to the table at its committed filters.
func (t rowTable[T]) backToList(w http.ResponseWriter, r *http.Request, ws *workspace) {
	filters, perPage := t.pager(ws).Filters()
	redirectBack(w, r, listURL(t.path, filters, perPage))
}

// handleList shows unsaved rows above the current page of saved rows.
func (t rowTable[T]) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rc := requestContext(sess)
	lp := listutil.ParseListParams(r.URL.Query(), app.Config.PageSize, nil)
	pager := t.pager(ws)

	view, err := pager.Navigate(ctx, orchestrators.NavigateInput{Filters: lp.Filters, PerPage: lp.PerPage, Nav: lp.Nav, From: lp.From},
		func(ctx context.Context, q backend.ListQuery) (backend.Page[T], error) {
			return t.fetch(ctx, rc, q)
		})
	if errors.Is(err, orchestrators.ErrStale) {
		http.Redirect(w, r, listURL(t.path, lp.Filters, lp.PerPage), http.StatusSeeOther)
		return
	}
	status := http.StatusOK
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		slog.Warn("row_list_failed", "path", t.path, "error", err)
		ws.flash(noticeError, errorNotice("Could not load "+t.title, err))
		status = http.StatusBadGateway
		filters, perPage := pager.Filters()
		view = orchestrators.PagerView[T]{State: pager.State(), Filters: filters, PerPage: perPage}
	}

	data := map[string]any{
		"Title":          t.title,
		"Path":           t.path,
		"Drafts":         t.drafts(ws).List(),
		"Rows":           view.Items,
		"PageInfo":       view.PageView(),
		"Search":         view.Filters.Search,
		"Status":         view.Filters.Status,
		"PerPage":        view.PerPage,
		"PerPageOptions": listutil.PerPageOptions,
		"RetryURL":       listURL(t.path, lp.Filters, lp.PerPage),
	}
	if t.extra != nil {
		more, err := t.extra(ctx, rc)
		if err != nil {
			if handleBackendAuth(w, r, sess, err) {
				return
			}
			ws.flash(noticeError, errorNotice("Could not load choices", err))
		}
		for k, v := range more {
			data[k] = v
		}
	}
	renderStatus(w, r, status, t.template, data)
}

// handleAdd inserts a blank unsaved row at the top of the table.
func (t rowTable[T]) handleAdd(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	_, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	t.drafts(ws).Put(t.blank())
	t.backToList(w, r, ws)
}

// handleSave creates an unsaved row or updates a saved one.
func (t rowTable[T]) handleSave(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	row, err := t.decode(r)
	if err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	deps := t.deps(ws)
	res, err := orchestrators.ExecuteSaveRow(r.Context(), requestContext(sess), orchestrators.SaveRowInput[T]{
		Row:   row,
		Actor: actorOf(r, sess),
	}, deps)
	label := firstNonBlank(deps.Resource.Label(row), deps.Resource.Name)
	switch {
	case err == nil && res.Created:
		ws.flash(noticeSuccess, fmt.Sprintf("Created %s.", label))
	case err == nil:
		ws.flash(noticeSuccess, fmt.Sprintf("Saved %s.", label))
	case handleBackendAuth(w, r, sess, err):
		return
	default:
		ws.flash(noticeError, errorNotice("Failed to save "+label, err))
	}
	t.backToList(w, r, ws)
}

// handleDelete discards an unsaved row or deletes a saved one.
func (t rowTable[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	ref, err := record.ParseRef(r.PostFormValue("Ref"))
	if err != nil {
		http.Error(w, "Invalid row reference", http.StatusBadRequest)
		return
	}
	deps := t.deps(ws)
	label := firstNonBlank(r.PostFormValue("Label"), deps.Resource.Name)
	called, err := orchestrators.ExecuteDeleteRow(r.Context(), requestContext(sess), orchestrators.DeleteRowInput{
		Ref:   ref,
		Label: label,
		Actor: actorOf(r, sess),
	}, deps)
	switch {
	case err == nil && called:
		ws.flash(noticeSuccess, fmt.Sprintf("Deleted %s.", label))
	case err == nil:
		ws.flash(noticeInfo, "Discarded unsaved row.")
	case handleBackendAuth(w, r, sess, err):
		return
	default:
		ws.flash(noticeError, errorNotice("Failed to delete "+label, err))
	}
	t.backToList(w, r, ws)
}

func organizationPage() rowPage {
	return newRowPage(rowTable[organization.Organization]{
		path:     "/organizations",
		title:    "Organizations",
		template: "organizations.html",
		pager:    func(ws *workspace) *orchestrators.Pager[organization.Organization] { return ws.Orgs },
		drafts:   func(ws *workspace) *orchestrators.Drafts[organization.Organization] { return ws.OrgDrafts },
		resource: func() orchestrators.RowResource[organization.Organization] {
			return orchestrators.OrganizationRows(app.Backend)
		},
		fetch: func(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[organization.Organization], error) {
			return app.Backend.ListOrganizations(ctx, rc, q)
		},
		blank: organization.New,
		decode: func(r *http.Request) (organization.Organization, error) {
			var f organizationForm
			if err := decodeForm(r, &f); err != nil {
				return organization.Organization{}, err
			}
			return f.row()
		},
		extra: func(context.Context, backend.RequestContext) (map[string]any, error) {
			return map[string]any{"Types": organization.Types}, nil
		},
	})
}

func eventPage() rowPage {
	return newRowPage(rowTable[event.Event]{
		path:     "/events",
		title:    "Events",
		template: "events.html",
		pager:    func(ws *workspace) *orchestrators.Pager[event.Event] { return ws.Events },
		drafts:   func(ws *workspace) *orchestrators.Drafts[event.Event] { return ws.EventDrafts },
		resource: func() orchestrators.RowResource[event.Event] {
			return orchestrators.EventRows(app.Backend)
		},
		fetch: func(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[event.Event], error) {
			return app.Backend.ListEvents(ctx, rc, q)
		},
		blank: func() event.Event { return event.New("") },
		decode: func(r *http.Request) (event.Event, error) {
			var f eventForm
			if err := decodeForm(r, &f); err != nil {
				return event.Event{}, err
			}
			return f.row()
		},
		extra: organizationChoices,
	})
}

func ratePlanPage() rowPage {
	return newRowPage(rowTable[rateplan.RatePlan]{
		path:     "/rates",
		title:    "Rate plans",
		template: "rates.html",
		pager:    func(ws *workspace) *orchestrators.Pager[rateplan.RatePlan] { return ws.Rates },
		drafts:   func(ws *workspace) *orchestrators.Drafts[rateplan.RatePlan] { return ws.RateDrafts },
		resource: func() orchestrators.RowResource[rateplan.RatePlan] {
			return orchestrators.RatePlanRows(app.Backend)
		},
		fetch: func(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[rateplan.RatePlan], error) {
			return app.Backend.ListRatePlans(ctx, rc, q)
		},
		blank: func() rateplan.RatePlan { return rateplan.New(time.Now()) },
		decode: func(r *http.Request) (rateplan.RatePlan, error) {
			var f ratePlanForm
			if err := decodeForm(r, &f); err != nil {
				return rateplan.RatePlan{}, err
			}
			return f.row()
		},
	})
}

// maxOrganizationChoices bounds the organization select on the events table.
const maxOrganizationChoices = 500

var errEnoughChoices = errors.New("enough organizations")

// organizationChoices lists organizations for the event table's select.
func organizationChoices(ctx context.Context, rc backend.RequestContext) (map[string]any, error) {
	var orgs []organization.Organization
	err := app.Backend.WalkOrganizations(ctx, rc, backend.ListQuery{Limit: 100}, func(o organization.Organization) error {
		orgs = append(orgs, o)
		if len(orgs) >= maxOrganizationChoices {
			return errEnoughChoices
		}
		return nil
	})
	if errors.Is(err, errEnoughChoices) {
		err = nil
	}
	return map[string]any{"Organizations": orgs}, err
}
