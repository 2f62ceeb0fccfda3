package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/submission"
	"memberdesk/internal/domain/validation"
)

// memberStatuses are the status filter choices.
var memberStatuses = []string{member.StatusActive, member.StatusInactive}

// membersRefreshURL returns to the listing at its current position, refetched.
const membersRefreshURL = "/members?refresh=1"

// maxImportBytes bounds an uploaded CSV.
const maxImportBytes = 10 << 20

// listURL rebuilds a list URL for filters and page size, without nav.
func listURL(path string, f listutil.Filters, perPage int) string {
	q := f.Query()
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

// handleMembers lists members one keyed page at a time.
// nav=next|prev moves through the listing from the page named by from;
// changing q, status or per_page starts again from page 1. refresh
// refetches the current page as it stands.
func handleMembers(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	rc := requestContext(sess)
	fetch := func(ctx context.Context, q backend.ListQuery) (backend.Page[member.Member], error) {
		return app.Backend.ListMembers(ctx, rc, q)
	}

	var (
		view orchestrators.PagerView[member.Member]
		err  error
		lp   listutil.ListParams
	)
	if r.URL.Query().Has("refresh") {
		lp.Filters, lp.PerPage = ws.Members.Filters()
		view, err = ws.Members.Refresh(r.Context(), fetch)
	} else {
		lp = listutil.ParseListParams(r.URL.Query(), app.Config.PageSize, memberStatuses)
		view, err = ws.Members.Navigate(r.Context(), orchestrators.NavigateInput{
			Filters: lp.Filters,
			PerPage: lp.PerPage,
			Nav:     lp.Nav,
			From:    lp.From,
		}, fetch)
	}
	if errors.Is(err, orchestrators.ErrStale) {
		http.Redirect(w, r, listURL("/members", lp.Filters, lp.PerPage), http.StatusSeeOther)
		return
	}
	status := http.StatusOK
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		slog.Warn("member_list_failed", "error", err)
		ws.flash(noticeError, errorNotice("Could not load members", err))
		status = http.StatusBadGateway
		filters, perPage := ws.Members.Filters()
		view = orchestrators.PagerView[member.Member]{State: ws.Members.State(), Filters: filters, PerPage: perPage}
	}
	ws.remember(view.Items)

	renderStatus(w, r, status, "members.html", map[string]any{
		"Members":        view.Items,
		"PageInfo":       view.PageView(),
		"Search":         view.Filters.Search,
		"Status":         view.Filters.Status,
		"PerPage":        view.PerPage,
		"PerPageOptions": listutil.PerPageOptions,
		"Statuses":       memberStatuses,
		"HasFilters":     !view.Filters.IsZero(),
		"RetryURL":       listURL("/members", lp.Filters, lp.PerPage),
	})
}

// memberFormRow is one family row as rendered.
type memberFormRow struct {
	Index  int
	Ref    string
	Local  bool
	Member member.Member
	Errors validation.Errors
}

// renderMemberForm shows the member dialog for f.
func renderMemberForm(w http.ResponseWriter, r *http.Request, status int, f familyForm, verr *orchestrators.FamilyValidationError) {
	rows := make([]memberFormRow, 0, len(f.Dependents))
	for i, d := range f.Dependents {
		ref, err := record.ParseRef(d.Ref)
		row := memberFormRow{Index: i, Ref: d.Ref, Local: err != nil || ref.IsLocal(), Member: d.Member}
		if verr != nil {
			row.Errors = verr.Dependents[i]
		}
		rows = append(rows, row)
	}
	var primaryErrs validation.Errors
	if verr != nil {
		primaryErrs = verr.Primary
	}
	action := "/members/new"
	title := "Register member"
	if f.mode() == submission.ModeEdit {
		action = "/members/edit"
		title = "Edit member"
		if !f.Primary.IsPrimary {
			title = "Edit family member"
		}
	}
	renderStatus(w, r, status, "member_form.html", map[string]any{
		"Title":         title,
		"PrimaryRecord": f.mode() == submission.ModeCreate || f.Primary.IsPrimary,
		"Action":        action,
		"Mode":          string(f.mode()),
		"Primary":       f.Primary,
		"Rows":          rows,
		"PrimaryErrors": primaryErrs,
		"Genders":       member.Genders,
		"Statuses":      memberStatuses,
		"States":        validation.USStates,
		"Payments":      []string{member.PaymentZelle, member.PaymentPayPal},
	})
}

// handleMemberNew shows a blank registration form (GET) or submits it (POST).
func handleMemberNew(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		primary := member.Member{
			Status:    member.StatusActive,
			Gender:    member.Genders[0],
			ForYear:   strconv.Itoa(time.Now().Year()),
			IsPrimary: true,
			SendEmail: true,
		}
		renderMemberForm(w, r, http.StatusOK, familyForm{Mode: string(submission.ModeCreate), Primary: primary}, nil)
		return
	}
	submitFamily(w, r, submission.ModeCreate)
}

// handleMemberEdit opens a listed member (GET) or submits changes (POST).
// Existing family members are shown read-only; new ones can be added to a
// primary member only.
func handleMemberEdit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodPost {
		submitFamily(w, r, submission.ModeEdit)
		return
	}
	_, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	m, found := ws.lookup(q.Get("family"), q.Get("member"))
	if !found {
		ws.flash(noticeError, "That member is no longer on the current page. Reload the list and try again.")
		http.Redirect(w, r, "/members", http.StatusSeeOther)
		return
	}

	f := familyForm{Mode: string(submission.ModeEdit), Primary: m}
	for _, d := range m.Family {
		if !m.IsPrimary || d.MemberID == m.MemberID || d.MemberID == "" {
			continue
		}
		f.Dependents = append(f.Dependents, dependentForm{Ref: record.Persisted(d.MemberID).String(), Member: d})
	}
	f.Primary.Family = nil
	renderMemberForm(w, r, http.StatusOK, f, nil)
}

// handleMemberFamily adds or removes a family row and redraws the form.
func handleMemberFamily(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var f familyForm
	if err := decodeForm(r, &f); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	f.applyOp()
	renderMemberForm(w, r, http.StatusOK, f, nil)
}

// submitFamily runs the submission workflow for the posted form. On
// completion the browser returns to the refreshed listing; validation and
// primary failures keep the form as entered.
func submitFamily(w http.ResponseWriter, r *http.Request, mode submission.Mode) {
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	var f familyForm
	if err := decodeForm(r, &f); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	f.Mode = string(mode)
	if mode == submission.ModeEdit {
		if listed, found := ws.lookup(f.Primary.FamilyID, f.Primary.MemberID); found {
			f.Primary.IsPrimary = listed.IsPrimary
		}
	}

	out, err := orchestrators.ExecuteSubmitFamily(r.Context(), requestContext(sess), orchestrators.SubmitFamilyInput{
		Mode:       mode,
		Primary:    f.Primary,
		Dependents: f.rows(),
		Actor:      actorOf(r, sess),
	}, orchestrators.SubmitFamilyDeps{
		Members:  app.Backend,
		Audit:    auditRecorder(),
		Observer: submissionObserver(),
	})
	if err != nil {
		var verr *orchestrators.FamilyValidationError
		if errors.As(err, &verr) {
			ws.flash(noticeError, "Please fix the highlighted fields.")
			renderMemberForm(w, r, http.StatusUnprocessableEntity, f, verr)
			return
		}
		if errors.Is(err, orchestrators.ErrNotPrimary) {
			ws.flash(noticeError, "Family members can only be added to a primary member.")
			f.Dependents = nil
			renderMemberForm(w, r, http.StatusUnprocessableEntity, f, nil)
			return
		}
		internalError(w, err)
		return
	}

	if out.State == submission.StatePrimaryFailed && handleBackendAuth(w, r, sess, out.PrimaryErr) {
		return
	}
	successes, failures := out.Notices()
	for _, s := range successes {
		ws.flash(noticeSuccess, s)
	}
	for _, s := range failures {
		ws.flash(noticeError, s)
	}
	if out.State == submission.StatePrimaryFailed {
		renderMemberForm(w, r, http.StatusBadGateway, f, nil)
		return
	}
	redirectBack(w, r, membersRefreshURL)
}

// handleMemberDelete confirms (GET) and deletes (POST) a single member.
func handleMemberDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		m, found := ws.lookup(q.Get("family"), q.Get("member"))
		if !found {
			ws.flash(noticeError, "That member is no longer on the current page. Reload the list and try again.")
			http.Redirect(w, r, "/members", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "member_delete.html", map[string]any{"Member": m})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("Name")
	err := orchestrators.ExecuteDeleteMember(r.Context(), requestContext(sess), orchestrators.DeleteMemberInput{
		FamilyID: r.PostFormValue("FamilyID"),
		MemberID: r.PostFormValue("MemberID"),
		Name:     name,
		Actor:    actorOf(r, sess),
	}, orchestrators.DeleteMemberDeps{Members: app.Backend, Audit: auditRecorder()})
	switch {
	case err == nil:
		ws.flash(noticeSuccess, fmt.Sprintf("Deleted %s.", firstNonBlank(name, "member")))
	case handleBackendAuth(w, r, sess, err):
		return
	default:
		slog.Warn("member_delete_failed", "error", err)
		ws.flash(noticeError, errorNotice("Failed to delete "+firstNonBlank(name, "member"), err))
	}
	redirectBack(w, r, membersRefreshURL)
}

// handleMemberImport shows the upload form (GET) and imports a CSV (POST).
func handleMemberImport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	data := map[string]any{"Columns": orchestrators.MemberColumns}
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "import.html", data)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		ws.flash(noticeError, "Upload a CSV file of at most 10 MB.")
		renderStatus(w, r, http.StatusBadRequest, "import.html", data)
		return
	}
	file, _, err := r.FormFile("File")
	if err != nil {
		ws.flash(noticeError, "Choose a CSV file to import.")
		renderStatus(w, r, http.StatusBadRequest, "import.html", data)
		return
	}
	defer file.Close()

	res, err := orchestrators.ExecuteImportMembers(r.Context(), requestContext(sess), orchestrators.ImportMembersInput{
		Reader: file,
		Actor:  actorOf(r, sess),
	}, orchestrators.ImportMembersDeps{Members: app.Backend, Audit: auditRecorder()})
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		ws.flash(noticeError, errorNotice("Import failed", err))
		renderStatus(w, r, http.StatusUnprocessableEntity, "import.html", data)
		return
	}

	kind := noticeSuccess
	if res.Failed > 0 || res.Truncated {
		kind = noticeInfo
	}
	ws.flash(kind, res.Summary())
	if res.Truncated {
		ws.flash(noticeInfo, res.TruncationNotice())
	}
	data["Result"] = res
	renderTemplate(w, r, "import.html", data)
}

// handleMemberExport downloads every member matching the filters.
func handleMemberExport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ws, ok := requireSession(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filters := listutil.ParseFilters(q, memberStatuses)
	file, err := orchestrators.ExecuteExportMembers(r.Context(), requestContext(sess), orchestrators.ExportMembersInput{
		Filters: filters,
		Format:  q.Get("format"),
		Actor:   actorOf(r, sess),
	}, orchestrators.ExportMembersDeps{Members: app.Backend, Audit: auditRecorder()})
	if err != nil {
		if handleBackendAuth(w, r, sess, err) {
			return
		}
		if errors.Is(err, orchestrators.ErrUnknownFormat) {
			http.Error(w, "Unknown export format", http.StatusBadRequest)
			return
		}
		ws.flash(noticeError, errorNotice("Export failed", err))
		http.Redirect(w, r, listURL("/members", filters, 0), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	_, _ = w.Write(file.Body)
}
