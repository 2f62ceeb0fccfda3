package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/submission"
	"memberdesk/internal/domain/validation"
)

// registrationActor is recorded in the audit log for public enrolments.
const registrationActor = "public-registration"

// handleRegistration is the public enrolment page. It creates a primary
// member and any family rows without an admin session; logged-in admins
// are sent to the dashboard instead.
func handleRegistration(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if r.Method == http.MethodGet {
		renderRegistration(w, r, http.StatusOK, blankRegistration(), nil, nil)
		return
	}

	var f familyForm
	if err := decodeForm(r, &f); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	f.Mode = string(submission.ModeCreate)
	for i := range f.Dependents {
		f.Dependents[i].Ref = record.Local().String()
	}
	if f.Op != "" {
		f.applyOp()
		renderRegistration(w, r, http.StatusOK, f, nil, nil)
		return
	}
	// Public visitors cannot choose ids or admin-only fields.
	f.Primary.UUID, f.Primary.FamilyID, f.Primary.MemberID = "", "", ""
	f.Primary.Status = member.StatusActive
	f.Primary.SendEmail = true
	f.Primary.DepositDate = time.Time{}
	f.Primary.Comments = ""
	if f.Primary.ForYear == "" {
		f.Primary.ForYear = strconv.Itoa(time.Now().Year())
	}

	out, err := orchestrators.ExecuteSubmitFamily(r.Context(), backend.Anonymous, orchestrators.SubmitFamilyInput{
		Mode:       submission.ModeCreate,
		Primary:    f.Primary,
		Dependents: f.rows(),
		Actor:      orchestrators.Actor{Email: registrationActor, IP: clientIP(r)},
	}, orchestrators.SubmitFamilyDeps{
		Members:  app.Backend,
		Audit:    auditRecorder(),
		Observer: submissionObserver(),
	})
	if err != nil {
		var verr *orchestrators.FamilyValidationError
		if errors.As(err, &verr) {
			renderRegistration(w, r, http.StatusUnprocessableEntity, f, verr,
				[]notice{{Kind: noticeError, Text: "Please fix the highlighted fields."}})
			return
		}
		internalError(w, err)
		return
	}

	if out.State == submission.StatePrimaryFailed {
		slog.Warn("registration_failed", "ip", clientIP(r), "error", out.PrimaryErr)
		renderRegistration(w, r, http.StatusBadGateway, f, nil,
			[]notice{{Kind: noticeError, Text: "Registration failed. Please try again later."}})
		return
	}
	var notices []notice
	successes, failures := out.Notices()
	for _, s := range successes {
		notices = append(notices, notice{Kind: noticeSuccess, Text: s})
	}
	for _, s := range failures {
		notices = append(notices, notice{Kind: noticeError, Text: s})
	}
	renderRegistration(w, r, http.StatusOK, blankRegistration(), nil, notices)
}

func blankRegistration() familyForm {
	return familyForm{
		Mode: string(submission.ModeCreate),
		Primary: member.Member{
			Gender:    member.Genders[0],
			IsPrimary: true,
		},
	}
}

func renderRegistration(w http.ResponseWriter, r *http.Request, status int, f familyForm, verr *orchestrators.FamilyValidationError, notices []notice) {
	rows := make([]memberFormRow, 0, len(f.Dependents))
	for i, d := range f.Dependents {
		row := memberFormRow{Index: i, Ref: d.Ref, Local: true, Member: d.Member}
		if verr != nil {
			row.Errors = verr.Dependents[i]
		}
		rows = append(rows, row)
	}
	var primaryErrs validation.Errors
	if verr != nil {
		primaryErrs = verr.Primary
	}
	renderStatus(w, r, status, "registration.html", map[string]any{
		"Notices":       notices,
		"Primary":       f.Primary,
		"Rows":          rows,
		"PrimaryErrors": primaryErrs,
		"Genders":       member.Genders,
		"States":        validation.USStates,
		"Payments":      []string{member.PaymentZelle, member.PaymentPayPal},
	})
}
