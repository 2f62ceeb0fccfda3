package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"memberdesk/internal/adapters/backend"
	mail "memberdesk/internal/adapters/email"
	"memberdesk/internal/application/listutil"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/email"
	"memberdesk/internal/domain/emailtemplate"
	"memberdesk/internal/domain/member"
)

type fakeEmailBackend struct {
	reqs []backend.SendEmailRequest
	err  error
}

func (f *fakeEmailBackend) SendEmail(_ context.Context, _ backend.RequestContext, req backend.SendEmailRequest) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

type fakeTemplates struct{ list []emailtemplate.Template }

func (f *fakeTemplates) ListTemplates(context.Context, backend.RequestContext, string) ([]emailtemplate.Template, error) {
	return f.list, nil
}

type fakeEmailObserver struct{ sent, skipped, failed int }

func (f *fakeEmailObserver) ObserveBulkEmail(_ string, sent, skipped, failed int) {
	f.sent, f.skipped, f.failed = sent, skipped, failed
}

func mailingList() []member.Member {
	return []member.Member{
		{UUID: "u1", Name: "Asha Rao", EmailAddress: "asha@example.org"},
		{UUID: "u2", Name: "Dev Rao"},
		{UUID: "u3", Name: "Mira Iyer", EmailAddress: "mira@example.org"},
	}
}

func TestSendBulkEmail_BackendDispatch(t *testing.T) {
	eb := &fakeEmailBackend{}
	obs := &fakeEmailObserver{}
	rec := &fakeAudit{}
	res, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email: email.BulkEmail{RecipientIDs: []string{"u1", "u3", "u1"}, Subject: " Picnic ", Body: "**Sunday**"},
	}, SendBulkEmailDeps{Dispatch: email.DispatchBackend, Backend: eb, Observer: obs, Audit: rec})
	if err != nil {
		t.Fatalf("ExecuteSendBulkEmail: %v", err)
	}
	if res.Sent != 2 || res.Notice() != NoticeEmailSent {
		t.Errorf("result = %+v", res)
	}
	req := eb.reqs[0]
	if len(req.RecipientIDs) != 2 || req.Subject != "Picnic" || !strings.Contains(req.Body, "<strong>Sunday</strong>") {
		t.Errorf("req = %+v", req)
	}
	if obs.sent != 2 {
		t.Errorf("observer sent = %d", obs.sent)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionSend || rec.events[0].Severity != audit.SeverityInfo {
		t.Errorf("audit = %+v", rec.events)
	}
}

func TestSendBulkEmail_ValidationBeforeDelivery(t *testing.T) {
	tests := []struct {
		name   string
		email  email.BulkEmail
		notice string
	}{
		{"no recipients", email.BulkEmail{Subject: "s", Body: "b"}, NoticeNoRecipients},
		{"no subject", email.BulkEmail{RecipientIDs: []string{"u1"}, Body: "b"}, NoticeSubjectBodyReq},
		{"no body", email.BulkEmail{RecipientIDs: []string{"u1"}, Subject: "s"}, NoticeSubjectBodyReq},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eb := &fakeEmailBackend{}
			_, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous,
				SendBulkEmailInput{Email: tt.email},
				SendBulkEmailDeps{Dispatch: email.DispatchBackend, Backend: eb})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := ValidationNotice(err); got != tt.notice {
				t.Errorf("notice = %q, want %q", got, tt.notice)
			}
			if len(eb.reqs) != 0 {
				t.Error("backend called for invalid email")
			}
		})
	}
}

func TestSendBulkEmail_BackendFailure(t *testing.T) {
	eb := &fakeEmailBackend{err: &backend.APIError{Status: 502}}
	rec := &fakeAudit{}
	res, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email: email.BulkEmail{RecipientIDs: []string{"u1"}, Subject: "s", Body: "b"},
	}, SendBulkEmailDeps{Dispatch: email.DispatchBackend, Backend: eb, Audit: rec})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Failed != 1 || res.Notice() != NoticeEmailFailed {
		t.Errorf("result = %+v", res)
	}
	if rec.events[0].Severity != audit.SeverityWarning {
		t.Errorf("severity = %q", rec.events[0].Severity)
	}
}

func TestSendBulkEmail_ResendSkipsMissingAddresses(t *testing.T) {
	sender := mail.NewNoopSender()
	obs := &fakeEmailObserver{}
	res, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email: email.BulkEmail{RecipientIDs: []string{"u1", "u2"}, Subject: "Picnic", Body: "Hi"},
	}, SendBulkEmailDeps{
		Dispatch: email.DispatchResend,
		Sender:   sender,
		Members:  &fakeWalker{members: mailingList()},
		Observer: obs,
		ReplyTo:  "desk@example.org",
	})
	if err != nil {
		t.Fatalf("ExecuteSendBulkEmail: %v", err)
	}
	if res.Sent != 1 || res.Skipped != 1 || res.Recipients != 2 {
		t.Errorf("result = %+v", res)
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "Asha Rao <asha@example.org>" || sent[0].ReplyTo != "desk@example.org" {
		t.Errorf("sent = %+v", sent)
	}
	if obs.skipped != 1 {
		t.Errorf("observer skipped = %d", obs.skipped)
	}
}

func TestSendBulkEmail_ResendNoDeliverables(t *testing.T) {
	_, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email: email.BulkEmail{RecipientIDs: []string{"u2"}, Subject: "s", Body: "b"},
	}, SendBulkEmailDeps{Dispatch: email.DispatchResend, Sender: mail.NewNoopSender(), Members: &fakeWalker{members: mailingList()}})
	if !errors.Is(err, email.ErrNoDeliverables) {
		t.Fatalf("err = %v, want ErrNoDeliverables", err)
	}
}

func TestSendBulkEmail_AllFilteredUsesListing(t *testing.T) {
	eb := &fakeEmailBackend{}
	w := &fakeWalker{members: mailingList()}
	res, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email:       email.BulkEmail{Subject: "s", Body: "b"},
		AllFiltered: true,
		Filters:     listutil.Filters{Search: "rao"},
	}, SendBulkEmailDeps{Dispatch: email.DispatchBackend, Backend: eb, Members: w})
	if err != nil {
		t.Fatalf("ExecuteSendBulkEmail: %v", err)
	}
	if res.Recipients != 3 || len(eb.reqs[0].RecipientIDs) != 3 {
		t.Errorf("result = %+v, req = %+v", res, eb.reqs[0])
	}
	if w.queries[0].Search != "rao" {
		t.Errorf("walk query = %+v", w.queries[0])
	}
}

func TestSendBulkEmail_TemplateFillsBlankFields(t *testing.T) {
	eb := &fakeEmailBackend{}
	tpl := &fakeTemplates{list: []emailtemplate.Template{{ID: "t1", Subject: "Dues reminder", Body: "Please renew."}}}
	_, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email: email.BulkEmail{RecipientIDs: []string{"u1"}, TemplateID: "t1", Subject: "Custom subject"},
	}, SendBulkEmailDeps{Dispatch: email.DispatchBackend, Backend: eb, Templates: tpl})
	if err != nil {
		t.Fatalf("ExecuteSendBulkEmail: %v", err)
	}
	if eb.reqs[0].Subject != "Custom subject" || !strings.Contains(eb.reqs[0].Body, "Please renew.") {
		t.Errorf("req = %+v", eb.reqs[0])
	}
}

func TestSendBulkEmail_UnknownDispatch(t *testing.T) {
	_, err := ExecuteSendBulkEmail(context.Background(), backend.Anonymous, SendBulkEmailInput{
		Email: email.BulkEmail{RecipientIDs: []string{"u1"}, Subject: "s", Body: "b"},
	}, SendBulkEmailDeps{Dispatch: "carrier-pigeon"})
	if !errors.Is(err, email.ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
}
