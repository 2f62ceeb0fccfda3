package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/emailtemplate"
	"memberdesk/internal/domain/validation"
)

type fakeTemplateStore struct {
	created []emailtemplate.Template
	updated []emailtemplate.Template
	deleted []string
}

func (f *fakeTemplateStore) CreateTemplate(_ context.Context, _ backend.RequestContext, t emailtemplate.Template) (emailtemplate.Template, error) {
	f.created = append(f.created, t)
	t.ID = "t-new"
	return t, nil
}

func (f *fakeTemplateStore) UpdateTemplate(_ context.Context, _ backend.RequestContext, t emailtemplate.Template) error {
	f.updated = append(f.updated, t)
	return nil
}

func (f *fakeTemplateStore) DeleteTemplate(_ context.Context, _ backend.RequestContext, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestSaveTemplate(t *testing.T) {
	store := &fakeTemplateStore{}
	rec := &fakeAudit{}
	deps := TemplateDeps{Templates: store, Audit: rec}

	saved, err := ExecuteSaveTemplate(context.Background(), backend.Anonymous, SaveTemplateInput{
		Template: emailtemplate.Template{ID: emailtemplate.CustomID, Name: " Dues ", Subject: "Renew", Body: "Please renew."},
	}, deps)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID != "t-new" || saved.Name != "Dues" || len(store.created) != 1 {
		t.Errorf("saved = %+v", saved)
	}

	saved.Subject = "Renew now"
	if _, err := ExecuteSaveTemplate(context.Background(), backend.Anonymous, SaveTemplateInput{Template: saved}, deps); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(store.updated) != 1 || store.updated[0].Subject != "Renew now" {
		t.Errorf("updated = %+v", store.updated)
	}
	if len(rec.events) != 2 || rec.events[0].Action != audit.ActionCreate || rec.events[1].Action != audit.ActionUpdate {
		t.Errorf("audit = %+v", rec.events)
	}
}

func TestSaveTemplate_InvalidNeverSent(t *testing.T) {
	store := &fakeTemplateStore{}
	_, err := ExecuteSaveTemplate(context.Background(), backend.Anonymous,
		SaveTemplateInput{Template: emailtemplate.Template{Name: "Dues"}}, TemplateDeps{Templates: store})
	verrs, ok := validation.As(err)
	if !ok {
		t.Fatalf("err = %v, want validation errors", err)
	}
	if _, ok := verrs["Subject"]; !ok {
		t.Errorf("errors = %v, want Subject", verrs)
	}
	if len(store.created) != 0 {
		t.Error("invalid template sent to backend")
	}
}

func TestDeleteTemplate(t *testing.T) {
	store := &fakeTemplateStore{}
	if err := ExecuteDeleteTemplate(context.Background(), backend.Anonymous,
		DeleteTemplateInput{ID: "t1"}, TemplateDeps{Templates: store}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "t1" {
		t.Errorf("deleted = %v", store.deleted)
	}
	err := ExecuteDeleteTemplate(context.Background(), backend.Anonymous,
		DeleteTemplateInput{ID: emailtemplate.CustomID}, TemplateDeps{Templates: store})
	if !errors.Is(err, emailtemplate.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPreviewTemplate(t *testing.T) {
	p, err := ExecutePreviewTemplate("Hi", "# Title\n\n<script>x</script>")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(p.HTML, "<h1>Title</h1>") || strings.Contains(p.HTML, "<script>") {
		t.Errorf("HTML = %q", p.HTML)
	}
}

func TestPickTemplate(t *testing.T) {
	list := []emailtemplate.Template{{ID: "t1", Subject: "Dues", Body: "Renew"}}
	tests := []struct {
		id            string
		subject, body string
		wantErr       bool
	}{
		{"t1", "Dues", "Renew", false},
		{emailtemplate.CustomID, "", "", false},
		{"", "", "", false},
		{"missing", "", "", true},
	}
	for _, tt := range tests {
		s, b, err := PickTemplate(list, tt.id)
		if (err != nil) != tt.wantErr || s != tt.subject || b != tt.body {
			t.Errorf("PickTemplate(%q) = %q, %q, %v", tt.id, s, b, err)
		}
	}
}
