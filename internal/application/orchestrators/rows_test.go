package orchestrators

import (
	"context"
	"errors"
	"testing"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/domain/audit"
	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/record"
	"memberdesk/internal/domain/validation"
)

type fakeOrgs struct {
	createErr error
	created   []organization.Organization
	updated   []organization.Organization
	deleted   []string
}

func (f *fakeOrgs) CreateOrganization(_ context.Context, _ backend.RequestContext, o organization.Organization) (organization.Organization, error) {
	f.created = append(f.created, o)
	if f.createErr != nil {
		return o, f.createErr
	}
	o.Ref = record.Persisted("org-1")
	return o, nil
}

func (f *fakeOrgs) UpdateOrganization(_ context.Context, _ backend.RequestContext, o organization.Organization) error {
	f.updated = append(f.updated, o)
	return nil
}

func (f *fakeOrgs) DeleteOrganization(_ context.Context, _ backend.RequestContext, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func orgDeps(b *fakeOrgs, rec AuditRecorder) SaveRowDeps[organization.Organization] {
	res := OrganizationRows(b)
	return SaveRowDeps[organization.Organization]{Resource: res, Drafts: NewDrafts(res.RefOf), Audit: rec}
}

func TestSaveRow_LocalRowIsCreated(t *testing.T) {
	b := &fakeOrgs{}
	rec := &fakeAudit{}
	deps := orgDeps(b, rec)
	row := organization.New()
	row.Name, row.Type = "  Bay Area Temple ", "Temple"
	deps.Drafts.Put(row)

	res, err := ExecuteSaveRow(context.Background(), backend.Anonymous, SaveRowInput[organization.Organization]{Row: row}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created || res.Row.Ref.IsLocal() || res.Row.Ref.ID() != "org-1" {
		t.Errorf("result = %+v", res)
	}
	if b.created[0].Name != "Bay Area Temple" {
		t.Errorf("name not trimmed before create: %q", b.created[0].Name)
	}
	if deps.Drafts.Len() != 0 {
		t.Error("created row still in drafts")
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionCreate || rec.events[0].ResourceID != "org-1" {
		t.Errorf("audit = %+v", rec.events)
	}
}

func TestSaveRow_PersistedRowIsUpdated(t *testing.T) {
	b := &fakeOrgs{}
	deps := orgDeps(b, nil)
	row := organization.Organization{Ref: record.Persisted("org-7"), Name: "Renamed", Type: "School"}

	res, err := ExecuteSaveRow(context.Background(), backend.Anonymous, SaveRowInput[organization.Organization]{Row: row}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created || len(b.updated) != 1 || len(b.created) != 0 {
		t.Errorf("result = %+v, updates %d, creates %d", res, len(b.updated), len(b.created))
	}
}

func TestSaveRow_InvalidLocalRowStaysInDrafts(t *testing.T) {
	b := &fakeOrgs{}
	deps := orgDeps(b, nil)
	row := organization.New()
	row.Name = "X"

	_, err := ExecuteSaveRow(context.Background(), backend.Anonymous, SaveRowInput[organization.Organization]{Row: row}, deps)
	errs, ok := validation.As(err)
	if !ok || errs["Name"] == "" || errs["Type"] == "" {
		t.Fatalf("err = %v, want Name and Type errors", err)
	}
	if len(b.created) != 0 {
		t.Error("backend called for invalid row")
	}
	if got, ok := deps.Drafts.Get(row.Ref); !ok || got.Name != "X" {
		t.Errorf("draft = %+v, %v", got, ok)
	}
}

func TestSaveRow_CreateFailureKeepsDraft(t *testing.T) {
	b := &fakeOrgs{createErr: &backend.APIError{Status: 500}}
	deps := orgDeps(b, nil)
	row := organization.New()
	row.Name, row.Type = "Community Hall", "Community"

	if _, err := ExecuteSaveRow(context.Background(), backend.Anonymous, SaveRowInput[organization.Organization]{Row: row}, deps); err == nil {
		t.Fatal("expected error")
	}
	if deps.Drafts.Len() != 1 {
		t.Error("failed row dropped from drafts")
	}
}

func TestSaveRow_ZeroRef(t *testing.T) {
	deps := orgDeps(&fakeOrgs{}, nil)
	_, err := ExecuteSaveRow(context.Background(), backend.Anonymous, SaveRowInput[organization.Organization]{}, deps)
	if !errors.Is(err, record.ErrEmptyRef) {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteRow(t *testing.T) {
	b := &fakeOrgs{}
	rec := &fakeAudit{}
	deps := orgDeps(b, rec)
	local := organization.New()
	deps.Drafts.Put(local)

	called, err := ExecuteDeleteRow(context.Background(), backend.Anonymous, DeleteRowInput{Ref: local.Ref}, deps)
	if err != nil || called {
		t.Errorf("local delete: called=%v err=%v", called, err)
	}
	if deps.Drafts.Len() != 0 || len(b.deleted) != 0 {
		t.Error("local delete must only drop the draft")
	}

	called, err = ExecuteDeleteRow(context.Background(), backend.Anonymous, DeleteRowInput{Ref: record.Persisted("org-3"), Label: "Old Org"}, deps)
	if err != nil || !called || len(b.deleted) != 1 || b.deleted[0] != "org-3" {
		t.Errorf("persisted delete: called=%v err=%v deleted=%v", called, err, b.deleted)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionDelete {
		t.Errorf("audit = %+v", rec.events)
	}
}

func TestDrafts_ListNewestFirst(t *testing.T) {
	d := NewDrafts(func(o organization.Organization) record.Ref { return o.Ref })
	a, b := organization.New(), organization.New()
	a.Name, b.Name = "A", "B"
	d.Put(a)
	d.Put(b)
	a.Name = "A2"
	d.Put(a)

	list := d.List()
	if len(list) != 2 || list[0].Name != "B" || list[1].Name != "A2" {
		t.Errorf("List = %+v", list)
	}
	d.Remove(record.Local())
	if d.Len() != 2 {
		t.Error("removing an unknown ref changed the set")
	}
}
