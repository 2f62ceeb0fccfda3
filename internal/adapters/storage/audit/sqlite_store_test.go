package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"memberdesk/internal/adapters/storage"
	domain "memberdesk/internal/domain/audit"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db)
}

func TestSaveAndGetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := domain.NewEvent("admin@example.org", domain.CategoryMember, domain.ActionCreate).
		WithResource("member", "F100/M1").
		WithDescription("Registered 3 member(s).").
		WithMetadata(map[string]int{"dependents": 2})

	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ActorEmail != e.ActorEmail || got.ResourceID != "F100/M1" || got.Category != domain.CategoryMember {
		t.Errorf("got %+v", got)
	}
	if got.Metadata != `{"dependents":2}` {
		t.Errorf("Metadata = %q", got.Metadata)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, e.Timestamp)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestSave_RejectsEmptyID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(context.Background(), domain.Event{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []domain.Event{
		domain.NewEvent("a@example.org", domain.CategoryMember, domain.ActionCreate),
		domain.NewEvent("a@example.org", domain.CategoryEvent, domain.ActionDelete),
		domain.NewEvent("b@example.org", domain.CategoryMember, domain.ActionUpdate),
	}
	for i := range events {
		events[i].Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(ctx, events[i]); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.List(ctx, Filter{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != events[2].ID {
		t.Fatalf("List all: got %d events, first %q", len(all), all[0].ID)
	}

	members, _ := store.List(ctx, Filter{Category: domain.CategoryMember}, 10)
	if len(members) != 2 {
		t.Errorf("category filter: got %d, want 2", len(members))
	}

	byActor, _ := store.List(ctx, Filter{ActorEmail: "a@example.org", Action: domain.ActionDelete}, 10)
	if len(byActor) != 1 || byActor[0].ID != events[1].ID {
		t.Errorf("actor+action filter: %+v", byActor)
	}

	since, _ := store.List(ctx, Filter{From: base.Add(time.Minute)}, 10)
	if len(since) != 2 {
		t.Errorf("from filter: got %d, want 2", len(since))
	}

	limited, _ := store.List(ctx, Filter{}, 1)
	if len(limited) != 1 {
		t.Errorf("limit: got %d, want 1", len(limited))
	}
}
