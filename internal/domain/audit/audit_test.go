package audit

import "testing"

func TestNewEvent_Builders(t *testing.T) {
	e := NewEvent("admin@example.com", CategoryMember, ActionCreate).
		WithResource("family", "F100").
		WithDescription("registered 3 members").
		WithSeverity(SeverityWarning).
		WithMetadata(map[string]int{"failed": 1})

	if e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent missing id or time: %+v", e)
	}
	if e.ResourceID != "F100" || e.Severity != SeverityWarning {
		t.Errorf("builders not applied: %+v", e)
	}
	if e.Metadata != `{"failed":1}` {
		t.Errorf("Metadata = %q", e.Metadata)
	}
	if NewEvent("a", CategoryEmail, ActionSend).ID == e.ID {
		t.Error("event ids collide")
	}
}

func TestWithMetadata_Unencodable(t *testing.T) {
	e := NewEvent("a", CategoryEmail, ActionSend).WithMetadata(make(chan int))
	if e.Metadata != "" {
		t.Errorf("Metadata = %q, want empty", e.Metadata)
	}
}
