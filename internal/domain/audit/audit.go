package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by the kind of record touched.
type Category string

const (
	CategorySession      Category = "session"
	CategoryMember       Category = "member"
	CategoryOrganization Category = "organization"
	CategoryEvent        Category = "event"
	CategoryRatePlan     Category = "rate_plan"
	CategoryTemplate     Category = "email_template"
	CategoryEmail        Category = "email"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategorySession, CategoryMember, CategoryOrganization, CategoryEvent,
	CategoryRatePlan, CategoryTemplate, CategoryEmail,
}

// Action represents the action that occurred.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
	ActionImport Action = "import"
	ActionExport Action = "export"
	ActionSend   Action = "send"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single audit log entry.
type Event struct {
	ID           string
	Timestamp    time.Time
	Category     Category
	Action       Action
	Severity     Severity
	ActorEmail   string
	ResourceType string
	ResourceID   string
	Description  string
	IPAddress    string
	Metadata     string // JSON object, may be empty
}

// NewEvent creates an audit event stamped with the current time.
// PRE: actorEmail and action are non-empty
// POST: ID is a fresh UUID; Severity is SeverityInfo
func NewEvent(actorEmail string, category Category, action Action) Event {
	return Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Category:   category,
		Action:     action,
		Severity:   SeverityInfo,
		ActorEmail: actorEmail,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithIP records the client address.
func (e Event) WithIP(ip string) Event {
	e.IPAddress = ip
	return e
}

// WithMetadata encodes v as the JSON metadata.
// POST: Metadata is empty if v cannot be encoded
func (e Event) WithMetadata(v any) Event {
	b, err := json.Marshal(v)
	if err != nil {
		return e
	}
	e.Metadata = string(b)
	return e
}
