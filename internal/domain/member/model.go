package member

import (
	"errors"
	"strings"
	"time"

	"memberdesk/internal/domain/validation"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength     = 100
	MaxCommentsLength = 2000
)

// Business rule constants
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	PaymentZelle  = "Zelle"
	PaymentPayPal = "PayPal"

	// DependentAmount is the amount recorded for family members, who are
	// covered by the primary's payment.
	DependentAmount = "N/A"
)

// Genders lists the values offered by the member forms.
var Genders = []string{"Male", "Female"}

// Domain errors
var (
	ErrNoIdentity = errors.New("member has no family id or member id")
)

// Member is the canonical member record. Backend responses in any of their
// shapes are normalized into this type before reaching application code.
type Member struct {
	UUID     string
	MemberID string
	FamilyID string

	Name         string    `validate:"required,min=2,max=100" label:"Full name"`
	Gender       string    `validate:"required"`
	EmailAddress string    `validate:"required,email" label:"Email"`
	PhoneNo      string    `validate:"required,phone" label:"Phone"`
	DOB          time.Time `validate:"required,notfuture" label:"Date of birth"`
	Activity     string
	Status       string `validate:"omitempty,oneof=Active Inactive"`

	Street string `validate:"required"`
	City   string `validate:"required"`
	State  string `validate:"required,usstate"`
	Zip    string `validate:"required,min=5,max=10"`

	WhatsappGroupMember bool
	SendEmail           bool

	PaymentMethod   string `validate:"omitempty,oneof=Zelle PayPal" label:"Payment method"`
	Amount          string
	ForYear         string
	TransactionDate time.Time `validate:"omitempty,notfuture" label:"Transaction date"`
	DepositDate     time.Time
	Comments        string `validate:"max=2000"`

	IsPrimary bool
	// Family holds the other members of the primary's family as returned
	// by the listing. It is empty for dependents.
	Family []Member
}

// dependentRules are the checks applied to a family member. Address fields
// are inherited from the primary and contact details are optional.
type dependentRules struct {
	Name         string    `validate:"required,min=2,max=100" label:"Full name"`
	Gender       string    `validate:"required"`
	DOB          time.Time `validate:"omitempty,notfuture" label:"Date of birth"`
	EmailAddress string    `validate:"omitempty,email" label:"Email"`
	PhoneNo      string    `validate:"omitempty,phone" label:"Phone"`
}

// ValidatePrimary checks every field the primary record requires.
// PRE: none
// POST: returns nil or validation.Errors keyed by field name
func (m *Member) ValidatePrimary() error {
	m.Normalize()
	return validation.Struct(m)
}

// ValidateDependent checks the subset of fields a dependent requires.
// PRE: none
// POST: returns nil or validation.Errors keyed by field name
func (m *Member) ValidateDependent() error {
	m.Normalize()
	return validation.Struct(dependentRules{
		Name:         m.Name,
		Gender:       m.Gender,
		DOB:          m.DOB,
		EmailAddress: m.EmailAddress,
		PhoneNo:      m.PhoneNo,
	})
}

// Normalize trims whitespace from free-text fields and canonicalizes case.
// POST: string fields carry no surrounding whitespace; State is upper case
func (m *Member) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Gender = strings.TrimSpace(m.Gender)
	m.EmailAddress = strings.TrimSpace(m.EmailAddress)
	m.PhoneNo = strings.TrimSpace(m.PhoneNo)
	m.Street = strings.TrimSpace(m.Street)
	m.City = strings.TrimSpace(m.City)
	m.State = strings.ToUpper(strings.TrimSpace(m.State))
	m.Zip = strings.TrimSpace(m.Zip)
	m.Comments = strings.TrimSpace(m.Comments)
	switch strings.ToLower(strings.TrimSpace(m.Status)) {
	case "active":
		m.Status = StatusActive
	case "inactive":
		m.Status = StatusInactive
	}
}

// InheritAddress copies the primary's address into blank address fields and
// marks m as a dependent of the primary's family.
// PRE: primary has been validated
// POST: m.Street/City/State/Zip are non-empty where primary's are; IsPrimary is false
func (m *Member) InheritAddress(primary Member) {
	if strings.TrimSpace(m.Street) == "" {
		m.Street = primary.Street
	}
	if strings.TrimSpace(m.City) == "" {
		m.City = primary.City
	}
	if strings.TrimSpace(m.State) == "" {
		m.State = primary.State
	}
	if strings.TrimSpace(m.Zip) == "" {
		m.Zip = primary.Zip
	}
	if m.Amount == "" {
		m.Amount = DependentAmount
	}
	if m.Status == "" {
		m.Status = primary.Status
	}
	m.IsPrimary = false
}

// NewDependent returns a blank family member pre-filled from primary.
// POST: address matches primary, Amount is DependentAmount
func NewDependent(primary Member) Member {
	var d Member
	d.InheritAddress(primary)
	return d
}

// DisplayName returns the name shown in notifications.
func (m Member) DisplayName() string {
	if n := strings.TrimSpace(m.Name); n != "" {
		return n
	}
	return "unnamed member"
}

// IsActive reports whether the member's status is Active.
// Records without a status are treated as active.
func (m Member) IsActive() bool {
	return m.Status == "" || strings.EqualFold(m.Status, StatusActive)
}

// Identity returns the pair the backend uses to address a member.
// PRE: m was loaded from the backend
// POST: returns ErrNoIdentity when either id is missing
func (m Member) Identity() (familyID, memberID string, err error) {
	if m.FamilyID == "" || m.MemberID == "" {
		return "", "", ErrNoIdentity
	}
	return m.FamilyID, m.MemberID, nil
}
