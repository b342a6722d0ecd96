// ABOUTME: Record types for households, guardians and students plus inbound forms
// ABOUTME: JSON tags follow the registration form field names

package household

import (
	"fmt"
	"strings"
	"time"
)

// RecordStatus tags a row as live or tombstoned.
type RecordStatus int

const (
	StatusActive RecordStatus = iota
	StatusDeleted
)

func (s RecordStatus) String() string {
	if s == StatusDeleted {
		return "deleted"
	}
	return "active"
}

func (s RecordStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RecordStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active", "":
		*s = StatusActive
	case "deleted":
		*s = StatusDeleted
	default:
		return fmt.Errorf("unknown record status %q", b)
	}
	return nil
}

// DefaultContactMethod is used when a guardian leaves the preference blank.
const DefaultContactMethod = "電話"

// Address is a postal address. Households always carry one; guardians and
// students may override it.
type Address struct {
	PostalCode string `json:"postalCode"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Street     string `json:"street"`
	Building   string `json:"building"`
}

// IsZero reports whether every field is empty.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Line renders the address on one line.
func (a Address) Line() string {
	if a.IsZero() {
		return ""
	}
	parts := []string{}
	if a.PostalCode != "" {
		parts = append(parts, "〒"+a.PostalCode)
	}
	parts = append(parts, a.Prefecture+a.City+a.Street)
	if a.Building != "" {
		parts = append(parts, a.Building)
	}
	return strings.Join(parts, " ")
}

// Household is one version of a household row.
type Household struct {
	ID           string    `json:"householdId"`
	CoreID       string    `json:"coreId,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
	EditCode     string    `json:"-"`
	LoginEmail   string    `json:"loginEmail"`
	Address
	Notes             string       `json:"notes"`
	IntegrationStatus string       `json:"integrationStatus,omitempty"`
	Version           uint64       `json:"version"`
	Status            RecordStatus `json:"status"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	UpdatedBy         string       `json:"updatedBy"`
}

// Guardian is one version of a guardian row.
type Guardian struct {
	ID                 string `json:"guardianId"`
	HouseholdID        string `json:"householdId"`
	CoreID             string `json:"coreId,omitempty"`
	Relationship       string `json:"relationship"`
	RelationshipDetail string `json:"relationshipDetail,omitempty"`
	ContactPriority    int    `json:"contactPriority"`
	ContactMethod      string `json:"contactMethod"`
	LastName           string `json:"lastName"`
	FirstName          string `json:"firstName"`
	LastNameKana       string `json:"lastNameKana"`
	FirstNameKana      string `json:"firstNameKana"`
	Email              string `json:"email"`
	MeetingEmail       string `json:"meetingEmail,omitempty"`
	MobilePhone        string `json:"mobilePhone,omitempty"`
	HomePhone          string `json:"homePhone,omitempty"`
	Address
	Version   uint64       `json:"version"`
	Status    RecordStatus `json:"status"`
	UpdatedAt time.Time    `json:"updatedAt"`
	UpdatedBy string       `json:"updatedBy"`
}

// Student is one version of a student row.
type Student struct {
	ID             string `json:"studentId"`
	HouseholdID    string `json:"householdId"`
	CoreID         string `json:"coreId,omitempty"`
	LastName       string `json:"lastName"`
	FirstName      string `json:"firstName"`
	LastNameKana   string `json:"lastNameKana"`
	FirstNameKana  string `json:"firstNameKana"`
	GraduationYear string `json:"graduationYear"`
	Email          string `json:"email"`
	ClassEmail     string `json:"classEmail,omitempty"`
	MobilePhone    string `json:"mobilePhone,omitempty"`
	Address
	Version   uint64       `json:"version"`
	Status    RecordStatus `json:"status"`
	UpdatedAt time.Time    `json:"updatedAt"`
	UpdatedBy string       `json:"updatedBy"`
}

// Aggregate is one snapshot of a household and its members.
type Aggregate struct {
	Household Household  `json:"household"`
	Guardians []Guardian `json:"guardians"`
	Students  []Student  `json:"students"`
}

// UsesEmail reports whether email is the login email or an active contact
// email of a guardian or student in this snapshot. A student's class email
// counts. Comparison ignores case.
func (a *Aggregate) UsesEmail(email string) bool {
	want := foldEmail(email)
	if want == "" {
		return false
	}
	if foldEmail(a.Household.LoginEmail) == want {
		return true
	}
	for _, g := range a.Guardians {
		if g.Status == StatusActive && foldEmail(g.Email) == want {
			return true
		}
	}
	for _, s := range a.Students {
		if s.Status != StatusActive {
			continue
		}
		if foldEmail(s.Email) == want || foldEmail(s.ClassEmail) == want {
			return true
		}
	}
	return false
}

// PrimaryGuardian returns the guardian with contact priority 1, or the
// first guardian when none has it.
func (a *Aggregate) PrimaryGuardian() *Guardian {
	if len(a.Guardians) == 0 {
		return nil
	}
	for i := range a.Guardians {
		if a.Guardians[i].ContactPriority == 1 {
			return &a.Guardians[i]
		}
	}
	return &a.Guardians[0]
}

func foldEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Submission is an inbound registration or edit form.
type Submission struct {
	Household HouseholdForm  `json:"household"`
	Guardians []GuardianForm `json:"guardians"`
	Students  []StudentForm  `json:"students"`
}

// HouseholdForm carries the household fields of a Submission. HouseholdID
// is empty for a new registration.
type HouseholdForm struct {
	HouseholdID string `json:"householdId,omitempty"`
	LoginEmail  string `json:"loginEmail"`
	Address
	Notes string `json:"notes"`
}

// GuardianForm is one guardian entry. GuardianID is empty for a new guardian.
type GuardianForm struct {
	GuardianID         string `json:"guardianId,omitempty"`
	Relationship       string `json:"relationship"`
	RelationshipDetail string `json:"relationshipDetail,omitempty"`
	ContactPriority    int    `json:"contactPriority"`
	ContactMethod      string `json:"contactMethod"`
	LastName           string `json:"lastName"`
	FirstName          string `json:"firstName"`
	LastNameKana       string `json:"lastNameKana"`
	FirstNameKana      string `json:"firstNameKana"`
	Email              string `json:"email"`
	MeetingEmail       string `json:"meetingEmail,omitempty"`
	MobilePhone        string `json:"mobilePhone,omitempty"`
	HomePhone          string `json:"homePhone,omitempty"`
	Address
	IsDeleted bool `json:"isDeleted,omitempty"`
}

// StudentForm is one student entry. StudentID is empty for a new student.
type StudentForm struct {
	StudentID      string `json:"studentId,omitempty"`
	LastName       string `json:"lastName"`
	FirstName      string `json:"firstName"`
	LastNameKana   string `json:"lastNameKana"`
	FirstNameKana  string `json:"firstNameKana"`
	GraduationYear string `json:"graduationYear"`
	Email          string `json:"email"`
	ClassEmail     string `json:"classEmail,omitempty"`
	MobilePhone    string `json:"mobilePhone,omitempty"`
	Address
	IsDeleted bool `json:"isDeleted,omitempty"`
}

// FormFromAggregate converts a snapshot back into an edit form, the shape
// a client pre-fills and resubmits.
func FormFromAggregate(a *Aggregate) Submission {
	sub := Submission{
		Household: HouseholdForm{
			HouseholdID: a.Household.ID,
			LoginEmail:  a.Household.LoginEmail,
			Address:     a.Household.Address,
			Notes:       a.Household.Notes,
		},
	}
	for _, g := range a.Guardians {
		sub.Guardians = append(sub.Guardians, GuardianForm{
			GuardianID:         g.ID,
			Relationship:       g.Relationship,
			RelationshipDetail: g.RelationshipDetail,
			ContactPriority:    g.ContactPriority,
			ContactMethod:      g.ContactMethod,
			LastName:           g.LastName,
			FirstName:          g.FirstName,
			LastNameKana:       g.LastNameKana,
			FirstNameKana:      g.FirstNameKana,
			Email:              g.Email,
			MeetingEmail:       g.MeetingEmail,
			MobilePhone:        g.MobilePhone,
			HomePhone:          g.HomePhone,
			Address:            g.Address,
		})
	}
	for _, s := range a.Students {
		sub.Students = append(sub.Students, StudentForm{
			StudentID:      s.ID,
			LastName:       s.LastName,
			FirstName:      s.FirstName,
			LastNameKana:   s.LastNameKana,
			FirstNameKana:  s.FirstNameKana,
			GraduationYear: s.GraduationYear,
			Email:          s.Email,
			ClassEmail:     s.ClassEmail,
			MobilePhone:    s.MobilePhone,
			Address:        s.Address,
		})
	}
	return sub
}

// SaveOptions carries request metadata for Save.
type SaveOptions struct {
	// Actor is recorded as the last-modified-by email. When empty the first
	// guardian's email, then the login email, is used.
	Actor string
}

// SaveResult describes the outcome of Save.
type SaveResult struct {
	HouseholdID string
	// EditCode is set only for new households.
	EditCode  string
	Version   uint64
	Changed   bool
	Aggregate *Aggregate
}
