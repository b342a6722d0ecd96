// ABOUTME: Mapping between typed household records and tabular rows
// ABOUTME: Owns the table names, column lists and per-column format hints

package household

import (
	"fmt"
	"strconv"
	"time"

	"github.com/2389/household-registry/internal/tabular"
)

// Table names.
const (
	HouseholdTable = "households"
	GuardianTable  = "guardians"
	StudentTable   = "students"
)

var addressColumns = []string{"postal_code", "prefecture", "city", "street", "building"}

var auditColumns = []string{"version", "deleted", "updated_at", "updated_by"}

func columns(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// HouseholdColumns, GuardianColumns and StudentColumns are the declared
// column orders of each table.
var (
	HouseholdColumns = columns(
		[]string{"household_id", "core_id", "registered_at", "edit_code", "login_email"},
		addressColumns,
		[]string{"notes", "integration_status"},
		auditColumns,
	)
	GuardianColumns = columns(
		[]string{"household_id", "guardian_id", "core_id", "relationship", "relationship_detail",
			"contact_priority", "contact_method", "last_name", "first_name", "last_name_kana",
			"first_name_kana", "email", "meeting_email", "mobile_phone", "home_phone"},
		addressColumns,
		auditColumns,
	)
	StudentColumns = columns(
		[]string{"household_id", "student_id", "core_id", "last_name", "first_name", "last_name_kana",
			"first_name_kana", "graduation_year", "email", "class_email", "mobile_phone"},
		addressColumns,
		auditColumns,
	)
)

// Columns holding digit strings that must not be coerced to numbers.
var (
	householdFormats = map[string]tabular.Format{
		"edit_code":   tabular.FormatText,
		"postal_code": tabular.FormatText,
	}
	guardianFormats = map[string]tabular.Format{
		"postal_code":  tabular.FormatText,
		"mobile_phone": tabular.FormatText,
		"home_phone":   tabular.FormatText,
	}
	studentFormats = map[string]tabular.Format{
		"postal_code":  tabular.FormatText,
		"mobile_phone": tabular.FormatText,
	}
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func formatDeleted(s RecordStatus) string {
	return strconv.FormatBool(s == StatusDeleted)
}

func parseDeleted(s string) (RecordStatus, error) {
	if s == "" {
		return StatusActive, nil
	}
	deleted, err := strconv.ParseBool(s)
	if err != nil {
		return StatusActive, fmt.Errorf("parsing deleted flag %q: %w", s, err)
	}
	if deleted {
		return StatusDeleted, nil
	}
	return StatusActive, nil
}

func parseVersion(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return v, nil
}

func putAddress(m map[string]string, a Address) {
	m["postal_code"] = a.PostalCode
	m["prefecture"] = a.Prefecture
	m["city"] = a.City
	m["street"] = a.Street
	m["building"] = a.Building
}

func getAddress(r tabular.Row) Address {
	return Address{
		PostalCode: r.Get("postal_code"),
		Prefecture: r.Get("prefecture"),
		City:       r.Get("city"),
		Street:     r.Get("street"),
		Building:   r.Get("building"),
	}
}

func putAudit(m map[string]string, version uint64, status RecordStatus, at time.Time, by string) {
	m["version"] = strconv.FormatUint(version, 10)
	m["deleted"] = formatDeleted(status)
	m["updated_at"] = formatTime(at)
	m["updated_by"] = by
}

type audit struct {
	version uint64
	status  RecordStatus
	at      time.Time
	by      string
}

func getAudit(r tabular.Row) (audit, error) {
	var a audit
	var err error
	if a.version, err = parseVersion(r.Get("version")); err != nil {
		return a, err
	}
	if a.status, err = parseDeleted(r.Get("deleted")); err != nil {
		return a, err
	}
	if a.at, err = parseTime(r.Get("updated_at")); err != nil {
		return a, fmt.Errorf("parsing updated_at: %w", err)
	}
	a.by = r.Get("updated_by")
	return a, nil
}

func encodeHousehold(h Household) map[string]string {
	m := map[string]string{
		"household_id":       h.ID,
		"core_id":            h.CoreID,
		"registered_at":      formatTime(h.RegisteredAt),
		"edit_code":          h.EditCode,
		"login_email":        h.LoginEmail,
		"notes":              h.Notes,
		"integration_status": h.IntegrationStatus,
	}
	putAddress(m, h.Address)
	putAudit(m, h.Version, h.Status, h.UpdatedAt, h.UpdatedBy)
	return m
}

func decodeHousehold(r tabular.Row) (Household, error) {
	a, err := getAudit(r)
	if err != nil {
		return Household{}, fmt.Errorf("household row %d: %w", r.Index, err)
	}
	registered, err := parseTime(r.Get("registered_at"))
	if err != nil {
		return Household{}, fmt.Errorf("household row %d: parsing registered_at: %w", r.Index, err)
	}
	return Household{
		ID:                r.Get("household_id"),
		CoreID:            r.Get("core_id"),
		RegisteredAt:      registered,
		EditCode:          r.Get("edit_code"),
		LoginEmail:        r.Get("login_email"),
		Address:           getAddress(r),
		Notes:             r.Get("notes"),
		IntegrationStatus: r.Get("integration_status"),
		Version:           a.version,
		Status:            a.status,
		UpdatedAt:         a.at,
		UpdatedBy:         a.by,
	}, nil
}

func encodeGuardian(g Guardian) map[string]string {
	m := map[string]string{
		"household_id":        g.HouseholdID,
		"guardian_id":         g.ID,
		"core_id":             g.CoreID,
		"relationship":        g.Relationship,
		"relationship_detail": g.RelationshipDetail,
		"contact_priority":    strconv.Itoa(g.ContactPriority),
		"contact_method":      g.ContactMethod,
		"last_name":           g.LastName,
		"first_name":          g.FirstName,
		"last_name_kana":      g.LastNameKana,
		"first_name_kana":     g.FirstNameKana,
		"email":               g.Email,
		"meeting_email":       g.MeetingEmail,
		"mobile_phone":        g.MobilePhone,
		"home_phone":          g.HomePhone,
	}
	putAddress(m, g.Address)
	putAudit(m, g.Version, g.Status, g.UpdatedAt, g.UpdatedBy)
	return m
}

func decodeGuardian(r tabular.Row) (Guardian, error) {
	a, err := getAudit(r)
	if err != nil {
		return Guardian{}, fmt.Errorf("guardian row %d: %w", r.Index, err)
	}
	priority := 0
	if p := r.Get("contact_priority"); p != "" {
		if priority, err = strconv.Atoi(p); err != nil {
			return Guardian{}, fmt.Errorf("guardian row %d: parsing contact_priority %q: %w", r.Index, p, err)
		}
	}
	return Guardian{
		ID:                 r.Get("guardian_id"),
		HouseholdID:        r.Get("household_id"),
		CoreID:             r.Get("core_id"),
		Relationship:       r.Get("relationship"),
		RelationshipDetail: r.Get("relationship_detail"),
		ContactPriority:    priority,
		ContactMethod:      r.Get("contact_method"),
		LastName:           r.Get("last_name"),
		FirstName:          r.Get("first_name"),
		LastNameKana:       r.Get("last_name_kana"),
		FirstNameKana:      r.Get("first_name_kana"),
		Email:              r.Get("email"),
		MeetingEmail:       r.Get("meeting_email"),
		MobilePhone:        r.Get("mobile_phone"),
		HomePhone:          r.Get("home_phone"),
		Address:            getAddress(r),
		Version:            a.version,
		Status:             a.status,
		UpdatedAt:          a.at,
		UpdatedBy:          a.by,
	}, nil
}

func encodeStudent(s Student) map[string]string {
	m := map[string]string{
		"household_id":    s.HouseholdID,
		"student_id":      s.ID,
		"core_id":         s.CoreID,
		"last_name":       s.LastName,
		"first_name":      s.FirstName,
		"last_name_kana":  s.LastNameKana,
		"first_name_kana": s.FirstNameKana,
		"graduation_year": s.GraduationYear,
		"email":           s.Email,
		"class_email":     s.ClassEmail,
		"mobile_phone":    s.MobilePhone,
	}
	putAddress(m, s.Address)
	putAudit(m, s.Version, s.Status, s.UpdatedAt, s.UpdatedBy)
	return m
}

func decodeStudent(r tabular.Row) (Student, error) {
	a, err := getAudit(r)
	if err != nil {
		return Student{}, fmt.Errorf("student row %d: %w", r.Index, err)
	}
	return Student{
		ID:             r.Get("student_id"),
		HouseholdID:    r.Get("household_id"),
		CoreID:         r.Get("core_id"),
		LastName:       r.Get("last_name"),
		FirstName:      r.Get("first_name"),
		LastNameKana:   r.Get("last_name_kana"),
		FirstNameKana:  r.Get("first_name_kana"),
		GraduationYear: r.Get("graduation_year"),
		Email:          r.Get("email"),
		ClassEmail:     r.Get("class_email"),
		MobilePhone:    r.Get("mobile_phone"),
		Address:        getAddress(r),
		Version:        a.version,
		Status:         a.status,
		UpdatedAt:      a.at,
		UpdatedBy:      a.by,
	}, nil
}
