// ABOUTME: Canonical form for submitted households before validation and storage
// ABOUTME: Folds full-width digits, unifies hyphens and trims every field

package household

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var dashReplacer = strings.NewReplacer("－", "-", "―", "-", "‐", "-", "−", "-")

// foldWidth maps full-width ASCII to half-width and half-width katakana to
// full-width, leaving full-width katakana alone.
func foldWidth(s string) string {
	return width.Fold.String(s)
}

// NormalizeAddressText folds digits to ASCII, unifies dash variants to "-"
// and turns a prolonged sound mark between two digits into "-".
func NormalizeAddressText(s string) string {
	s = dashReplacer.Replace(foldWidth(strings.TrimSpace(s)))

	runes := []rune(s)
	for i := 1; i+1 < len(runes); i++ {
		if runes[i] == 'ー' && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
			runes[i] = '-'
		}
	}
	return string(runes)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// normalizeNumber is used for phone numbers, postal codes and years.
func normalizeNumber(s string) string {
	return dashReplacer.Replace(foldWidth(strings.TrimSpace(s)))
}

func normalizeAddress(a Address) Address {
	return Address{
		PostalCode: normalizeNumber(a.PostalCode),
		Prefecture: strings.TrimSpace(a.Prefecture),
		City:       NormalizeAddressText(a.City),
		Street:     NormalizeAddressText(a.Street),
		Building:   NormalizeAddressText(a.Building),
	}
}

// normalizeKana composes half-width katakana and voicing marks into
// full-width characters.
func normalizeKana(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

// DropIncomplete removes guardian and student entries that do not have
// both a last and a first name. Such entries are blank rows left in the
// form.
func DropIncomplete(sub Submission) Submission {
	out := sub
	out.Guardians = nil
	for _, g := range sub.Guardians {
		if strings.TrimSpace(g.LastName) != "" && strings.TrimSpace(g.FirstName) != "" {
			out.Guardians = append(out.Guardians, g)
		}
	}
	out.Students = nil
	for _, s := range sub.Students {
		if strings.TrimSpace(s.LastName) != "" && strings.TrimSpace(s.FirstName) != "" {
			out.Students = append(out.Students, s)
		}
	}
	return out
}

// Normalize returns the canonical form of sub. Entries flagged IsDeleted
// are removed, blank contact methods default to DefaultContactMethod and a
// single guardian without a priority becomes priority 1. Normalize is
// idempotent.
func Normalize(sub Submission) Submission {
	out := Submission{
		Household: HouseholdForm{
			HouseholdID: strings.TrimSpace(sub.Household.HouseholdID),
			LoginEmail:  strings.TrimSpace(sub.Household.LoginEmail),
			Address:     normalizeAddress(sub.Household.Address),
			Notes:       strings.TrimSpace(sub.Household.Notes),
		},
	}

	for _, g := range sub.Guardians {
		if g.IsDeleted {
			continue
		}
		method := strings.TrimSpace(g.ContactMethod)
		if method == "" {
			method = DefaultContactMethod
		}
		out.Guardians = append(out.Guardians, GuardianForm{
			GuardianID:         strings.TrimSpace(g.GuardianID),
			Relationship:       strings.TrimSpace(g.Relationship),
			RelationshipDetail: strings.TrimSpace(g.RelationshipDetail),
			ContactPriority:    g.ContactPriority,
			ContactMethod:      method,
			LastName:           strings.TrimSpace(g.LastName),
			FirstName:          strings.TrimSpace(g.FirstName),
			LastNameKana:       normalizeKana(g.LastNameKana),
			FirstNameKana:      normalizeKana(g.FirstNameKana),
			Email:              strings.TrimSpace(g.Email),
			MeetingEmail:       strings.TrimSpace(g.MeetingEmail),
			MobilePhone:        normalizeNumber(g.MobilePhone),
			HomePhone:          normalizeNumber(g.HomePhone),
			Address:            normalizeAddress(g.Address),
		})
	}
	if len(out.Guardians) == 1 && out.Guardians[0].ContactPriority == 0 {
		out.Guardians[0].ContactPriority = 1
	}

	for _, s := range sub.Students {
		if s.IsDeleted {
			continue
		}
		out.Students = append(out.Students, StudentForm{
			StudentID:      strings.TrimSpace(s.StudentID),
			LastName:       strings.TrimSpace(s.LastName),
			FirstName:      strings.TrimSpace(s.FirstName),
			LastNameKana:   normalizeKana(s.LastNameKana),
			FirstNameKana:  normalizeKana(s.FirstNameKana),
			GraduationYear: normalizeNumber(s.GraduationYear),
			Email:          strings.TrimSpace(s.Email),
			ClassEmail:     strings.TrimSpace(s.ClassEmail),
			MobilePhone:    normalizeNumber(s.MobilePhone),
			Address:        normalizeAddress(s.Address),
		})
	}
	return out
}
