// ABOUTME: Change detection between a normalized submission and the current snapshot
// ABOUTME: An update with no differences appends nothing and keeps the version

package household

import "strings"

// changed reports whether applying sub to cur would alter any stored value.
// sub must already be normalized.
func changed(cur *Aggregate, sub Submission) bool {
	h := cur.Household
	if h.LoginEmail != sub.Household.LoginEmail ||
		addressFields(h.Address) != addressFields(sub.Household.Address) ||
		h.Notes != sub.Household.Notes {
		return true
	}

	if len(sub.Guardians) != len(cur.Guardians) || len(sub.Students) != len(cur.Students) {
		return true
	}

	guardians := make(map[string]Guardian, len(cur.Guardians))
	for _, g := range cur.Guardians {
		guardians[g.ID] = g
	}
	for _, f := range sub.Guardians {
		g, ok := guardians[f.GuardianID]
		if !ok || guardianFields(g) != guardianFields(guardianFromForm(f)) {
			return true
		}
	}

	students := make(map[string]Student, len(cur.Students))
	for _, s := range cur.Students {
		students[s.ID] = s
	}
	for _, f := range sub.Students {
		s, ok := students[f.StudentID]
		if !ok || studentFields(s) != studentFields(studentFromForm(f)) {
			return true
		}
	}
	return false
}

// guardianFields drops identity and audit fields, leaving what a form edits.
func guardianFields(g Guardian) Guardian {
	return Guardian{
		Relationship:       g.Relationship,
		RelationshipDetail: g.RelationshipDetail,
		ContactPriority:    g.ContactPriority,
		ContactMethod:      contactMethodOrDefault(g.ContactMethod),
		LastName:           g.LastName,
		FirstName:          g.FirstName,
		LastNameKana:       g.LastNameKana,
		FirstNameKana:      g.FirstNameKana,
		Email:              g.Email,
		MeetingEmail:       g.MeetingEmail,
		MobilePhone:        stripHyphens(g.MobilePhone),
		HomePhone:          stripHyphens(g.HomePhone),
		Address:            addressFields(g.Address),
	}
}

func studentFields(s Student) Student {
	return Student{
		LastName:       s.LastName,
		FirstName:      s.FirstName,
		LastNameKana:   s.LastNameKana,
		FirstNameKana:  s.FirstNameKana,
		GraduationYear: s.GraduationYear,
		Email:          s.Email,
		ClassEmail:     s.ClassEmail,
		MobilePhone:    stripHyphens(s.MobilePhone),
		Address:        addressFields(s.Address),
	}
}

// addressFields compares postal codes without their hyphen.
func addressFields(a Address) Address {
	a.PostalCode = stripHyphens(a.PostalCode)
	return a
}

// stripHyphens makes 09011111111 and 090-1111-1111 compare equal. Dashes
// are already unified to "-" by normalization.
func stripHyphens(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

func contactMethodOrDefault(m string) string {
	if m == "" {
		return DefaultContactMethod
	}
	return m
}
