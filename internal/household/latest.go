// ABOUTME: Version selection over append-only record sets
// ABOUTME: FilterLatest and the lock-step snapshot helpers used by the repository

package household

import (
	"slices"
	"strings"
)

// Record is implemented by every versioned entity.
type Record interface {
	RecordKey() string
	RecordVersion() uint64
	Tombstoned() bool
}

type member interface {
	Record
	Owner() string
}

func (h Household) RecordKey() string     { return h.ID }
func (h Household) RecordVersion() uint64 { return h.Version }
func (h Household) Tombstoned() bool      { return h.Status == StatusDeleted }

func (g Guardian) RecordKey() string     { return g.ID }
func (g Guardian) RecordVersion() uint64 { return g.Version }
func (g Guardian) Tombstoned() bool      { return g.Status == StatusDeleted }
func (g Guardian) Owner() string         { return g.HouseholdID }

func (s Student) RecordKey() string     { return s.ID }
func (s Student) RecordVersion() uint64 { return s.Version }
func (s Student) Tombstoned() bool      { return s.Status == StatusDeleted }
func (s Student) Owner() string         { return s.HouseholdID }

// FilterLatest keeps one record per key: the one with the highest version,
// the later one on a tie. Keys whose winning record is tombstoned are
// dropped. Output follows the order in which keys first appear.
func FilterLatest[T Record](records []T) []T {
	best := make(map[string]int, len(records))
	var order []string
	for i, r := range records {
		k := r.RecordKey()
		j, seen := best[k]
		if !seen {
			order = append(order, k)
			best[k] = i
			continue
		}
		if r.RecordVersion() >= records[j].RecordVersion() {
			best[k] = i
		}
	}

	out := make([]T, 0, len(order))
	for _, k := range order {
		r := records[best[k]]
		if !r.Tombstoned() {
			out = append(out, r)
		}
	}
	return out
}

// currentHousehold returns the highest-version row for id, deleted or not.
func currentHousehold(rows []Household, id string) (Household, bool) {
	var cur Household
	found := false
	for _, h := range rows {
		if h.ID != id {
			continue
		}
		if !found || h.Version >= cur.Version {
			cur = h
			found = true
		}
	}
	return cur, found
}

// householdAt returns the last appended row for id at version.
func householdAt(rows []Household, id string, version uint64) (Household, bool) {
	var out Household
	found := false
	for _, h := range rows {
		if h.ID == id && h.Version == version {
			out = h
			found = true
		}
	}
	return out, found
}

// membersAt returns the active members of a household at exactly version.
// When a key repeats at that version the last appended row wins.
func membersAt[T member](rows []T, householdID string, version uint64) []T {
	idx := make(map[string]int)
	var picked []T
	for _, r := range rows {
		if r.Owner() != householdID || r.RecordVersion() != version {
			continue
		}
		if i, ok := idx[r.RecordKey()]; ok {
			picked[i] = r
			continue
		}
		idx[r.RecordKey()] = len(picked)
		picked = append(picked, r)
	}

	out := picked[:0]
	for _, r := range picked {
		if !r.Tombstoned() {
			out = append(out, r)
		}
	}
	return out
}

// memberKeys returns every key ever recorded for a household.
func memberKeys[T member](rows []T, householdID string) map[string]T {
	out := make(map[string]T)
	for _, r := range rows {
		if r.Owner() == householdID {
			out[r.RecordKey()] = r
		}
	}
	return out
}

func sortGuardians(gs []Guardian) {
	slices.SortStableFunc(gs, func(a, b Guardian) int {
		if a.ContactPriority != b.ContactPriority {
			return a.ContactPriority - b.ContactPriority
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortStudents(ss []Student) {
	slices.SortStableFunc(ss, func(a, b Student) int {
		return strings.Compare(a.ID, b.ID)
	})
}

func snapshot(h Household, guardians []Guardian, students []Student) *Aggregate {
	gs := membersAt(guardians, h.ID, h.Version)
	ss := membersAt(students, h.ID, h.Version)
	sortGuardians(gs)
	sortStudents(ss)
	if gs == nil {
		gs = []Guardian{}
	}
	if ss == nil {
		ss = []Student{}
	}
	return &Aggregate{Household: h, Guardians: gs, Students: ss}
}
