// ABOUTME: Versioned writes for household aggregates: create, update and withdraw
// ABOUTME: Update diffs the submission against the current snapshot and tombstones removals

package household

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Save creates a household when sub carries no household id and appends a
// new version otherwise. The submission is normalized first.
func (r *Repository) Save(ctx context.Context, sub Submission, opts SaveOptions) (res *SaveResult, err error) {
	ctx, span := r.tracer.Start(ctx, "household.Save")
	defer func() { endSpan(span, err) }()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	sub = Normalize(sub)
	if sub.Household.HouseholdID == "" {
		res, err = r.create(ctx, sub, opts)
	} else {
		span.SetAttributes(attribute.String("household.id", sub.Household.HouseholdID))
		res, err = r.update(ctx, sub, opts)
	}
	if err == nil {
		span.SetAttributes(
			attribute.String("household.id", res.HouseholdID),
			attribute.Int64("household.version", int64(res.Version)),
			attribute.Bool("household.changed", res.Changed),
		)
	}
	return res, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func actorFor(sub Submission, opts SaveOptions) string {
	if opts.Actor != "" {
		return opts.Actor
	}
	if len(sub.Guardians) > 0 && sub.Guardians[0].Email != "" {
		return sub.Guardians[0].Email
	}
	return sub.Household.LoginEmail
}

func guardianFromForm(f GuardianForm) Guardian {
	return Guardian{
		ID:                 f.GuardianID,
		Relationship:       f.Relationship,
		RelationshipDetail: f.RelationshipDetail,
		ContactPriority:    f.ContactPriority,
		ContactMethod:      f.ContactMethod,
		LastName:           f.LastName,
		FirstName:          f.FirstName,
		LastNameKana:       f.LastNameKana,
		FirstNameKana:      f.FirstNameKana,
		Email:              f.Email,
		MeetingEmail:       f.MeetingEmail,
		MobilePhone:        f.MobilePhone,
		HomePhone:          f.HomePhone,
		Address:            f.Address,
	}
}

func studentFromForm(f StudentForm) Student {
	return Student{
		ID:             f.StudentID,
		LastName:       f.LastName,
		FirstName:      f.FirstName,
		LastNameKana:   f.LastNameKana,
		FirstNameKana:  f.FirstNameKana,
		GraduationYear: f.GraduationYear,
		Email:          f.Email,
		ClassEmail:     f.ClassEmail,
		MobilePhone:    f.MobilePhone,
		Address:        f.Address,
	}
}

// stamp sets the audit fields shared by every row of one write.
type stamp struct {
	householdID string
	version     uint64
	at          time.Time
	by          string
}

func (s stamp) guardian(g Guardian, status RecordStatus) Guardian {
	g.HouseholdID = s.householdID
	g.Version = s.version
	g.Status = status
	g.UpdatedAt = s.at
	g.UpdatedBy = s.by
	return g
}

func (s stamp) student(st Student, status RecordStatus) Student {
	st.HouseholdID = s.householdID
	st.Version = s.version
	st.Status = status
	st.UpdatedAt = s.at
	st.UpdatedBy = s.by
	return st
}

func (r *Repository) appendHousehold(ctx context.Context, h Household) error {
	if err := r.store.AppendObject(ctx, HouseholdTable, encodeHousehold(h), householdFormats); err != nil {
		return storageErr(fmt.Sprintf("writing household %s v%d", h.ID, h.Version), err)
	}
	return nil
}

func (r *Repository) appendGuardian(ctx context.Context, g Guardian) error {
	if err := r.store.AppendObject(ctx, GuardianTable, encodeGuardian(g), guardianFormats); err != nil {
		return storageErr(fmt.Sprintf("writing guardian %s v%d", g.ID, g.Version), err)
	}
	return nil
}

func (r *Repository) appendStudent(ctx context.Context, s Student) error {
	if err := r.store.AppendObject(ctx, StudentTable, encodeStudent(s), studentFormats); err != nil {
		return storageErr(fmt.Sprintf("writing student %s v%d", s.ID, s.Version), err)
	}
	return nil
}

func (r *Repository) create(ctx context.Context, sub Submission, opts SaveOptions) (*SaveResult, error) {
	t, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if t.emailTaken(sub.Household.LoginEmail, "") {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, sub.Household.LoginEmail)
	}

	code, err := r.editCode()
	if err != nil {
		return nil, err
	}

	now := r.now().UTC().Truncate(time.Second)
	st := stamp{
		householdID: NextID(HouseholdPrefix, ids(t.households)),
		version:     1,
		at:          now,
		by:          actorFor(sub, opts),
	}
	h := Household{
		ID:           st.householdID,
		RegisteredAt: now,
		EditCode:     code,
		LoginEmail:   sub.Household.LoginEmail,
		Address:      sub.Household.Address,
		Notes:        sub.Household.Notes,
		Version:      st.version,
		Status:       StatusActive,
		UpdatedAt:    now,
		UpdatedBy:    st.by,
	}

	guardianIDs := NextIDs(GuardianPrefix, ids(t.guardians), len(sub.Guardians))
	studentIDs := NextIDs(StudentPrefix, ids(t.students), len(sub.Students))

	agg := &Aggregate{Household: h, Guardians: []Guardian{}, Students: []Student{}}

	// The household row goes first so member rows never reference a
	// household that does not exist.
	if err := r.appendHousehold(ctx, h); err != nil {
		return nil, err
	}
	for i, f := range sub.Guardians {
		g := guardianFromForm(f)
		g.ID = guardianIDs[i]
		g = st.guardian(g, StatusActive)
		if err := r.appendGuardian(ctx, g); err != nil {
			return nil, err
		}
		agg.Guardians = append(agg.Guardians, g)
	}
	for i, f := range sub.Students {
		s := studentFromForm(f)
		s.ID = studentIDs[i]
		s = st.student(s, StatusActive)
		if err := r.appendStudent(ctx, s); err != nil {
			return nil, err
		}
		agg.Students = append(agg.Students, s)
	}
	sortGuardians(agg.Guardians)
	sortStudents(agg.Students)

	r.logger.Info("created household",
		"household_id", h.ID,
		"guardians", len(agg.Guardians),
		"students", len(agg.Students),
	)
	return &SaveResult{
		HouseholdID: h.ID,
		EditCode:    code,
		Version:     1,
		Changed:     true,
		Aggregate:   agg,
	}, nil
}

func (r *Repository) update(ctx context.Context, sub Submission, opts SaveOptions) (*SaveResult, error) {
	id := sub.Household.HouseholdID
	t, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	cur := t.current(id)
	if cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	knownGuardians := memberKeys(t.guardians, id)
	knownStudents := memberKeys(t.students, id)
	if err := checkMembers(sub, knownGuardians, knownStudents); err != nil {
		return nil, err
	}

	if !changed(cur, sub) {
		r.logger.Debug("no changes", "household_id", id, "version", cur.Household.Version)
		return &SaveResult{
			HouseholdID: id,
			Version:     cur.Household.Version,
			Changed:     false,
			Aggregate:   cur,
		}, nil
	}

	if foldEmail(sub.Household.LoginEmail) != foldEmail(cur.Household.LoginEmail) &&
		t.emailTaken(sub.Household.LoginEmail, id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, sub.Household.LoginEmail)
	}

	now := r.now().UTC().Truncate(time.Second)
	st := stamp{
		householdID: id,
		version:     t.maxVersion(id) + 1,
		at:          now,
		by:          actorFor(sub, opts),
	}

	newGuardians := 0
	for _, f := range sub.Guardians {
		if f.GuardianID == "" {
			newGuardians++
		}
	}
	newStudents := 0
	for _, f := range sub.Students {
		if f.StudentID == "" {
			newStudents++
		}
	}
	freshGuardians := NextIDs(GuardianPrefix, ids(t.guardians), newGuardians)
	freshStudents := NextIDs(StudentPrefix, ids(t.students), newStudents)

	agg := &Aggregate{Guardians: []Guardian{}, Students: []Student{}}

	submittedGuardians := make(map[string]bool)
	for _, f := range sub.Guardians {
		g := guardianFromForm(f)
		if g.ID == "" {
			g.ID, freshGuardians = freshGuardians[0], freshGuardians[1:]
		} else {
			g.CoreID = knownGuardians[g.ID].CoreID
		}
		submittedGuardians[g.ID] = true
		g = st.guardian(g, StatusActive)
		if err := r.appendGuardian(ctx, g); err != nil {
			return nil, err
		}
		agg.Guardians = append(agg.Guardians, g)
	}
	for _, g := range cur.Guardians {
		if submittedGuardians[g.ID] {
			continue
		}
		if err := r.appendGuardian(ctx, st.guardian(g, StatusDeleted)); err != nil {
			return nil, err
		}
	}

	submittedStudents := make(map[string]bool)
	for _, f := range sub.Students {
		s := studentFromForm(f)
		if s.ID == "" {
			s.ID, freshStudents = freshStudents[0], freshStudents[1:]
		} else {
			s.CoreID = knownStudents[s.ID].CoreID
		}
		submittedStudents[s.ID] = true
		s = st.student(s, StatusActive)
		if err := r.appendStudent(ctx, s); err != nil {
			return nil, err
		}
		agg.Students = append(agg.Students, s)
	}
	for _, s := range cur.Students {
		if submittedStudents[s.ID] {
			continue
		}
		if err := r.appendStudent(ctx, st.student(s, StatusDeleted)); err != nil {
			return nil, err
		}
	}

	// The household row goes last: until it lands the previous version
	// stays current, so an interrupted update is invisible to readers.
	h := cur.Household
	h.LoginEmail = sub.Household.LoginEmail
	h.Address = sub.Household.Address
	h.Notes = sub.Household.Notes
	h.Version = st.version
	h.Status = StatusActive
	h.UpdatedAt = st.at
	h.UpdatedBy = st.by
	if err := r.appendHousehold(ctx, h); err != nil {
		return nil, err
	}
	agg.Household = h
	sortGuardians(agg.Guardians)
	sortStudents(agg.Students)

	r.logger.Info("updated household",
		"household_id", id,
		"version", h.Version,
		"guardians", len(agg.Guardians),
		"students", len(agg.Students),
		"guardians_removed", len(cur.Guardians)-countKept(cur.Guardians, submittedGuardians),
		"students_removed", len(cur.Students)-countKept(cur.Students, submittedStudents),
	)
	return &SaveResult{
		HouseholdID: id,
		Version:     h.Version,
		Changed:     true,
		Aggregate:   agg,
	}, nil
}

// maxVersion returns the highest version written for a household in any of
// the three tables. Member rows left behind by an interrupted save sit above
// the current household version and must never be reused.
func (t *tables) maxVersion(householdID string) uint64 {
	var v uint64
	for _, h := range t.households {
		if h.ID == householdID {
			v = max(v, h.Version)
		}
	}
	for _, g := range t.guardians {
		if g.HouseholdID == householdID {
			v = max(v, g.Version)
		}
	}
	for _, s := range t.students {
		if s.HouseholdID == householdID {
			v = max(v, s.Version)
		}
	}
	return v
}

func countKept[T Record](rows []T, kept map[string]bool) int {
	n := 0
	for _, r := range rows {
		if kept[r.RecordKey()] {
			n++
		}
	}
	return n
}

// checkMembers rejects member ids that never belonged to the household and
// ids submitted more than once.
func checkMembers(sub Submission, guardians map[string]Guardian, students map[string]Student) error {
	seen := make(map[string]bool)
	for _, g := range sub.Guardians {
		if g.GuardianID == "" {
			continue
		}
		if _, ok := guardians[g.GuardianID]; !ok {
			return fmt.Errorf("%w: guardian %s does not belong to household %s", ErrInvalidMember, g.GuardianID, sub.Household.HouseholdID)
		}
		if seen[g.GuardianID] {
			return fmt.Errorf("%w: guardian %s submitted twice", ErrInvalidMember, g.GuardianID)
		}
		seen[g.GuardianID] = true
	}
	for _, s := range sub.Students {
		if s.StudentID == "" {
			continue
		}
		if _, ok := students[s.StudentID]; !ok {
			return fmt.Errorf("%w: student %s does not belong to household %s", ErrInvalidMember, s.StudentID, sub.Household.HouseholdID)
		}
		if seen[s.StudentID] {
			return fmt.Errorf("%w: student %s submitted twice", ErrInvalidMember, s.StudentID)
		}
		seen[s.StudentID] = true
	}
	return nil
}

// Withdraw tombstones a household and all of its active members at a new
// version. A withdrawn household is no longer returned by reads.
func (r *Repository) Withdraw(ctx context.Context, householdID, actor string) (version uint64, err error) {
	ctx, span := r.tracer.Start(ctx, "household.Withdraw",
		trace.WithAttributes(attribute.String("household.id", householdID)))
	defer func() { endSpan(span, err) }()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	t, err := r.loadAll(ctx)
	if err != nil {
		return 0, err
	}
	cur := t.current(householdID)
	if cur == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, householdID)
	}

	st := stamp{
		householdID: householdID,
		version:     t.maxVersion(householdID) + 1,
		at:          r.now().UTC().Truncate(time.Second),
		by:          actor,
	}
	for _, g := range cur.Guardians {
		if err := r.appendGuardian(ctx, st.guardian(g, StatusDeleted)); err != nil {
			return 0, err
		}
	}
	for _, s := range cur.Students {
		if err := r.appendStudent(ctx, st.student(s, StatusDeleted)); err != nil {
			return 0, err
		}
	}
	h := cur.Household
	h.Version = st.version
	h.Status = StatusDeleted
	h.UpdatedAt = st.at
	h.UpdatedBy = st.by
	if err := r.appendHousehold(ctx, h); err != nil {
		return 0, err
	}

	r.logger.Info("withdrew household", "household_id", householdID, "version", st.version)
	return st.version, nil
}
