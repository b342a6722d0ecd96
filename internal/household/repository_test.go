// ABOUTME: Behavior tests for the household repository
// ABOUTME: Covers create, update reconciliation, change detection, lookups and withdrawal

package household

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/household-registry/internal/tabular"
)

func TestSave_CreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	sub := sampleSubmission("parent@example.com")
	sub.Guardians = append(sub.Guardians, GuardianForm{
		Relationship: "父", ContactPriority: 2, LastName: "山田", FirstName: "一郎",
		Email: "father@example.com", HomePhone: "011-222-3333",
	})
	sub.Students = append(sub.Students, StudentForm{LastName: "山田", FirstName: "次郎", GraduationYear: "2029"})

	res, err := repo.Save(ctx, sub, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "HH00001", res.HouseholdID)
	assert.Equal(t, "123456", res.EditCode)
	assert.Equal(t, uint64(1), res.Version)
	assert.True(t, res.Changed)

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	require.NotNil(t, agg)

	assert.Equal(t, uint64(1), agg.Household.Version)
	assert.Equal(t, "123456", agg.Household.EditCode)
	assert.Equal(t, testNow, agg.Household.RegisteredAt)
	assert.Equal(t, "parent@example.com", agg.Household.UpdatedBy)

	require.Len(t, agg.Guardians, 2)
	assert.Equal(t, "G00001", agg.Guardians[0].ID)
	assert.Equal(t, "花子", agg.Guardians[0].FirstName)
	assert.Equal(t, "G00002", agg.Guardians[1].ID)
	assert.Equal(t, DefaultContactMethod, agg.Guardians[1].ContactMethod)
	for _, gd := range agg.Guardians {
		assert.Equal(t, uint64(1), gd.Version)
		assert.Equal(t, "HH00001", gd.HouseholdID)
	}

	require.Len(t, agg.Students, 2)
	assert.Equal(t, []string{"S00001", "S00002"}, []string{agg.Students[0].ID, agg.Students[1].ID})
	for _, st := range agg.Students {
		assert.Equal(t, uint64(1), st.Version)
	}

	assert.Equal(t, res.Aggregate, agg)
}

func TestSave_ConcreteScenario(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	res, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "HH00001", res.HouseholdID)
	assert.NotEmpty(t, res.EditCode)

	agg, err := repo.FindByEmail(ctx, "parent@example.com")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "HH00001", agg.Household.ID)
	assert.Equal(t, uint64(1), agg.Household.Version)
}

func TestSave_CreateAllocatesAfterExistingIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	_, err := repo.Save(ctx, sampleSubmission("a@example.com"), SaveOptions{})
	require.NoError(t, err)
	res, err := repo.Save(ctx, sampleSubmission("b@example.com"), SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, "HH00002", res.HouseholdID)
	assert.Equal(t, "G00002", res.Aggregate.Guardians[0].ID)
	assert.Equal(t, "S00002", res.Aggregate.Students[0].ID)
}

func TestSave_CreateRejectsDuplicateLoginEmail(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	_, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	_, err = repo.Save(ctx, sampleSubmission("Parent@Example.com "), SaveOptions{})
	assert.True(t, errors.Is(err, ErrDuplicateEmail))
	assert.Equal(t, 1, rowCount(t, store, HouseholdTable))
}

func TestSave_UpdateRemovesMissingGuardian(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	sub := sampleSubmission("parent@example.com")
	sub.Guardians = append(sub.Guardians, GuardianForm{
		Relationship: "父", ContactPriority: 2, LastName: "山田", FirstName: "一郎", HomePhone: "011-222-3333",
	})
	created, err := repo.Save(ctx, sub, SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	edit.Guardians = edit.Guardians[:1]

	res, err := repo.Save(ctx, edit, SaveOptions{Actor: "parent@example.com"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint64(2), res.Version)

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	require.Len(t, agg.Guardians, 1)
	assert.Equal(t, "G00001", agg.Guardians[0].ID)
	assert.Equal(t, uint64(2), agg.Household.Version)

	rows, err := store.ReadTable(ctx, GuardianTable)
	require.NoError(t, err)
	var tomb *Guardian
	for _, row := range rows {
		gd, err := decodeGuardian(row)
		require.NoError(t, err)
		if gd.ID == "G00002" && gd.Version == 2 {
			tomb = &gd
		}
	}
	require.NotNil(t, tomb, "expected a tombstone for G00002 at version 2")
	assert.Equal(t, StatusDeleted, tomb.Status)
	assert.Equal(t, "一郎", tomb.FirstName, "tombstone keeps last known values")
	assert.Equal(t, "011-222-3333", tomb.HomePhone)

	// Version 1 is still readable with both guardians.
	old, err := repo.Snapshot(ctx, "HH00001", 1)
	require.NoError(t, err)
	assert.Len(t, old.Guardians, 2)
}

func TestSave_UpdateRemovesViaDeleteFlag(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	sub := sampleSubmission("parent@example.com")
	sub.Students = append(sub.Students, StudentForm{LastName: "山田", FirstName: "次郎"})
	created, err := repo.Save(ctx, sub, SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	edit.Students[1].IsDeleted = true
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	require.Len(t, agg.Students, 1)
	assert.Equal(t, "S00001", agg.Students[0].ID)
}

func TestSave_UpdateWithoutChangesAppendsNothing(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	before := rowCount(t, store, HouseholdTable) + rowCount(t, store, GuardianTable) + rowCount(t, store, StudentTable)

	edit := editForm(created.Aggregate)
	// Full-width input that normalizes to the stored value is not a change.
	edit.Household.PostalCode = "０６０－０００１"
	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, uint64(1), res.Version)

	after := rowCount(t, store, HouseholdTable) + rowCount(t, store, GuardianTable) + rowCount(t, store, StudentTable)
	assert.Equal(t, before, after)
}

func TestSave_UpdateIgnoresHyphenOnlyDifferences(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)
	before := rowCount(t, store, GuardianTable)

	edit := editForm(created.Aggregate)
	edit.Guardians[0].MobilePhone = "09011111111"
	edit.Household.PostalCode = "0600001"
	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, uint64(1), res.Version)
	assert.Equal(t, "090-1111-1111", res.Aggregate.Guardians[0].MobilePhone, "stored value is kept")
	assert.Equal(t, before, rowCount(t, store, GuardianTable))

	edit.Guardians[0].MobilePhone = "09011112222"
	res, err = repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint64(2), res.Version)
}

func TestSave_UpdateInheritsImmutableFields(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	// Simulate the core system linking the guardian and household.
	rows, err := store.ReadTable(ctx, GuardianTable)
	require.NoError(t, err)
	gd, err := decodeGuardian(rows[0])
	require.NoError(t, err)
	gd.CoreID = "CORE-G-1"
	require.NoError(t, store.UpdateRow(ctx, GuardianTable, rows[0].Index, valuesOf(encodeGuardian(gd), GuardianColumns)))

	hRows, err := store.ReadTable(ctx, HouseholdTable)
	require.NoError(t, err)
	h, err := decodeHousehold(hRows[0])
	require.NoError(t, err)
	h.CoreID = "CORE-HH-1"
	h.IntegrationStatus = "linked"
	require.NoError(t, store.UpdateRow(ctx, HouseholdTable, hRows[0].Index, valuesOf(encodeHousehold(h), HouseholdColumns)))

	edit := editForm(created.Aggregate)
	edit.Household.Notes = "アレルギーあり"
	edit.Guardians[0].MobilePhone = "080-9999-9999"
	edit.Guardians = append(edit.Guardians, GuardianForm{
		ContactPriority: 2, LastName: "山田", FirstName: "一郎", HomePhone: "011-222-3333",
	})

	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)

	agg := res.Aggregate
	assert.Equal(t, "CORE-HH-1", agg.Household.CoreID)
	assert.Equal(t, "linked", agg.Household.IntegrationStatus)
	assert.Equal(t, created.EditCode, agg.Household.EditCode)
	assert.Equal(t, testNow, agg.Household.RegisteredAt)
	assert.Equal(t, "アレルギーあり", agg.Household.Notes)

	require.Len(t, agg.Guardians, 2)
	assert.Equal(t, "CORE-G-1", agg.Guardians[0].CoreID)
	assert.Equal(t, "080-9999-9999", agg.Guardians[0].MobilePhone)
	assert.Equal(t, "G00002", agg.Guardians[1].ID)
	assert.Empty(t, agg.Guardians[1].CoreID)

	loaded, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	assert.Equal(t, agg, loaded)
}

func valuesOf(m map[string]string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = m[c]
	}
	return out
}

func TestSave_UpdateUnknownHousehold(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	sub := sampleSubmission("parent@example.com")
	sub.Household.HouseholdID = "HH00042"
	_, err := repo.Save(ctx, sub, SaveOptions{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSave_UpdateRejectsForeignMember(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	_, err := repo.Save(ctx, sampleSubmission("a@example.com"), SaveOptions{})
	require.NoError(t, err)
	second, err := repo.Save(ctx, sampleSubmission("b@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(second.Aggregate)
	edit.Guardians[0].GuardianID = "G00001"
	_, err = repo.Save(ctx, edit, SaveOptions{})
	assert.True(t, errors.Is(err, ErrInvalidMember))

	edit = editForm(second.Aggregate)
	edit.Students = append(edit.Students, edit.Students[0])
	_, err = repo.Save(ctx, edit, SaveOptions{})
	assert.True(t, errors.Is(err, ErrInvalidMember))
}

func TestSave_UpdateLoginEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	_, err := repo.Save(ctx, sampleSubmission("a@example.com"), SaveOptions{})
	require.NoError(t, err)
	second, err := repo.Save(ctx, sampleSubmission("b@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(second.Aggregate)
	edit.Household.LoginEmail = "a@example.com"
	_, err = repo.Save(ctx, edit, SaveOptions{})
	assert.True(t, errors.Is(err, ErrDuplicateEmail))

	edit.Household.LoginEmail = "new@example.com"
	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", res.Aggregate.Household.LoginEmail)
}

func TestSave_InterruptedUpdateKeepsPreviousVersionCurrent(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	edit.Students[0].FirstName = "三郎"

	store.FailAppend = func(table string) error {
		if table == HouseholdTable {
			return errors.New("quota exceeded")
		}
		return nil
	}
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Op, "household HH00001 v2")

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), agg.Household.Version)
	assert.Equal(t, "太郎", agg.Students[0].FirstName)

	// The retry skips the version the failed attempt left rows at.
	store.FailAppend = nil
	edit.Students[0].FirstName = "四郎"
	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Version)

	agg, err = repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	require.Len(t, agg.Students, 1)
	assert.Equal(t, "四郎", agg.Students[0].FirstName)

	orphan, err := repo.Snapshot(ctx, "HH00001", 2)
	require.NoError(t, err)
	assert.Nil(t, orphan, "no household row was written at version 2")
}

func TestSave_RetryAfterInterruptedUpdateIgnoresOrphanedMembers(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	jiro := edit.Students[0]
	jiro.StudentID = ""
	jiro.FirstName = "次郎"
	jiro.FirstNameKana = "ジロウ"
	jiro.Email = "jiro@example.com"
	edit.Students = append(edit.Students, jiro)

	store.FailAppend = func(table string) error {
		if table == HouseholdTable {
			return errors.New("quota exceeded")
		}
		return nil
	}
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 3, rowCount(t, store, StudentTable), "the failed attempt left both student rows behind")

	store.FailAppend = nil
	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint64(3), res.Version)
	require.Len(t, res.Aggregate.Students, 2)
	assert.Equal(t, "S00003", res.Aggregate.Students[1].ID, "the orphaned id is never reused")

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	require.Len(t, agg.Students, 2)
	assert.Equal(t, res.Aggregate, agg)
	assert.Equal(t, "太郎", agg.Students[0].FirstName)
	assert.Equal(t, "次郎", agg.Students[1].FirstName)
	for _, s := range agg.Students {
		assert.Equal(t, uint64(3), s.Version)
	}
}

func TestWithdraw_AfterInterruptedUpdate(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	edit.Household.Notes = "転居予定"
	store.FailAppend = func(table string) error {
		if table == HouseholdTable {
			return errors.New("quota exceeded")
		}
		return nil
	}
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.Error(t, err)

	store.FailAppend = nil
	version, err := repo.Withdraw(ctx, "HH00001", "office@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version)

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	assert.Nil(t, agg)
}

func TestFindByEmail(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	sub := sampleSubmission("login@example.com")
	sub.Guardians[0].Email = "mother@example.com"
	created, err := repo.Save(ctx, sub, SaveOptions{})
	require.NoError(t, err)

	for _, email := range []string{"mother@example.com", "taro@example.com", "LOGIN@example.com"} {
		agg, err := repo.FindByEmail(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, agg, email)
		assert.Equal(t, "HH00001", agg.Household.ID)
	}

	agg, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, agg)

	agg, err = repo.FindByEmail(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, agg)

	// After an email change the old address still resolves, but the
	// snapshot no longer uses it.
	edit := editForm(created.Aggregate)
	edit.Guardians[0].Email = "mother.new@example.com"
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)

	agg, err = repo.FindByEmail(ctx, "mother@example.com")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.False(t, agg.UsesEmail("mother@example.com"))
}

func TestFindByEmail_ClassEmail(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	sub := sampleSubmission("parent@example.com")
	sub.Students[0].ClassEmail = "Taro@Class.example.com"
	_, err := repo.Save(ctx, sub, SaveOptions{})
	require.NoError(t, err)

	agg, err := repo.FindByEmail(ctx, "taro@class.example.com")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "HH00001", agg.Household.ID)
	assert.True(t, agg.UsesEmail("taro@class.example.com"))

	// An address that resolves for sign-in is also taken for registration.
	_, err = repo.Save(ctx, sampleSubmission("taro@class.example.com"), SaveOptions{})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestFindByEmail_PrefersHouseholdStillUsingEmail(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	first := sampleSubmission("a@example.com")
	first.Guardians[0].Email = "shared@example.com"
	created, err := repo.Save(ctx, first, SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	edit.Guardians[0].Email = "a2@example.com"
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)

	second := sampleSubmission("b@example.com")
	second.Guardians[0].Email = "shared@example.com"
	_, err = repo.Save(ctx, second, SaveOptions{})
	require.NoError(t, err)

	agg, err := repo.FindByEmail(ctx, "shared@example.com")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "HH00002", agg.Household.ID)
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	_, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	v, err := repo.Withdraw(ctx, "HH00001", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)

	agg, err := repo.GetHouseholdData(ctx, "HH00001")
	require.NoError(t, err)
	assert.Nil(t, agg)

	all, err := repo.ListCurrent(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	history, err := repo.History(ctx, "HH00001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusDeleted, history[1].Status)
	assert.Equal(t, "admin@example.com", history[1].UpdatedBy)

	_, err = repo.Withdraw(ctx, "HH00001", "admin@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))

	// The login email is free again.
	res, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "HH00002", res.HouseholdID)
}

func TestListCurrent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	a, err := repo.Save(ctx, sampleSubmission("a@example.com"), SaveOptions{})
	require.NoError(t, err)
	_, err = repo.Save(ctx, sampleSubmission("b@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(a.Aggregate)
	edit.Household.Notes = "updated"
	_, err = repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)

	all, err := repo.ListCurrent(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "HH00001", all[0].Household.ID)
	assert.Equal(t, uint64(2), all[0].Household.Version)
	assert.Equal(t, "updated", all[0].Household.Notes)
	assert.Len(t, all[0].Guardians, 1)
	assert.Equal(t, "HH00002", all[1].Household.ID)
}

func TestSave_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*SaveResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := sampleSubmission(string(rune('a'+i)) + "@example.com")
			results[i], errs[i] = repo.Save(ctx, sub, SaveOptions{})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i].HouseholdID])
		seen[results[i].HouseholdID] = true
		assert.False(t, seen[results[i].Aggregate.Guardians[0].ID])
		seen[results[i].Aggregate.Guardians[0].ID] = true
	}
}

func TestRepository_OnSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := tabular.Open(tabular.DriverSQLite, filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer store.Close()

	repo := NewRepository(store)
	require.NoError(t, repo.EnsureSchema(ctx))

	created, err := repo.Save(ctx, sampleSubmission("parent@example.com"), SaveOptions{})
	require.NoError(t, err)

	edit := editForm(created.Aggregate)
	edit.Guardians[0].HomePhone = "011-000-0000"
	res, err := repo.Save(ctx, edit, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Version)

	agg, err := repo.GetHouseholdData(ctx, created.HouseholdID)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "011-000-0000", agg.Guardians[0].HomePhone)
	assert.Equal(t, "060-0001", agg.Household.PostalCode)
}
