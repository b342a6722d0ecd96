// ABOUTME: Tests for the record to row mapping layer
// ABOUTME: Every field survives encode then decode through a table

package household

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/household-registry/internal/tabular"
)

func TestCodec_ThroughTable(t *testing.T) {
	ctx := context.Background()
	store := tabular.NewMemoryStore()
	require.NoError(t, store.EnsureTable(ctx, HouseholdTable, HouseholdColumns))
	require.NoError(t, store.EnsureTable(ctx, GuardianTable, GuardianColumns))
	require.NoError(t, store.EnsureTable(ctx, StudentTable, StudentColumns))

	addr := Address{PostalCode: "001-0001", Prefecture: "北海道", City: "札幌市", Street: "1-1", Building: "A棟"}
	h := Household{
		ID: "HH00001", CoreID: "K-1", RegisteredAt: testNow, EditCode: "654321",
		LoginEmail: "a@example.com", Address: addr, Notes: "メモ", IntegrationStatus: "synced",
		Version: 3, Status: StatusDeleted, UpdatedAt: testNow, UpdatedBy: "a@example.com",
	}
	gd := Guardian{
		ID: "G00002", HouseholdID: "HH00001", CoreID: "K-2", Relationship: "その他", RelationshipDetail: "祖母",
		ContactPriority: 2, ContactMethod: "メール", LastName: "山田", FirstName: "花子",
		LastNameKana: "ヤマダ", FirstNameKana: "ハナコ", Email: "g@example.com", MeetingEmail: "m@example.com",
		MobilePhone: "090-0000-0000", HomePhone: "011-000-0000", Address: addr,
		Version: 3, Status: StatusActive, UpdatedAt: testNow, UpdatedBy: "x",
	}
	st := Student{
		ID: "S00003", HouseholdID: "HH00001", CoreID: "K-3", LastName: "山田", FirstName: "太郎",
		LastNameKana: "ヤマダ", FirstNameKana: "タロウ", GraduationYear: "2027", Email: "s@example.com",
		ClassEmail: "c@example.com", MobilePhone: "080-0000-0000", Address: addr,
		Version: 3, Status: StatusDeleted, UpdatedAt: testNow, UpdatedBy: "y",
	}

	require.NoError(t, store.AppendObject(ctx, HouseholdTable, encodeHousehold(h), householdFormats))
	require.NoError(t, store.AppendObject(ctx, GuardianTable, encodeGuardian(gd), guardianFormats))
	require.NoError(t, store.AppendObject(ctx, StudentTable, encodeStudent(st), studentFormats))

	hRows, err := store.ReadTable(ctx, HouseholdTable)
	require.NoError(t, err)
	gotH, err := decodeHousehold(hRows[0])
	require.NoError(t, err)
	assert.Equal(t, h, gotH)

	gRows, err := store.ReadTable(ctx, GuardianTable)
	require.NoError(t, err)
	gotG, err := decodeGuardian(gRows[0])
	require.NoError(t, err)
	assert.Equal(t, gd, gotG)

	sRows, err := store.ReadTable(ctx, StudentTable)
	require.NoError(t, err)
	gotS, err := decodeStudent(sRows[0])
	require.NoError(t, err)
	assert.Equal(t, st, gotS)

	assert.Equal(t, tabular.FormatText, store.Formats(GuardianTable)["mobile_phone"])
	assert.Equal(t, tabular.FormatText, store.Formats(HouseholdTable)["postal_code"])
}

func TestCodec_RejectsCorruptRows(t *testing.T) {
	_, err := decodeHousehold(tabular.Row{Values: map[string]string{"version": "x"}})
	assert.Error(t, err)

	_, err = decodeGuardian(tabular.Row{Values: map[string]string{"version": "1", "contact_priority": "first"}})
	assert.Error(t, err)

	_, err = decodeStudent(tabular.Row{Values: map[string]string{"version": "1", "deleted": "maybe"}})
	assert.Error(t, err)
}

func TestCodec_AcceptsSpreadsheetBooleans(t *testing.T) {
	s, err := parseDeleted("TRUE")
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, s)

	s, err = parseDeleted("")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s)
}
