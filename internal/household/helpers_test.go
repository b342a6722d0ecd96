// ABOUTME: Shared fixtures for household package tests
// ABOUTME: Builds repositories on the memory store with a fixed clock

package household

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/household-registry/internal/tabular"
)

var testNow = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repository, *tabular.MemoryStore) {
	t.Helper()
	store := tabular.NewMemoryStore()
	var mu sync.Mutex
	n := 0
	repo := NewRepository(store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return testNow }),
		WithEditCodes(func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("%d", 123455+n), nil
		}),
	)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo, store
}

func sampleSubmission(login string) Submission {
	return Submission{
		Household: HouseholdForm{
			LoginEmail: login,
			Address: Address{
				PostalCode: "060-0001",
				Prefecture: "北海道",
				City:       "札幌市中央区",
				Street:     "北1条西1-1",
			},
			Notes: "",
		},
		Guardians: []GuardianForm{{
			Relationship:    "母",
			ContactPriority: 1,
			ContactMethod:   "メール",
			LastName:        "山田",
			FirstName:       "花子",
			LastNameKana:    "ヤマダ",
			FirstNameKana:   "ハナコ",
			Email:           login,
			MobilePhone:     "090-1111-1111",
		}},
		Students: []StudentForm{{
			LastName:       "山田",
			FirstName:      "太郎",
			LastNameKana:   "ヤマダ",
			FirstNameKana:  "タロウ",
			GraduationYear: "2027",
			Email:          "taro@example.com",
		}},
	}
}

func editForm(agg *Aggregate) Submission {
	return FormFromAggregate(agg)
}

func rowCount(t *testing.T, store tabular.Store, table string) int {
	t.Helper()
	rows, err := store.ReadTable(context.Background(), table)
	require.NoError(t, err)
	return len(rows)
}
