// ABOUTME: Unit tests for session context helpers
// ABOUTME: Tests context propagation of the edit session

package auth

import (
	"context"
	"testing"
)

func TestFromContext_Present(t *testing.T) {
	expected := &Session{HouseholdID: "HH00001", Email: "parent@example.com"}

	got := FromContext(WithSession(context.Background(), expected))
	if got == nil {
		t.Fatal("FromContext() = nil, want non-nil")
	}
	if got.HouseholdID != expected.HouseholdID {
		t.Errorf("HouseholdID = %q, want %q", got.HouseholdID, expected.HouseholdID)
	}
	if got.Email != expected.Email {
		t.Errorf("Email = %q, want %q", got.Email, expected.Email)
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}
