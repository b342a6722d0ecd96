// ABOUTME: Edit session carried through request handlers
// ABOUTME: Provides WithSession/FromContext for propagating the session via context

package auth

import (
	"context"
	"time"
)

// Session is the identity established by a magic link or edit code. It
// grants access to exactly one household.
type Session struct {
	HouseholdID string
	Email       string
	ExpiresAt   time.Time
}

// Allows reports whether the session may read or edit householdID.
func (s *Session) Allows(householdID string) bool {
	return s != nil && s.HouseholdID != "" && s.HouseholdID == householdID
}

type sessionContextKey struct{}

// WithSession returns a new context with the session attached.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves the session from the context, returning nil if not present.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}
