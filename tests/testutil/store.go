package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// MustCreateUser registers a user with the given id and email.
func MustCreateUser(t *testing.T, s store.Store, id model.UserID, email model.Email, name string) model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{
		ID:          id,
		Email:       email,
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

// MustSetPushToken registers a push token for a user.
func MustSetPushToken(t *testing.T, s store.Store, id model.UserID, token string) {
	t.Helper()

	if err := s.SetPushToken(context.Background(), id, token); err != nil {
		t.Fatalf("setting push token for %s: %v", id, err)
	}
}

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
