package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestIsFollowsWrappedChain(t *testing.T) {
	base := Wrap(NotFound, "getting task t1", sql.ErrNoRows)
	wrapped := fmt.Errorf("marking subtask: %w", base)

	if !Is(wrapped, NotFound) {
		t.Fatalf("expected NotFound in chain, got kind %q", KindOf(wrapped))
	}
	if Is(wrapped, Persistence) {
		t.Fatal("did not expect Persistence")
	}
	if !errors.Is(wrapped, sql.ErrNoRows) {
		t.Fatal("expected the cause to remain reachable")
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(Persistence, "op", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
	if Is(nil, NotFound) {
		t.Fatal("nil error has no kind")
	}
}

func TestErrorMessage(t *testing.T) {
	err := E(InvalidInput, "creating project", "name must not be empty")
	if got, want := err.Error(), "creating project: name must not be empty"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain errors have no kind")
	}
}
