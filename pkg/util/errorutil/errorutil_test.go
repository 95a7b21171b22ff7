package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestDomainErrorIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNotFound("user", nil))
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected wrapped not found to match sentinel")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("unexpected match on a different code")
	}
}

func TestToDomainError(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := ToDomainError(pgx.ErrNoRows); got.Code != CodeNotFound || got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("unexpected mapping for no rows: %+v", got)
	}
	cause := errors.New("boom")
	got := ToDomainError(cause)
	if got.Code != CodeInternal || !errors.Is(got, cause) {
		t.Fatalf("expected internal error wrapping cause, got %+v", got)
	}
}

func TestNewTooSoonRoundsUp(t *testing.T) {
	err := NewTooSoon(90 * time.Minute)
	hours, ok := HoursRemaining(err)
	if !ok || hours != 2 {
		t.Fatalf("expected 2 hours, got %d (%v)", hours, ok)
	}
	if _, ok := HoursRemaining(NewNotFound("user", nil)); ok {
		t.Fatal("expected no hours for a non cooldown error")
	}
}
