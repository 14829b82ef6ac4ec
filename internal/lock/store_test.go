package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternlund/lockguard/internal/db"
)

func setupLockStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), database
}

func TestGetStateCreatesInitialRow(t *testing.T) {
	store, database := setupLockStore(t)
	ctx := context.Background()

	state, err := store.GetState(ctx, database)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Locked {
		t.Error("initial state must be unlocked")
	}
	if state.LockedBy != "" || state.LockedAt != nil || state.ExpiresAt != nil {
		t.Errorf("initial state carries fields: %+v", state)
	}

	// The row now exists; a second read must not fail.
	if _, err := store.GetState(ctx, database); err != nil {
		t.Fatalf("second GetState: %v", err)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	store, database := setupLockStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	expires := now.Add(4 * time.Hour)
	want := &State{
		Locked:    true,
		LockedBy:  "alice",
		LockedAt:  &now,
		Reason:    "maintenance",
		ExpiresAt: &expires,
	}

	if err := store.SaveState(ctx, database, want); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := store.GetState(ctx, database)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !got.Locked || got.LockedBy != "alice" || got.Reason != "maintenance" {
		t.Errorf("state = %+v, want %+v", got, want)
	}
	if got.LockedAt == nil || !got.LockedAt.Equal(now) {
		t.Errorf("LockedAt = %v, want %v", got.LockedAt, now)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}

	// Overwrite back to unlocked; nullable fields must clear.
	if err := store.SaveState(ctx, database, &State{}); err != nil {
		t.Fatalf("SaveState clear: %v", err)
	}
	got, _ = store.GetState(ctx, database)
	if got.Locked || got.LockedAt != nil || got.ExpiresAt != nil {
		t.Errorf("cleared state = %+v", got)
	}
}

func TestChallengeLifecycle(t *testing.T) {
	store, database := setupLockStore(t)
	ctx := context.Background()

	if _, err := store.GetChallenge(ctx, "alice"); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("expected ErrChallengeNotFound, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	ch := &Challenge{
		Ref:       "ref-1",
		Principal: "alice",
		Code:      "123456",
		Purpose:   PurposeEngage,
		Reason:    "maintenance",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	if err := store.PutChallenge(ctx, ch); err != nil {
		t.Fatalf("PutChallenge: %v", err)
	}

	got, err := store.GetChallenge(ctx, "alice")
	if err != nil {
		t.Fatalf("GetChallenge: %v", err)
	}
	if got.Code != "123456" || got.Purpose != PurposeEngage || got.Reason != "maintenance" {
		t.Errorf("challenge = %+v", got)
	}
	if !got.ExpiresAt.Equal(ch.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, ch.ExpiresAt)
	}

	// Minting again replaces the outstanding challenge and resets attempts.
	if _, err := store.IncrementAttempts(ctx, "alice"); err != nil {
		t.Fatalf("IncrementAttempts: %v", err)
	}
	ch2 := *ch
	ch2.Ref = "ref-2"
	ch2.Code = "654321"
	if err := store.PutChallenge(ctx, &ch2); err != nil {
		t.Fatalf("PutChallenge replace: %v", err)
	}
	got, _ = store.GetChallenge(ctx, "alice")
	if got.Ref != "ref-2" || got.Code != "654321" || got.Attempts != 0 {
		t.Errorf("replaced challenge = %+v", got)
	}

	if err := store.DeleteChallenge(ctx, database, "alice"); err != nil {
		t.Fatalf("DeleteChallenge: %v", err)
	}
	if _, err := store.GetChallenge(ctx, "alice"); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("expected ErrChallengeNotFound after delete, got %v", err)
	}
}

func TestIncrementAttempts(t *testing.T) {
	store, _ := setupLockStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := store.PutChallenge(ctx, &Challenge{
		Ref: "r", Principal: "alice", Code: "111111",
		Purpose: PurposeRelease, IssuedAt: now, ExpiresAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("PutChallenge: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementAttempts(ctx, "alice")
		if err != nil {
			t.Fatalf("IncrementAttempts: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}

	if _, err := store.IncrementAttempts(ctx, "nobody"); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestNewChallengeCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		code, err := newChallengeCode()
		if err != nil {
			t.Fatalf("newChallengeCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
		seen[code] = true
	}
	// Not a randomness test, just a sanity check against a constant
	// generator.
	if len(seen) < 2 {
		t.Error("expected varied codes")
	}
}
