package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternlund/lockguard/internal/db"
)

// stateKey is the fixed key of the singleton lock_state row.
const stateKey = "global"

// Store persists the lock state and outstanding challenges. All writes
// go through the controller; the store itself does no locking.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// GetState reads the singleton lock state using q, creating the initial
// unlocked row on first use.
func (s *Store) GetState(ctx context.Context, q db.Querier) (*State, error) {
	row := q.QueryRowContext(ctx, `
		SELECT locked, locked_by, locked_at, reason, expires_at
		FROM lock_state WHERE key = ?`, stateKey)

	var (
		st                  State
		lockedAt, expiresAt sql.NullString
	)
	err := row.Scan(&st.Locked, &st.LockedBy, &lockedAt, &st.Reason, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO lock_state (key, locked) VALUES (?, 0)", stateKey); err != nil {
			return nil, fmt.Errorf("creating initial lock state: %w", err)
		}
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lock state: %w", err)
	}

	st.LockedAt = parseNullTime(lockedAt)
	st.ExpiresAt = parseNullTime(expiresAt)
	return &st, nil
}

// SaveState overwrites the singleton lock state using q.
func (s *Store) SaveState(ctx context.Context, q db.Querier, st *State) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO lock_state (key, locked, locked_by, locked_at, reason, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			locked = excluded.locked,
			locked_by = excluded.locked_by,
			locked_at = excluded.locked_at,
			reason = excluded.reason,
			expires_at = excluded.expires_at`,
		stateKey,
		st.Locked,
		st.LockedBy,
		formatNullTime(st.LockedAt),
		st.Reason,
		formatNullTime(st.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("writing lock state: %w", err)
	}
	return nil
}

// GetChallenge returns the outstanding challenge for a principal, or
// ErrChallengeNotFound.
func (s *Store) GetChallenge(ctx context.Context, principal string) (*Challenge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ref, code, purpose, reason, issued_at, expires_at, attempts
		FROM challenges WHERE principal = ?`, principal)

	var (
		ch                 Challenge
		purpose            string
		issuedAt, expireAt string
	)
	err := row.Scan(&ch.Ref, &ch.Code, &purpose, &ch.Reason, &issuedAt, &expireAt, &ch.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading challenge: %w", err)
	}

	ch.Principal = principal
	ch.Purpose = Purpose(purpose)
	if t, perr := time.Parse(time.DateTime, issuedAt); perr == nil {
		ch.IssuedAt = t.UTC()
	}
	if t, perr := time.Parse(time.DateTime, expireAt); perr == nil {
		ch.ExpiresAt = t.UTC()
	}
	return &ch, nil
}

// PutChallenge stores a freshly minted challenge, replacing any previous
// one for the same principal. The principal primary key enforces the
// one-outstanding-challenge invariant.
func (s *Store) PutChallenge(ctx context.Context, ch *Challenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges (principal, ref, code, purpose, reason, issued_at, expires_at, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(principal) DO UPDATE SET
			ref = excluded.ref,
			code = excluded.code,
			purpose = excluded.purpose,
			reason = excluded.reason,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at,
			attempts = 0`,
		ch.Principal,
		ch.Ref,
		ch.Code,
		string(ch.Purpose),
		ch.Reason,
		ch.IssuedAt.UTC().Format(time.DateTime),
		ch.ExpiresAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("writing challenge: %w", err)
	}
	return nil
}

// DeleteChallenge consumes the principal's challenge using q.
func (s *Store) DeleteChallenge(ctx context.Context, q db.Querier, principal string) error {
	if _, err := q.ExecContext(ctx,
		"DELETE FROM challenges WHERE principal = ?", principal); err != nil {
		return fmt.Errorf("deleting challenge: %w", err)
	}
	return nil
}

// IncrementAttempts records a failed verification and returns the new
// attempt count.
func (s *Store) IncrementAttempts(ctx context.Context, principal string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE challenges SET attempts = attempts + 1
		WHERE principal = ?
		RETURNING attempts`, principal).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrChallengeNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("recording failed attempt: %w", err)
	}
	return attempts, nil
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.DateTime, v.String)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.DateTime)
}
