package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternlund/lockguard/internal/audit"
	"github.com/ternlund/lockguard/internal/db"
	"github.com/ternlund/lockguard/internal/logger"
	"github.com/ternlund/lockguard/internal/notify"
	"github.com/ternlund/lockguard/internal/policy"
)

const (
	// DefaultLockDuration is how long an engaged lock stays in force
	// before auto-release.
	DefaultLockDuration = 4 * time.Hour

	// DefaultChallengeTTL is how long a minted one-time code stays valid.
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultWarningWindow is how close to expiry the lock must be
	// before ExpiringSoon reports true.
	DefaultWarningWindow = 15 * time.Minute

	// DefaultMaxAttempts is how many wrong codes invalidate a challenge.
	DefaultMaxAttempts = 5

	// notifyTimeout bounds the fire-and-forget code delivery.
	notifyTimeout = 15 * time.Second
)

// Config tunes the controller. Zero values fall back to the defaults above.
type Config struct {
	LockDuration  time.Duration
	ChallengeTTL  time.Duration
	WarningWindow time.Duration
	MaxAttempts   int
}

func (c Config) withDefaults() Config {
	if c.LockDuration <= 0 {
		c.LockDuration = DefaultLockDuration
	}
	if c.ChallengeTTL <= 0 {
		c.ChallengeTTL = DefaultChallengeTTL
	}
	if c.WarningWindow <= 0 {
		c.WarningWindow = DefaultWarningWindow
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Controller owns every write to the lock state and the challenge set.
// A single mutex serializes all transitions: the lock guards rare
// administrative actions, so correctness under concurrent admins matters
// far more than parallelism.
type Controller struct {
	mu sync.Mutex

	db     *db.DB
	store  *Store
	audit  *audit.Store
	policy *policy.Policy
	sender notify.Sender
	cfg    Config
	log    logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewController wires the controller to its collaborators.
func NewController(database *db.DB, auditStore *audit.Store, pol *policy.Policy, sender notify.Sender, cfg Config, log logger.Logger) *Controller {
	return &Controller{
		db:     database,
		store:  NewStore(database),
		audit:  auditStore,
		policy: pol,
		sender: sender,
		cfg:    cfg.withDefaults(),
		log:    log.WithComponent("lock"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RequestEngage asks to freeze all destructive account-management
// operations platform-wide. If the principal must present a second
// factor, a challenge is minted and dispatched and the decision is
// FactorRequired; the caller resubmits through SubmitFactor.
func (c *Controller) RequestEngage(ctx context.Context, principal, reason string, reqCtx audit.Context) (*Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.loadState(ctx)
	if err != nil {
		return nil, err
	}

	if !c.policy.CanManage(principal) {
		return c.denyUnauthorized(ctx, principal, reqCtx)
	}
	if state.Locked {
		c.log.Infow("engage requested while already locked", "principal", principal)
		return &Decision{Outcome: OutcomeAlreadyLocked, State: state}, nil
	}

	if c.policy.RequiresSecondFactor(principal) {
		ref, err := c.mintChallenge(ctx, principal, PurposeEngage, reason)
		if err != nil {
			return nil, err
		}
		return &Decision{Outcome: OutcomeFactorRequired, ChallengeRef: ref}, nil
	}

	return c.commitEngage(ctx, principal, reason, reqCtx)
}

// RequestRelease asks to clear the engaged lock. It mirrors RequestEngage.
func (c *Controller) RequestRelease(ctx context.Context, principal string, reqCtx audit.Context) (*Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.loadState(ctx)
	if err != nil {
		return nil, err
	}

	if !c.policy.CanManage(principal) {
		return c.denyUnauthorized(ctx, principal, reqCtx)
	}
	if !state.Locked {
		c.log.Infow("release requested while already unlocked", "principal", principal)
		return &Decision{Outcome: OutcomeAlreadyUnlocked, State: state}, nil
	}

	if c.policy.RequiresSecondFactor(principal) {
		ref, err := c.mintChallenge(ctx, principal, PurposeRelease, "")
		if err != nil {
			return nil, err
		}
		return &Decision{Outcome: OutcomeFactorRequired, ChallengeRef: ref}, nil
	}

	return c.commitRelease(ctx, principal, reqCtx)
}

// SubmitFactor verifies the one outstanding challenge for the principal
// and, on success, consumes it and commits the pending transition.
// An expired challenge always yields Expired, even when the digits
// happen to match; the caller must restart the engage/release request
// for a fresh code.
func (c *Controller) SubmitFactor(ctx context.Context, principal string, purpose Purpose, code string, reqCtx audit.Context) (*Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.store.GetChallenge(ctx, principal)
	if errors.Is(err, ErrChallengeNotFound) {
		return &Decision{Outcome: OutcomeNoActiveChallenge}, nil
	}
	if err != nil {
		return nil, err
	}
	if ch.Purpose != purpose {
		return &Decision{Outcome: OutcomeNoActiveChallenge,
			Message: fmt.Sprintf("no outstanding %s challenge", purpose)}, nil
	}

	if c.now().After(ch.ExpiresAt) {
		if err := c.store.DeleteChallenge(ctx, c.db, principal); err != nil {
			return nil, err
		}
		return &Decision{Outcome: OutcomeExpired,
			Message: "challenge expired, restart the request for a fresh code"}, nil
	}

	if !codeMatches(code, ch.Code) {
		attempts, err := c.store.IncrementAttempts(ctx, principal)
		if err != nil {
			return nil, err
		}
		if _, err := c.audit.Append(ctx, c.db, audit.Event{
			Type:      audit.EventFailedAttempt,
			Principal: principal,
			Context:   reqCtx,
			Severity:  audit.SeverityCritical,
			Timestamp: c.now(),
		}); err != nil {
			return nil, err
		}
		if attempts >= c.cfg.MaxAttempts {
			if err := c.store.DeleteChallenge(ctx, c.db, principal); err != nil {
				return nil, err
			}
			c.log.Warnw("challenge invalidated after repeated failures",
				"principal", principal, "attempts", attempts)
			return &Decision{Outcome: OutcomeInvalidCode,
				Message: "too many failed attempts, challenge invalidated"}, nil
		}
		return &Decision{Outcome: OutcomeInvalidCode}, nil
	}

	// Verified. The challenge is consumed inside the same transaction
	// that commits the transition.
	state, err := c.loadState(ctx)
	if err != nil {
		return nil, err
	}

	switch purpose {
	case PurposeEngage:
		if state.Locked {
			if err := c.store.DeleteChallenge(ctx, c.db, principal); err != nil {
				return nil, err
			}
			return &Decision{Outcome: OutcomeAlreadyLocked, State: state}, nil
		}
		return c.commitEngage(ctx, principal, ch.Reason, reqCtx)
	case PurposeRelease:
		if !state.Locked {
			if err := c.store.DeleteChallenge(ctx, c.db, principal); err != nil {
				return nil, err
			}
			return &Decision{Outcome: OutcomeAlreadyUnlocked, State: state}, nil
		}
		return c.commitRelease(ctx, principal, reqCtx)
	default:
		return nil, ErrInvalidPurpose
	}
}

// GetState returns the current lock state, first applying the lazy
// expiry check.
func (c *Controller) GetState(ctx context.Context) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadState(ctx)
}

// ExpiringSoon reports whether the lock is engaged and inside the
// warning window before auto-release. It causes no transition beyond
// the lazy expiry check shared by every read.
func (c *Controller) ExpiringSoon(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.loadState(ctx)
	if err != nil {
		return false, err
	}
	if !state.Locked || state.ExpiresAt == nil {
		return false, nil
	}
	return state.ExpiresAt.Sub(c.now()) <= c.cfg.WarningWindow, nil
}

// loadState reads the state and applies expiry. Expiry is treated as a
// system-initiated release: the state clears and exactly one UNLOCK
// event attributed to the system principal lands in the same
// transaction. Callers must hold c.mu.
func (c *Controller) loadState(ctx context.Context) (*State, error) {
	state, err := c.store.GetState(ctx, c.db)
	if err != nil {
		return nil, err
	}
	if !state.Locked || state.ExpiresAt == nil || c.now().Before(*state.ExpiresAt) {
		return state, nil
	}

	cleared := &State{}
	err = c.inTx(ctx, func(tx db.Querier) error {
		if err := c.store.SaveState(ctx, tx, cleared); err != nil {
			return err
		}
		_, err := c.audit.Append(ctx, tx, audit.Event{
			Type:      audit.EventUnlock,
			Principal: SystemPrincipal,
			Severity:  audit.SeverityMedium,
			Timestamp: c.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Infow("lock auto-released on expiry",
		"locked_by", state.LockedBy, "expired_at", state.ExpiresAt)
	return cleared, nil
}

// denyUnauthorized logs the attempt durably and reports Unauthorized.
func (c *Controller) denyUnauthorized(ctx context.Context, principal string, reqCtx audit.Context) (*Decision, error) {
	if _, err := c.audit.Append(ctx, c.db, audit.Event{
		Type:      audit.EventUnauthorizedAccess,
		Principal: principal,
		Context:   reqCtx,
		Severity:  audit.SeverityCritical,
		Timestamp: c.now(),
	}); err != nil {
		return nil, err
	}
	c.log.Warnw("unauthorized lock management attempt",
		"principal", principal, "source", reqCtx.SourceAddress)
	return &Decision{Outcome: OutcomeUnauthorized,
		Message: "principal is not permitted to manage the access lock"}, nil
}

// mintChallenge creates a fresh one-time code for the principal,
// replacing any previous challenge, and dispatches it. Dispatch is
// fire-and-forget: the transition to awaiting-factor completes whether
// or not delivery succeeds.
func (c *Controller) mintChallenge(ctx context.Context, principal string, purpose Purpose, reason string) (string, error) {
	code, err := newChallengeCode()
	if err != nil {
		return "", err
	}

	now := c.now()
	ch := &Challenge{
		Ref:       uuid.New().String(),
		Principal: principal,
		Code:      code,
		Purpose:   purpose,
		Reason:    reason,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.cfg.ChallengeTTL),
	}
	if err := c.store.PutChallenge(ctx, ch); err != nil {
		return "", err
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.sender.SendCode(sendCtx, principal, code, string(purpose)); err != nil {
			c.log.Errorw("challenge code delivery failed",
				"principal", principal, "purpose", purpose, "error", err)
		}
	}()

	c.log.Infow("challenge minted", "principal", principal,
		"purpose", purpose, "ref", ch.Ref, "expires_at", ch.ExpiresAt)
	return ch.Ref, nil
}

// commitEngage applies the lock. State write, audit event and challenge
// consumption land in one transaction: either the whole transition
// commits or none of it does. Callers must hold c.mu.
func (c *Controller) commitEngage(ctx context.Context, principal, reason string, reqCtx audit.Context) (*Decision, error) {
	now := c.now()
	expires := now.Add(c.cfg.LockDuration)
	next := &State{
		Locked:    true,
		LockedBy:  principal,
		LockedAt:  &now,
		Reason:    reason,
		ExpiresAt: &expires,
	}

	err := c.inTx(ctx, func(tx db.Querier) error {
		if err := c.store.SaveState(ctx, tx, next); err != nil {
			return err
		}
		if err := c.store.DeleteChallenge(ctx, tx, principal); err != nil {
			return err
		}
		_, err := c.audit.Append(ctx, tx, audit.Event{
			Type:      audit.EventLock,
			Principal: principal,
			Context:   reqCtx,
			Severity:  audit.SeverityHigh,
			Timestamp: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Infow("access lock engaged", "principal", principal,
		"reason", reason, "expires_at", expires)
	return &Decision{Outcome: OutcomeCommitted, State: next}, nil
}

// commitRelease clears the lock. Same atomicity as commitEngage.
func (c *Controller) commitRelease(ctx context.Context, principal string, reqCtx audit.Context) (*Decision, error) {
	next := &State{}

	err := c.inTx(ctx, func(tx db.Querier) error {
		if err := c.store.SaveState(ctx, tx, next); err != nil {
			return err
		}
		if err := c.store.DeleteChallenge(ctx, tx, principal); err != nil {
			return err
		}
		_, err := c.audit.Append(ctx, tx, audit.Event{
			Type:      audit.EventUnlock,
			Principal: principal,
			Context:   reqCtx,
			Severity:  audit.SeverityMedium,
			Timestamp: c.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Infow("access lock released", "principal", principal)
	return &Decision{Outcome: OutcomeCommitted, State: next}, nil
}

// inTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (c *Controller) inTx(ctx context.Context, fn func(tx db.Querier) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
