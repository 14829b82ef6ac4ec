package lock

import "time"

// SystemPrincipal is the identity attributed to transitions initiated by
// lockguard itself, such as the expiry auto-release.
const SystemPrincipal = "system"

// State is the platform-wide access lock record. When Locked is false,
// LockedBy, LockedAt, Reason and ExpiresAt are all empty.
type State struct {
	Locked    bool       `json:"locked"`
	LockedBy  string     `json:"locked_by,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Purpose identifies which transition a challenge authorizes.
type Purpose string

const (
	PurposeEngage  Purpose = "engage"
	PurposeRelease Purpose = "release"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeEngage || p == PurposeRelease
}

// Challenge is a one-time code minted for a principal. At most one
// challenge is outstanding per principal; it is consumed on first
// successful verification or on expiry, never reused.
type Challenge struct {
	Ref       string    `json:"ref"`
	Principal string    `json:"principal"`
	Code      string    `json:"-"`
	Purpose   Purpose   `json:"purpose"`
	Reason    string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"-"`
}

// Outcome is the terminal result of a controller operation. Every
// outcome except internal store failure is an expected, typed result.
type Outcome string

const (
	OutcomeCommitted         Outcome = "committed"
	OutcomeFactorRequired    Outcome = "factor_required"
	OutcomeUnauthorized      Outcome = "unauthorized"
	OutcomeAlreadyLocked     Outcome = "already_locked"
	OutcomeAlreadyUnlocked   Outcome = "already_unlocked"
	OutcomeInvalidCode       Outcome = "invalid_code"
	OutcomeExpired           Outcome = "expired"
	OutcomeNoActiveChallenge Outcome = "no_active_challenge"
)

// Decision is what every controller operation returns to its caller.
type Decision struct {
	Outcome      Outcome `json:"outcome"`
	ChallengeRef string  `json:"challenge_ref,omitempty"`
	State        *State  `json:"state,omitempty"`
	Message      string  `json:"message,omitempty"`
}
