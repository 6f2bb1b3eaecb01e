package types

import "time"

// Kind distinguishes one-shot visitor codes from permanent ones.
type Kind string

const (
	KindSingleUse Kind = "single_use"
	KindLongLived Kind = "long_lived"
)

// State is the credential lifecycle state.  Transitions are one-way:
// active is the only non-terminal state and nothing ever returns to it.
type State string

const (
	StateActive  State = "active"
	StateUsed    State = "used"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

// Terminal reports whether s permits no further transitions.
func (s State) Terminal() bool { return s != StateActive }

// Credential is a numeric gate code issued by a resident for a visitor.
type Credential struct {
	ID           string
	ResidentID   string
	EstateID     string
	Code         string
	Kind         Kind
	VisitorLabel string
	State        State
	IssuedAt     time.Time
	ExpiresAt    *time.Time // nil for long-lived codes
	RedeemedAt   *time.Time // set exactly once, on active→used
	RevokedAt    *time.Time // set exactly once, on active→revoked
}

// ExpiredAt reports whether the credential should be treated as expired at
// the given instant.  Expiry is a computed predicate: a row may still read
// "active" in storage and be expired here.  Long-lived codes never expire.
func (c Credential) ExpiredAt(now time.Time) bool {
	if c.Kind == KindLongLived || c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// EffectiveState folds lazy expiry into the stored state.
func (c Credential) EffectiveState(now time.Time) State {
	if c.State == StateActive && c.ExpiredAt(now) {
		return StateExpired
	}
	return c.State
}
