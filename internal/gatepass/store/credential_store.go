package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/types"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCode is returned by Create when the minted code collides
	// with another active code in the same estate.  The caller re-mints.
	ErrDuplicateCode = errors.New("code already active in estate")
)

// CredentialStore persists gate codes.  Every state transition is a single
// conditional write: "move to <terminal> only if still active".  The boolean
// result of the Mark* methods reports whether the transition happened; false
// means another writer got there first (or the row was already terminal),
// and the caller must re-read to learn the current state.
type CredentialStore interface {
	Create(ctx context.Context, c types.Credential) error
	GetByID(ctx context.Context, credentialID string) (types.Credential, error)

	// FindByCode returns the most recently issued credential for the code
	// within the estate, regardless of state, so callers can report the
	// precise terminal reason.  ErrNotFound if the code was never issued.
	FindByCode(ctx context.Context, estateID, code string) (types.Credential, error)

	MarkUsed(ctx context.Context, credentialID string, at time.Time) (bool, error)
	MarkRevoked(ctx context.Context, credentialID, residentID string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, credentialID string, at time.Time) (bool, error)

	// ListActive returns the resident's active, unexpired credentials,
	// newest first.  Lazily expired rows are filtered out, not rewritten.
	ListActive(ctx context.Context, residentID, estateID string, now time.Time) ([]types.Credential, error)

	// CountIssuedBetween counts credentials the resident issued in
	// [from, to), in any state.  Used for the daily quota.
	CountIssuedBetween(ctx context.Context, residentID, estateID string, from, to time.Time) (int, error)

	// SweepExpired persists the expired state for single-use rows whose
	// expiry has passed, using the same active-only conditional write as
	// redemption.  Returns the number of rows transitioned.  Purely an
	// optimization: reads stay correct if this is never called.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
