package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// GateService is the gate-facing validation gateway.  It is estate-scoped,
// not resident-scoped: a guard submitting a code has no resident identity.
//
// Exactly-once redemption rests on the store's MarkUsed being a single
// conditional write.  Validate never reads then writes across two
// unconditional round trips.
type GateService struct {
	credentials store.CredentialStore
	estates     store.EstateStore
	events      store.GateEventStore
	logger      *log.Logger
}

func NewGateService(
	credentials store.CredentialStore,
	estates store.EstateStore,
	events store.GateEventStore,
	logger *log.Logger,
) *GateService {
	return &GateService{
		credentials: credentials,
		estates:     estates,
		events:      events,
		logger:      logger,
	}
}

// Validate redeems a code submitted at the gate.  Single-use codes move
// active→used atomically; long-lived codes validate repeatably without a
// transition.  Refusal reasons are reported verbatim — the distinction
// between already_used, expired and revoked matters for auditing.
func (s *GateService) Validate(ctx context.Context, estateID, code string) (types.ValidateResponse, error) {
	now := time.Now().UTC()

	estateID = strings.TrimSpace(estateID)
	code = strings.TrimSpace(code)
	if estateID == "" {
		return types.ValidateResponse{}, ErrInvalidEstateID
	}
	if code == "" {
		return types.ValidateResponse{}, ErrInvalidCode
	}

	c, err := s.credentials.FindByCode(ctx, estateID, code)
	if errors.Is(err, store.ErrNotFound) {
		return s.refuse(ctx, estateID, code, nil, types.ReasonNotFound, now), nil
	}
	if err != nil {
		return types.ValidateResponse{}, err
	}

	switch c.EffectiveState(now) {
	case types.StateUsed:
		return s.refuse(ctx, estateID, code, &c.ID, types.ReasonAlreadyUsed, now), nil
	case types.StateRevoked:
		return s.refuse(ctx, estateID, code, &c.ID, types.ReasonRevoked, now), nil
	case types.StateExpired:
		if c.State == types.StateActive {
			// Persist the lazily computed expiry.  Best-effort: the
			// conditional write cannot clobber a racing redemption,
			// and reads stay correct if it does nothing.
			if _, err := s.credentials.MarkExpired(ctx, c.ID, now); err != nil {
				s.logger.Printf("persist expiry for %s: %v", c.ID, err)
			}
		}
		return s.refuse(ctx, estateID, code, &c.ID, types.ReasonExpired, now), nil
	}

	if c.Kind == types.KindLongLived {
		// Repeatable by design: no transition.
		return s.grant(ctx, c, now), nil
	}

	ok, err := s.credentials.MarkUsed(ctx, c.ID, now)
	if err != nil {
		return types.ValidateResponse{}, err
	}
	if !ok {
		// Lost the race: another gate terminal (or a revoke, or the
		// sweeper) transitioned the row first.  Report its current
		// terminal state, never a second success.
		return s.refuse(ctx, estateID, code, &c.ID, s.currentReason(ctx, c.ID, now), now), nil
	}

	redeemed := now
	c.State = types.StateUsed
	c.RedeemedAt = &redeemed
	return s.grant(ctx, c, now), nil
}

func (s *GateService) grant(ctx context.Context, c types.Credential, now time.Time) types.ValidateResponse {
	resp := types.ValidateResponse{
		Valid:        true,
		Kind:         c.Kind,
		VisitorLabel: c.VisitorLabel,
		ExpiresAt:    types.FormatTimePtr(c.ExpiresAt),
		ServerTime:   types.FormatTime(now),
	}

	if r, err := s.estates.GetResident(ctx, c.ResidentID); err == nil {
		resp.ResidentName = r.DisplayName
	} else {
		s.logger.Printf("resolve resident %s: %v", c.ResidentID, err)
	}

	s.recordEvent(ctx, c.EstateID, c.Code, &c.ID, true, "granted", now)
	return resp
}

func (s *GateService) refuse(ctx context.Context, estateID, code string, credentialID *string, reason string, now time.Time) types.ValidateResponse {
	s.recordEvent(ctx, estateID, code, credentialID, false, reason, now)
	return types.ValidateResponse{
		Valid:      false,
		Reason:     reason,
		ServerTime: types.FormatTime(now),
	}
}

// currentReason re-reads a credential after a lost conditional update and
// maps its state to a refusal reason.
func (s *GateService) currentReason(ctx context.Context, credentialID string, now time.Time) string {
	c, err := s.credentials.GetByID(ctx, credentialID)
	if err != nil {
		// The credential exists — the lost conditional update just matched
		// it — so a failed re-read must not be audited as never issued.
		// A racing redemption is by far the most common winner.
		s.logger.Printf("re-read %s after lost redemption race: %v", credentialID, err)
		return types.ReasonAlreadyUsed
	}
	switch c.EffectiveState(now) {
	case types.StateRevoked:
		return types.ReasonRevoked
	case types.StateExpired:
		return types.ReasonExpired
	default:
		return types.ReasonAlreadyUsed
	}
}

// recordEvent appends the decision to the audit log.  Errors are logged and
// swallowed: a failed audit write must not block the gate decision.
func (s *GateService) recordEvent(ctx context.Context, estateID, code string, credentialID *string, granted bool, reason string, decidedAt time.Time) {
	err := s.events.RecordEvent(ctx, store.GateEventRecord{
		EstateID:     estateID,
		Code:         code,
		CredentialID: credentialID,
		Granted:      granted,
		Reason:       reason,
		DecidedAt:    decidedAt,
	})
	if err != nil {
		s.logger.Printf("record gate event: %v", err)
	}
}
