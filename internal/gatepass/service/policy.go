package service

import (
	"context"
	"strings"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
)

// PolicyEngine evaluates estate issuance policy: it clamps requested
// durations into the estate's bounds and enforces the per-resident daily
// quota.  It is pure read + decision; committing the issuance belongs to
// IssueService.
//
// The quota check is best-effort under concurrency: two requests near the
// boundary can both read used < limit and both proceed, overshooting by a
// small margin.  The counter is recomputed from storage on every call and
// never cached in process.
type PolicyEngine struct {
	credentials store.CredentialStore
	estates     store.EstateStore
}

func NewPolicyEngine(credentials store.CredentialStore, estates store.EstateStore) *PolicyEngine {
	return &PolicyEngine{credentials: credentials, estates: estates}
}

// EvaluateIssuance returns the granted duration in minutes for a request,
// clamped into [min, max], after the daily quota check passes.  Returns
// *QuotaExceededError when the resident is at their limit.
func (p *PolicyEngine) EvaluateIssuance(ctx context.Context, residentID, estateID string, requestedMinutes int) (int, error) {
	residentID = strings.TrimSpace(residentID)
	estateID = strings.TrimSpace(estateID)
	if residentID == "" {
		return 0, ErrInvalidResidentID
	}
	if estateID == "" {
		return 0, ErrInvalidEstateID
	}

	estate, err := p.estates.GetEstate(ctx, estateID)
	if err != nil {
		return 0, err
	}

	if err := p.checkQuota(ctx, residentID, estate); err != nil {
		return 0, err
	}

	granted := requestedMinutes
	if granted < estate.Policy.MinDurationMinutes {
		granted = estate.Policy.MinDurationMinutes
	}
	if granted > estate.Policy.MaxDurationMinutes {
		granted = estate.Policy.MaxDurationMinutes
	}
	return granted, nil
}

// CheckQuota runs only the daily-quota half of the evaluation.  Used for
// long-lived codes, which have no duration to clamp but still count against
// the same daily limit.
func (p *PolicyEngine) CheckQuota(ctx context.Context, residentID, estateID string) error {
	residentID = strings.TrimSpace(residentID)
	estateID = strings.TrimSpace(estateID)
	if residentID == "" {
		return ErrInvalidResidentID
	}
	if estateID == "" {
		return ErrInvalidEstateID
	}

	estate, err := p.estates.GetEstate(ctx, estateID)
	if err != nil {
		return err
	}
	return p.checkQuota(ctx, residentID, estate)
}

// UsedToday returns how many codes the resident issued during the current
// UTC calendar day, in any state.
func (p *PolicyEngine) UsedToday(ctx context.Context, residentID, estateID string) (int, error) {
	from, to := dayBounds(time.Now().UTC())
	return p.credentials.CountIssuedBetween(ctx, residentID, estateID, from, to)
}

func (p *PolicyEngine) checkQuota(ctx context.Context, residentID string, estate store.Estate) error {
	limit := estate.Policy.DailyQuotaPerResident
	if limit == nil {
		return nil
	}

	from, to := dayBounds(time.Now().UTC())
	used, err := p.credentials.CountIssuedBetween(ctx, residentID, estate.ID, from, to)
	if err != nil {
		return err
	}
	if used >= *limit {
		return &QuotaExceededError{Limit: *limit}
	}
	return nil
}

// dayBounds returns the half-open [start, end) of the UTC calendar day
// containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
