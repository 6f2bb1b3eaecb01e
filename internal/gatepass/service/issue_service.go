package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// mintRetries bounds how many code collisions issuance tolerates before
// giving up with ErrGenerationFailed.
const mintRetries = 5

// Minter produces candidate gate codes.  Injected so tests can force
// collisions; production wires codes.Mint.
type Minter func() (string, error)

// IssueService commits issuance: policy evaluation, code minting with
// collision retry, and creation of the credential in its active state.
type IssueService struct {
	policy      *PolicyEngine
	credentials store.CredentialStore
	mint        Minter
}

func NewIssueService(policy *PolicyEngine, credentials store.CredentialStore, mint Minter) *IssueService {
	return &IssueService{policy: policy, credentials: credentials, mint: mint}
}

// Issue creates a new active credential for the resident, or fails with
// *QuotaExceededError / ErrGenerationFailed.
func (s *IssueService) Issue(ctx context.Context, residentID, estateID string, req types.IssueRequest) (types.Credential, error) {
	residentID = strings.TrimSpace(residentID)
	estateID = strings.TrimSpace(estateID)
	if residentID == "" {
		return types.Credential{}, ErrInvalidResidentID
	}
	if estateID == "" {
		return types.Credential{}, ErrInvalidEstateID
	}

	now := time.Now().UTC()

	c := types.Credential{
		ID:           uuid.NewString(),
		ResidentID:   residentID,
		EstateID:     estateID,
		Kind:         types.KindSingleUse,
		VisitorLabel: strings.TrimSpace(req.VisitorLabel),
		State:        types.StateActive,
		IssuedAt:     now,
	}

	if req.Permanent {
		c.Kind = types.KindLongLived
		if err := s.policy.CheckQuota(ctx, residentID, estateID); err != nil {
			return types.Credential{}, err
		}
	} else {
		granted, err := s.policy.EvaluateIssuance(ctx, residentID, estateID, req.RequestedMinutes)
		if err != nil {
			return types.Credential{}, err
		}
		expires := now.Add(time.Duration(granted) * time.Minute)
		c.ExpiresAt = &expires
	}

	for attempt := 0; attempt < mintRetries; attempt++ {
		code, err := s.mint()
		if err != nil {
			return types.Credential{}, fmt.Errorf("mint code: %w", err)
		}
		c.Code = code

		err = s.credentials.Create(ctx, c)
		if err == nil {
			return c, nil
		}
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		return types.Credential{}, err
	}

	return types.Credential{}, fmt.Errorf("%w after %d attempts", ErrGenerationFailed, mintRetries)
}
