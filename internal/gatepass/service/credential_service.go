package service

import (
	"context"
	"strings"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// CredentialService covers the resident-facing management operations:
// listing active codes and revoking them.  Ownership is checked before any
// state change.
type CredentialService struct {
	credentials store.CredentialStore
}

func NewCredentialService(credentials store.CredentialStore) *CredentialService {
	return &CredentialService{credentials: credentials}
}

// ListActive returns the resident's active, unexpired codes, newest first.
func (s *CredentialService) ListActive(ctx context.Context, residentID, estateID string) ([]types.Credential, error) {
	residentID = strings.TrimSpace(residentID)
	estateID = strings.TrimSpace(estateID)
	if residentID == "" {
		return nil, ErrInvalidResidentID
	}
	if estateID == "" {
		return nil, ErrInvalidEstateID
	}
	return s.credentials.ListActive(ctx, residentID, estateID, time.Now().UTC())
}

// Revoke transitions a resident's active credential to revoked.
//
// store.ErrNotFound covers both "no such credential" and "not yours" — a
// resident learns nothing about other residents' codes.  An already
// terminal credential is not an error: Revoked=false with the current
// state, so the caller can say "already used or expired".
func (s *CredentialService) Revoke(ctx context.Context, residentID, credentialID string) (types.RevokeResponse, error) {
	residentID = strings.TrimSpace(residentID)
	credentialID = strings.TrimSpace(credentialID)
	if residentID == "" {
		return types.RevokeResponse{}, ErrInvalidResidentID
	}
	if credentialID == "" {
		return types.RevokeResponse{}, store.ErrNotFound
	}

	now := time.Now().UTC()

	c, err := s.credentials.GetByID(ctx, credentialID)
	if err != nil {
		return types.RevokeResponse{}, err
	}
	if c.ResidentID != residentID {
		return types.RevokeResponse{}, store.ErrNotFound
	}

	if st := c.EffectiveState(now); st.Terminal() {
		return types.RevokeResponse{Revoked: false, State: st}, nil
	}

	ok, err := s.credentials.MarkRevoked(ctx, credentialID, residentID, now)
	if err != nil {
		return types.RevokeResponse{}, err
	}
	if !ok {
		// Raced a redemption or the sweeper; report what won.
		c, err := s.credentials.GetByID(ctx, credentialID)
		if err != nil {
			return types.RevokeResponse{}, err
		}
		return types.RevokeResponse{Revoked: false, State: c.EffectiveState(now)}, nil
	}

	return types.RevokeResponse{Revoked: true, State: types.StateRevoked}, nil
}
