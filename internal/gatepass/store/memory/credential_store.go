package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// CredentialStore is a mutex-guarded in-memory credential store for tests
// and dev environments.  The mutex stands in for the single conditional
// statement of the sqlite store: each Mark* checks and writes under one
// critical section.
type CredentialStore struct {
	mu   sync.Mutex
	byID map[string]*types.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byID: make(map[string]*types.Credential)}
}

func (s *CredentialStore) Create(_ context.Context, c types.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.byID {
		if other.EstateID == c.EstateID && other.Code == c.Code && other.State == types.StateActive {
			return store.ErrDuplicateCode
		}
	}
	cp := c
	s.byID[c.ID] = &cp
	return nil
}

func (s *CredentialStore) GetByID(_ context.Context, credentialID string) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[credentialID]
	if !ok {
		return types.Credential{}, store.ErrNotFound
	}
	return *c, nil
}

func (s *CredentialStore) FindByCode(_ context.Context, estateID, code string) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *types.Credential
	for _, c := range s.byID {
		if c.EstateID != estateID || c.Code != code {
			continue
		}
		if newest == nil || c.IssuedAt.After(newest.IssuedAt) {
			newest = c
		}
	}
	if newest == nil {
		return types.Credential{}, store.ErrNotFound
	}
	return *newest, nil
}

func (s *CredentialStore) MarkUsed(_ context.Context, credentialID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[credentialID]
	if !ok || c.State != types.StateActive {
		return false, nil
	}
	t := at.UTC()
	c.State = types.StateUsed
	c.RedeemedAt = &t
	return true, nil
}

func (s *CredentialStore) MarkRevoked(_ context.Context, credentialID, residentID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[credentialID]
	if !ok || c.ResidentID != residentID || c.State != types.StateActive {
		return false, nil
	}
	t := at.UTC()
	c.State = types.StateRevoked
	c.RevokedAt = &t
	return true, nil
}

func (s *CredentialStore) MarkExpired(_ context.Context, credentialID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[credentialID]
	if !ok || c.State != types.StateActive || !c.ExpiredAt(now) {
		return false, nil
	}
	c.State = types.StateExpired
	return true, nil
}

func (s *CredentialStore) ListActive(_ context.Context, residentID, estateID string, now time.Time) ([]types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Credential
	for _, c := range s.byID {
		if c.ResidentID != residentID || c.EstateID != estateID {
			continue
		}
		if c.State != types.StateActive || c.ExpiredAt(now) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (s *CredentialStore) CountIssuedBetween(_ context.Context, residentID, estateID string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.byID {
		if c.ResidentID != residentID || c.EstateID != estateID {
			continue
		}
		if !c.IssuedAt.Before(from) && c.IssuedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *CredentialStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.byID {
		if c.State == types.StateActive && c.Kind == types.KindSingleUse && c.ExpiredAt(now) {
			c.State = types.StateExpired
			n++
		}
	}
	return n, nil
}
