package memory

import (
	"context"
	"sync"

	"github.com/gatepass-hq/server/internal/gatepass/store"
)

type EstateStore struct {
	mu        sync.RWMutex
	estates   map[string]store.Estate
	residents map[string]store.Resident
}

func NewEstateStore() *EstateStore {
	return &EstateStore{
		estates:   make(map[string]store.Estate),
		residents: make(map[string]store.Resident),
	}
}

// PutEstate seeds an estate row.  Test/dev helper.
func (s *EstateStore) PutEstate(e store.Estate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estates[e.ID] = e
}

// PutResident seeds a resident row.  Test/dev helper.
func (s *EstateStore) PutResident(r store.Resident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.residents[r.ID] = r
}

func (s *EstateStore) GetEstate(_ context.Context, estateID string) (store.Estate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.estates[estateID]
	if !ok {
		return store.Estate{}, store.ErrNotFound
	}
	return e, nil
}

func (s *EstateStore) GetResident(_ context.Context, residentID string) (store.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residents[residentID]
	if !ok {
		return store.Resident{}, store.ErrNotFound
	}
	return r, nil
}
