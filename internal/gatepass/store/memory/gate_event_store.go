package memory

import (
	"context"
	"sync"

	"github.com/gatepass-hq/server/internal/gatepass/store"
)

// GateEventStore is an in-memory append-only log of gate decisions.
// It is intended for use in tests and dev environments.
type GateEventStore struct {
	mu     sync.Mutex
	events []store.GateEventRecord
}

func NewGateEventStore() *GateEventStore {
	return &GateEventStore{}
}

func (s *GateEventStore) RecordEvent(_ context.Context, rec store.GateEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *GateEventStore) Events() []store.GateEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.GateEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
