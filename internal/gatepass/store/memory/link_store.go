package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
)

type pendingLinkCode struct {
	residentID string
	expiresAt  time.Time
	used       bool
}

type LinkStore struct {
	mu      sync.Mutex
	links   map[string]store.ChannelLink
	pending map[string]*pendingLinkCode
}

func NewLinkStore() *LinkStore {
	return &LinkStore{
		links:   make(map[string]store.ChannelLink),
		pending: make(map[string]*pendingLinkCode),
	}
}

// AddPendingCode seeds a one-time link code.  Test/dev helper standing in
// for the account system that mints these.
func (s *LinkStore) AddPendingCode(code, residentID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[code] = &pendingLinkCode{residentID: residentID, expiresAt: expiresAt}
}

func (s *LinkStore) ResidentForChannel(_ context.Context, channelID string) (store.ChannelLink, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[channelID]
	return link, ok, nil
}

func (s *LinkStore) ConsumeLinkCode(_ context.Context, code, channelID string, now time.Time) (store.ChannelLink, error) {
	code = strings.TrimSpace(code)
	channelID = strings.TrimSpace(channelID)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[code]
	if !ok || p.used || !now.Before(p.expiresAt) {
		return store.ChannelLink{}, store.ErrLinkCodeInvalid
	}
	p.used = true

	link := store.ChannelLink{
		ChannelID:  channelID,
		ResidentID: p.residentID,
		LinkedAt:   now.UTC(),
	}
	s.links[channelID] = link
	return link, nil
}
