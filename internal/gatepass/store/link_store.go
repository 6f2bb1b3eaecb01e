package store

import (
	"context"
	"errors"
	"time"
)

// ErrLinkCodeInvalid is returned when a submitted link code does not match
// any pending one-time code (unknown, expired, or already consumed).
var ErrLinkCodeInvalid = errors.New("link code invalid or expired")

// ChannelLink binds a messaging-channel identity to a resident.
type ChannelLink struct {
	ChannelID  string
	ResidentID string
	LinkedAt   time.Time
}

// LinkStore resolves channel identities and consumes one-time link codes.
// Minting link codes belongs to the account system; this service only
// redeems them.
type LinkStore interface {
	// ResidentForChannel returns the link for the channel identity.
	// ok=false (with nil error) when the channel is not linked.
	ResidentForChannel(ctx context.Context, channelID string) (ChannelLink, bool, error)

	// ConsumeLinkCode atomically redeems a pending one-time code and
	// records the channel link.  ErrLinkCodeInvalid when no pending code
	// matches; the channel stays unlinked in that case.
	ConsumeLinkCode(ctx context.Context, code, channelID string, now time.Time) (ChannelLink, error)
}
