package store

import (
	"context"
	"time"
)

// GateEventRecord captures a single gate decision for the audit log.
// CredentialID is nil when the submitted code matched nothing.
type GateEventRecord struct {
	EstateID     string
	Code         string
	CredentialID *string
	Granted      bool
	Reason       string
	DecidedAt    time.Time
}

// GateEventStore persists gate decisions as an append-only audit log.
type GateEventStore interface {
	RecordEvent(ctx context.Context, rec GateEventRecord) error
}
