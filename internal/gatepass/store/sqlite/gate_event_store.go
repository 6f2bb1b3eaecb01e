package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/gatepass-hq/server/internal/db"
	"github.com/gatepass-hq/server/internal/gatepass/store"
)

type GateEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewGateEventStore(db *sql.DB, writer *dbpkg.Worker) *GateEventStore {
	return &GateEventStore{db: db, writer: writer}
}

func (s *GateEventStore) RecordEvent(ctx context.Context, rec store.GateEventRecord) error {
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}

	var granted int
	if rec.Granted {
		granted = 1
	}

	var credentialID any
	if rec.CredentialID != nil {
		credentialID = *rec.CredentialID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO gate_events(
  estate_id, code, credential_id, granted, reason, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?);
`,
			rec.EstateID, rec.Code, credentialID, granted, rec.Reason,
			msOf(rec.DecidedAt),
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}
