package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
	sqlitestore "github.com/gatepass-hq/server/internal/gatepass/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// RecordEvent — append-only audit rows
// ═══════════════════════════════════════════════════════════════════════════

func TestGateEventStore_RecordEvent_ColumnsCorrect(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewGateEventStore(conn, w)
	ctx := context.Background()

	decidedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	credentialID := "cred_1"

	err := es.RecordEvent(ctx, store.GateEventRecord{
		EstateID:     "estate_1",
		Code:         "123456",
		CredentialID: &credentialID,
		Granted:      true,
		Reason:       "granted",
		DecidedAt:    decidedAt,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	var (
		granted   int
		reason    string
		credID    sql.NullString
		decidedMs int64
	)
	err = conn.QueryRowContext(ctx, `
SELECT granted, reason, credential_id, decided_at_ms
FROM gate_events WHERE estate_id = ?`, "estate_1",
	).Scan(&granted, &reason, &credID, &decidedMs)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if granted != 1 {
		t.Errorf("expected granted=1, got %d", granted)
	}
	if reason != "granted" {
		t.Errorf("expected reason=granted, got %q", reason)
	}
	if !credID.Valid || credID.String != "cred_1" {
		t.Errorf("expected credential_id=cred_1, got %v", credID)
	}
	if decidedMs != decidedAt.UnixMilli() {
		t.Errorf("expected decided_at_ms=%d, got %d", decidedAt.UnixMilli(), decidedMs)
	}
}

func TestGateEventStore_RecordEvent_NullCredentialID(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewGateEventStore(conn, w)
	ctx := context.Background()

	// A not_found refusal carries no credential.
	err := es.RecordEvent(ctx, store.GateEventRecord{
		EstateID:  "estate_1",
		Code:      "999999",
		Granted:   false,
		Reason:    "not_found",
		DecidedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	var credID sql.NullString
	err = conn.QueryRowContext(ctx,
		`SELECT credential_id FROM gate_events WHERE estate_id = ?`, "estate_1",
	).Scan(&credID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if credID.Valid {
		t.Errorf("expected NULL credential_id, got %q", credID.String)
	}
}

func TestGateEventStore_RecordEvent_AppendOnly(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewGateEventStore(conn, w)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := es.RecordEvent(ctx, store.GateEventRecord{
			EstateID:  "estate_1",
			Code:      "123456",
			Granted:   false,
			Reason:    "already_used",
			DecidedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordEvent %d: %v", i, err)
		}
	}

	var count int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gate_events WHERE estate_id = ?`, "estate_1",
	).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rows (append-only), got %d", count)
	}
}

func TestGateEventStore_RecordEvent_DefaultsDecidedAt(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewGateEventStore(conn, w)
	ctx := context.Background()

	before := time.Now().UTC().UnixMilli()
	err := es.RecordEvent(ctx, store.GateEventRecord{
		EstateID: "estate_1",
		Code:     "123456",
		Granted:  true,
		Reason:   "granted",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	var decidedMs int64
	err = conn.QueryRowContext(ctx,
		`SELECT decided_at_ms FROM gate_events WHERE estate_id = ?`, "estate_1",
	).Scan(&decidedMs)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if decidedMs < before {
		t.Errorf("expected decided_at_ms defaulted to now, got %d < %d", decidedMs, before)
	}
}
