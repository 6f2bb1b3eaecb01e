package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a starter estate, resident and pending chat link code so a
// fresh dev database is immediately usable.  Idempotent.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC()
	nowMs := now.UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO estates(
  estate_id, name, min_duration_minutes, max_duration_minutes,
  daily_quota_per_resident, created_at_ms, updated_at_ms
) VALUES ('estate_dev', 'Willow Creek Estate', 30, 1440, 5, ?, ?);`,
		nowMs, nowMs); err != nil {
		return fmt.Errorf("seed estate: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO residents(
  resident_id, estate_id, display_name, unit, created_at_ms, updated_at_ms
) VALUES ('resident_dev', 'estate_dev', 'Dana Whitfield', '12B', ?, ?);`,
		nowMs, nowMs); err != nil {
		return fmt.Errorf("seed resident: %w", err)
	}

	// A pending link code so the chat channel can be linked right away.
	expiresMs := now.Add(24 * time.Hour).UnixMilli()
	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO link_codes(
  link_code_id, code, resident_id, expires_at_ms, created_at_ms
) VALUES ('link_dev', '424242', 'resident_dev', ?, ?);`,
		expiresMs, nowMs); err != nil {
		return fmt.Errorf("seed link code: %w", err)
	}

	return nil
}
