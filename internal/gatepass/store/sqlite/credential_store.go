package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/gatepass-hq/server/internal/db"
	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

type CredentialStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCredentialStore(db *sql.DB, writer *dbpkg.Worker) *CredentialStore {
	return &CredentialStore{db: db, writer: writer}
}

const credentialColumns = `
credential_id, resident_id, estate_id, code, kind, visitor_label, state,
issued_at_ms, expires_at_ms, redeemed_at_ms, revoked_at_ms`

func (s *CredentialStore) Create(ctx context.Context, c types.Credential) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO credentials(
  credential_id, resident_id, estate_id, code, kind, visitor_label, state,
  issued_at_ms, expires_at_ms, redeemed_at_ms, revoked_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			c.ID, c.ResidentID, c.EstateID, c.Code, string(c.Kind),
			c.VisitorLabel, string(c.State),
			msOf(c.IssuedAt), msOfPtr(c.ExpiresAt),
			msOfPtr(c.RedeemedAt), msOfPtr(c.RevokedAt),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return store.ErrDuplicateCode
			}
			return fmt.Errorf("Create insert: %w", err)
		}
		return nil
	})
}

func (s *CredentialStore) GetByID(ctx context.Context, credentialID string) (types.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE credential_id = ?;
`, credentialID)

	c, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return types.Credential{}, store.ErrNotFound
	}
	if err != nil {
		return types.Credential{}, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// FindByCode returns the newest credential for (estate, code) in any state,
// so the gate can report the precise terminal reason for stale codes.
func (s *CredentialStore) FindByCode(ctx context.Context, estateID, code string) (types.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE estate_id = ? AND code = ?
ORDER BY issued_at_ms DESC
LIMIT 1;
`, estateID, code)

	c, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return types.Credential{}, store.ErrNotFound
	}
	if err != nil {
		return types.Credential{}, fmt.Errorf("FindByCode: %w", err)
	}
	return c, nil
}

// MarkUsed performs the active→used transition as a single conditional
// statement.  Zero rows affected means another redemption (or a revoke, or
// the sweeper) won the race; the caller re-reads for the current state.
func (s *CredentialStore) MarkUsed(ctx context.Context, credentialID string, at time.Time) (bool, error) {
	var affected int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE credentials
SET state = 'used', redeemed_at_ms = ?
WHERE credential_id = ? AND state = 'active';
`, msOf(at), credentialID)
		if err != nil {
			return fmt.Errorf("MarkUsed update: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected == 1, err
}

// MarkRevoked transitions active→revoked, but only for the owning resident.
func (s *CredentialStore) MarkRevoked(ctx context.Context, credentialID, residentID string, at time.Time) (bool, error) {
	var affected int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE credentials
SET state = 'revoked', revoked_at_ms = ?
WHERE credential_id = ? AND resident_id = ? AND state = 'active';
`, msOf(at), credentialID, residentID)
		if err != nil {
			return fmt.Errorf("MarkRevoked update: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected == 1, err
}

// MarkExpired persists lazy expiry for one row.  The expires_at guard keeps
// a racing legitimate redemption from being clobbered: the row only moves to
// expired if it is still active and genuinely past its window.
func (s *CredentialStore) MarkExpired(ctx context.Context, credentialID string, now time.Time) (bool, error) {
	var affected int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE credentials
SET state = 'expired'
WHERE credential_id = ?
  AND state = 'active'
  AND kind = 'single_use'
  AND expires_at_ms IS NOT NULL
  AND expires_at_ms <= ?;
`, credentialID, msOf(now))
		if err != nil {
			return fmt.Errorf("MarkExpired update: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected == 1, err
}

func (s *CredentialStore) ListActive(ctx context.Context, residentID, estateID string, now time.Time) ([]types.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE resident_id = ?
  AND estate_id = ?
  AND state = 'active'
  AND (expires_at_ms IS NULL OR expires_at_ms > ?)
ORDER BY issued_at_ms DESC;
`, residentID, estateID, msOf(now))
	if err != nil {
		return nil, fmt.Errorf("ListActive query: %w", err)
	}
	defer rows.Close()

	var out []types.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive rows: %w", err)
	}
	return out, nil
}

func (s *CredentialStore) CountIssuedBetween(ctx context.Context, residentID, estateID string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM credentials
WHERE resident_id = ? AND estate_id = ?
  AND issued_at_ms >= ? AND issued_at_ms < ?;
`, residentID, estateID, msOf(from), msOf(to)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountIssuedBetween: %w", err)
	}
	return n, nil
}

// SweepExpired is the bulk form of MarkExpired, used by the background
// sweeper.  Same active-only conditional write, so it can never race a
// redemption into an incorrect state.
func (s *CredentialStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE credentials
SET state = 'expired'
WHERE state = 'active'
  AND kind = 'single_use'
  AND expires_at_ms IS NOT NULL
  AND expires_at_ms <= ?;
`, msOf(now))
		if err != nil {
			return fmt.Errorf("SweepExpired update: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(r rowScanner) (types.Credential, error) {
	var (
		c          types.Credential
		kind       string
		state      string
		issuedMs   int64
		expiresMs  sql.NullInt64
		redeemedMs sql.NullInt64
		revokedMs  sql.NullInt64
	)
	err := r.Scan(
		&c.ID, &c.ResidentID, &c.EstateID, &c.Code, &kind, &c.VisitorLabel,
		&state, &issuedMs, &expiresMs, &redeemedMs, &revokedMs,
	)
	if err != nil {
		return types.Credential{}, err
	}
	c.Kind = types.Kind(kind)
	c.State = types.State(state)
	c.IssuedAt = timeOfMs(issuedMs)
	c.ExpiresAt = timeOfNullMs(expiresMs)
	c.RedeemedAt = timeOfNullMs(redeemedMs)
	c.RevokedAt = timeOfNullMs(revokedMs)
	return c, nil
}

func msOf(t time.Time) int64 { return t.UTC().UnixMilli() }

func msOfPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func timeOfMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func timeOfNullMs(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t
}
