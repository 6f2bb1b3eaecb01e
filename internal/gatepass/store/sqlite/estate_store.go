package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gatepass-hq/server/internal/gatepass/store"
)

// EstateStore reads estate policy and resident profiles.  Read-only: the
// estate administration system owns these rows.
type EstateStore struct {
	db *sql.DB
}

func NewEstateStore(db *sql.DB) *EstateStore {
	return &EstateStore{db: db}
}

func (s *EstateStore) GetEstate(ctx context.Context, estateID string) (store.Estate, error) {
	var (
		e     store.Estate
		quota sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT estate_id, name, min_duration_minutes, max_duration_minutes, daily_quota_per_resident
FROM estates
WHERE estate_id = ?;
`, estateID).Scan(
		&e.ID, &e.Name,
		&e.Policy.MinDurationMinutes, &e.Policy.MaxDurationMinutes, &quota,
	)
	if err == sql.ErrNoRows {
		return store.Estate{}, store.ErrNotFound
	}
	if err != nil {
		return store.Estate{}, fmt.Errorf("GetEstate: %w", err)
	}
	if quota.Valid {
		q := int(quota.Int64)
		e.Policy.DailyQuotaPerResident = &q
	}
	return e, nil
}

func (s *EstateStore) GetResident(ctx context.Context, residentID string) (store.Resident, error) {
	var (
		r    store.Resident
		unit sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT resident_id, estate_id, display_name, unit
FROM residents
WHERE resident_id = ?;
`, residentID).Scan(&r.ID, &r.EstateID, &r.DisplayName, &unit)
	if err == sql.ErrNoRows {
		return store.Resident{}, store.ErrNotFound
	}
	if err != nil {
		return store.Resident{}, fmt.Errorf("GetResident: %w", err)
	}
	r.Unit = unit.String
	return r, nil
}
