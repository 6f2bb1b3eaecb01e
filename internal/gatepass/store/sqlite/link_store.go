package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/gatepass-hq/server/internal/db"
	"github.com/gatepass-hq/server/internal/gatepass/store"
)

type LinkStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLinkStore(db *sql.DB, writer *dbpkg.Worker) *LinkStore {
	return &LinkStore{db: db, writer: writer}
}

func (s *LinkStore) ResidentForChannel(ctx context.Context, channelID string) (store.ChannelLink, bool, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return store.ChannelLink{}, false, nil
	}

	var (
		link     store.ChannelLink
		linkedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT channel_id, resident_id, linked_at_ms
FROM channel_links
WHERE channel_id = ?;
`, channelID).Scan(&link.ChannelID, &link.ResidentID, &linkedMs)
	if err == sql.ErrNoRows {
		return store.ChannelLink{}, false, nil
	}
	if err != nil {
		return store.ChannelLink{}, false, fmt.Errorf("ResidentForChannel: %w", err)
	}
	link.LinkedAt = timeOfMs(linkedMs)
	return link, true, nil
}

// ConsumeLinkCode redeems a pending one-time code and records the channel
// link in one transaction.  The used_at_ms guard in the UPDATE makes the
// redemption conditional: a second submission of the same code loses.
func (s *LinkStore) ConsumeLinkCode(ctx context.Context, code, channelID string, now time.Time) (store.ChannelLink, error) {
	code = strings.TrimSpace(code)
	channelID = strings.TrimSpace(channelID)
	if code == "" || channelID == "" {
		return store.ChannelLink{}, store.ErrLinkCodeInvalid
	}

	nowMs := msOf(now)
	var link store.ChannelLink

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE link_codes
SET used_at_ms = ?, used_by_channel = ?
WHERE code = ? AND used_at_ms IS NULL AND expires_at_ms > ?;
`, nowMs, channelID, code, nowMs)
		if err != nil {
			return fmt.Errorf("ConsumeLinkCode redeem: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrLinkCodeInvalid
		}

		var residentID string
		if err := tx.QueryRowContext(ctx, `
SELECT resident_id FROM link_codes WHERE code = ?;
`, code).Scan(&residentID); err != nil {
			return fmt.Errorf("ConsumeLinkCode resolve resident: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO channel_links(channel_id, resident_id, linked_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(channel_id) DO UPDATE SET
  resident_id  = excluded.resident_id,
  linked_at_ms = excluded.linked_at_ms;
`, channelID, residentID, nowMs); err != nil {
			return fmt.Errorf("ConsumeLinkCode link channel: %w", err)
		}

		link = store.ChannelLink{
			ChannelID:  channelID,
			ResidentID: residentID,
			LinkedAt:   timeOfMs(nowMs),
		}
		return nil
	})
	if err != nil {
		return store.ChannelLink{}, err
	}
	return link, nil
}
