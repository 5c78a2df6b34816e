// Package celebrate tracks which earned badges have been announced so a
// notifier never double-announces. Celebrated state lives in sqlite, apart
// from the award ledger: an award can exist without a celebration, never the
// reverse.
package celebrate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/storage"
)

// Gate records which (user, badge) awards have already been celebrated.
type Gate struct {
	db *storage.DB
}

// NewGate creates a celebration gate backed by db.
func NewGate(db *storage.DB) *Gate {
	return &Gate{db: db}
}

// MarkCelebrated records that user's badge has been announced. Marking the
// same pair twice is a no-op.
func (g *Gate) MarkCelebrated(ctx context.Context, user core.Handle, badgeID string) error {
	_, err := g.db.Conn().ExecContext(ctx, `
		INSERT OR IGNORE INTO celebrations (user, badge_id, celebrated_at)
		VALUES (?, ?, ?)
	`, string(user), badgeID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark celebration: %w", err)
	}
	return nil
}

// IsCelebrated reports whether user's badge has been announced.
func (g *Gate) IsCelebrated(ctx context.Context, user core.Handle, badgeID string) (bool, error) {
	var one int
	err := g.db.Conn().QueryRowContext(ctx, `
		SELECT 1 FROM celebrations WHERE user = ? AND badge_id = ?
	`, string(user), badgeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountForUser returns how many of user's badges have been celebrated.
func (g *Gate) CountForUser(ctx context.Context, user core.Handle) (int, error) {
	var count int
	err := g.db.Conn().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM celebrations WHERE user = ?
	`, string(user)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// PendingCelebrations filters earned down to the awards that have not been
// celebrated yet, ordered by award time ascending so announcements arrive in
// the order badges were earned.
func (g *Gate) PendingCelebrations(ctx context.Context, user core.Handle, earned []core.AwardRecord) ([]core.AwardRecord, error) {
	celebrated, err := g.celebratedSet(ctx, user)
	if err != nil {
		return nil, err
	}

	pending := make([]core.AwardRecord, 0)
	for _, rec := range earned {
		if !celebrated[rec.BadgeID] {
			pending = append(pending, rec)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].AwardedAt.Before(pending[j].AwardedAt)
	})

	return pending, nil
}

func (g *Gate) celebratedSet(ctx context.Context, user core.Handle) (map[string]bool, error) {
	rows, err := g.db.Conn().QueryContext(ctx, `
		SELECT badge_id FROM celebrations WHERE user = ?
	`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	celebrated := make(map[string]bool)
	for rows.Next() {
		var badgeID string
		if err := rows.Scan(&badgeID); err != nil {
			return nil, err
		}
		celebrated[badgeID] = true
	}

	return celebrated, rows.Err()
}
