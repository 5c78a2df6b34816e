// Package engine drives the evaluation cycle: compare streak snapshots
// against the badge catalog, commit new awards to the ledger, surface
// pending celebrations and cohort health.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/streakforge/streakforge/internal/award"
	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/celebrate"
	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/evaluate"
	"github.com/streakforge/streakforge/internal/logging"
	"github.com/streakforge/streakforge/internal/notify"
	"github.com/streakforge/streakforge/internal/risk"
)

// Engine composes the catalog, ledger, celebration gate and notifier into
// one evaluation driver.
type Engine struct {
	cat      *catalog.Catalog
	ledger   *award.Ledger
	gate     *celebrate.Gate
	notifier *notify.Service
	log      *logging.Logger
}

// CheckResult summarizes one evaluation cycle.
type CheckResult struct {
	UsersChecked  int                `json:"users_checked"`
	BadgesAwarded int                `json:"badges_awarded"`
	NewAwards     []core.AwardRecord `json:"new_awards"`
	Health        float64            `json:"community_health"`
	RanAt         time.Time          `json:"ran_at"`
}

// LeaderboardEntry is one user's standing.
type LeaderboardEntry struct {
	User   core.Handle `json:"user"`
	Points int         `json:"points"`
	Badges int         `json:"badges"`
	Rank   string      `json:"rank"`
}

// New creates an engine. notifier may be nil when no live surface is wired.
func New(cat *catalog.Catalog, ledger *award.Ledger, gate *celebrate.Gate, notifier *notify.Service) *Engine {
	return &Engine{
		cat:      cat,
		ledger:   ledger,
		gate:     gate,
		notifier: notifier,
		log:      logging.WithField("component", "engine"),
	}
}

// RunCheck evaluates every snapshot against the catalog and commits any
// newly earned badges. Running the same snapshots twice awards nothing the
// second time.
func (e *Engine) RunCheck(ctx context.Context, snaps []core.StreakSnapshot) (CheckResult, error) {
	result := CheckResult{
		UsersChecked: len(snaps),
		RanAt:        time.Now().UTC(),
	}

	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		earned := e.ledger.CurrentAwards(snap.User)
		newBadges := evaluate.Evaluate(snap, e.cat, earned)
		if len(newBadges) == 0 {
			continue
		}

		reason := fmt.Sprintf("streak milestone: %d days", snap.BestDays)
		records, err := e.ledger.Commit(snap.User, newBadges, reason)
		if err != nil {
			return result, fmt.Errorf("commit for %s: %w", snap.User, err)
		}

		for _, rec := range records {
			e.log.Info("Awarded %s to %s (%d points)", rec.BadgeID, rec.User, rec.Points)
		}
		result.NewAwards = append(result.NewAwards, records...)
		result.BadgesAwarded += len(records)
	}

	result.Health = e.Health(snaps, result.RanAt)
	return result, nil
}

// Health computes cohort community health for the given snapshots.
func (e *Engine) Health(snaps []core.StreakSnapshot, now time.Time) float64 {
	return risk.CommunityHealth(snaps, func(user core.Handle) bool {
		return len(e.ledger.CurrentAwards(user)) > 0
	}, now)
}

// AtRisk returns assessments for every user at or above minBucket.
func (e *Engine) AtRisk(snaps []core.StreakSnapshot, now time.Time, minBucket risk.Bucket) []risk.Assessment {
	return risk.AtRisk(snaps, now, minBucket)
}

// Leaderboard ranks every user in the ledger by total points, then by badge
// count, descending; ties break on handle for stable output.
func (e *Engine) Leaderboard() []LeaderboardEntry {
	users := e.ledger.Users()
	entries := make([]LeaderboardEntry, 0, len(users))
	for _, user := range users {
		points := e.ledger.TotalPoints(user)
		entries = append(entries, LeaderboardEntry{
			User:   user,
			Points: points,
			Badges: len(e.ledger.Records(user)),
			Rank:   Rank(points),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if entries[i].Badges != entries[j].Badges {
			return entries[i].Badges > entries[j].Badges
		}
		return entries[i].User < entries[j].User
	})

	return entries
}

// Rank maps total points to the workshop rank ladder.
func Rank(points int) string {
	switch {
	case points >= 1000:
		return "Legend"
	case points >= 500:
		return "Champion"
	case points >= 250:
		return "Expert"
	case points >= 100:
		return "Builder"
	case points >= 50:
		return "Creator"
	case points >= 25:
		return "Explorer"
	default:
		return "Newcomer"
	}
}

// PendingAnnouncements builds announcements for every earned-but-
// uncelebrated badge across users, in award order per user.
func (e *Engine) PendingAnnouncements(ctx context.Context, users []core.Handle) ([]core.Announcement, error) {
	var anns []core.Announcement
	for _, user := range users {
		pending, err := e.gate.PendingCelebrations(ctx, user, e.ledger.Records(user))
		if err != nil {
			return nil, err
		}
		for _, rec := range pending {
			def, ok := e.cat.Lookup(rec.BadgeID)
			if !ok {
				// Ledger can hold badges from a retired catalog entry.
				def = catalog.BadgeDefinition{ID: rec.BadgeID, Name: rec.BadgeID}
			}
			anns = append(anns, notify.Build(user, def))
		}
	}
	return anns, nil
}

// Celebrate marks a badge announced and broadcasts it to subscribers.
// Acking an already-celebrated badge is a no-op; acking a badge the user
// never earned returns core.ErrBadgeNotFound.
func (e *Engine) Celebrate(ctx context.Context, user core.Handle, badgeID string) error {
	if !e.ledger.CurrentAwards(user)[badgeID] {
		return core.ErrBadgeNotFound
	}
	already, err := e.gate.IsCelebrated(ctx, user, badgeID)
	if err != nil {
		return err
	}
	if err := e.gate.MarkCelebrated(ctx, user, badgeID); err != nil {
		return err
	}
	if already || e.notifier == nil {
		return nil
	}

	def, ok := e.cat.Lookup(badgeID)
	if !ok {
		def = catalog.BadgeDefinition{ID: badgeID, Name: badgeID}
	}
	e.notifier.Announce(notify.Build(user, def))
	return nil
}

// NextMilestone exposes the evaluator's milestone lookup for surfaces.
func (e *Engine) NextMilestone(snap core.StreakSnapshot) (evaluate.Milestone, bool) {
	return evaluate.NextMilestone(snap, e.cat)
}

// Catalog returns the engine's badge catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Ledger returns the engine's award ledger.
func (e *Engine) Ledger() *award.Ledger { return e.ledger }
