// Package evaluate decides which badges a user has newly earned. It is a
// pure decision function: it never touches the ledger or any other store.
package evaluate

import (
	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/core"
)

// Evaluate returns the badges newly earned by the user in the snapshot,
// ordered by criteria type then ascending threshold.
//
// Every qualifying rung of a progression is returned, not only the highest,
// so a user who arrives with a 10-day best streak still receives the 1-day,
// 3-day and 7-day badges in order. Streak criteria compare against the best
// streak, never the current one: a badge once earned is never revocable, and
// a reset must not hide rungs the user already climbed. Thresholds are
// inclusive; best == 7 earns the 7-day badge.
func Evaluate(snap core.StreakSnapshot, cat *catalog.Catalog, earned map[string]bool) []catalog.BadgeDefinition {
	var newlyEarned []catalog.BadgeDefinition

	for _, ct := range cat.CriteriaTypes() {
		value := snap.Counter(ct)
		for _, def := range cat.DefinitionsFor(ct) {
			if def.Threshold > value {
				break // ladder is ascending; nothing further qualifies
			}
			if earned[def.ID] {
				continue
			}
			newlyEarned = append(newlyEarned, def)
		}
	}

	return newlyEarned
}

// Milestone describes the next streak badge a user has not yet reached
type Milestone struct {
	Badge    catalog.BadgeDefinition
	DaysToGo int
}

// NextMilestone returns the lowest streak threshold strictly above the
// user's best streak, or ok=false when the ladder is fully climbed.
func NextMilestone(snap core.StreakSnapshot, cat *catalog.Catalog) (Milestone, bool) {
	for _, def := range cat.DefinitionsFor(core.CriteriaStreakDays) {
		if def.Threshold > snap.BestDays {
			return Milestone{Badge: def, DaysToGo: def.Threshold - snap.BestDays}, true
		}
	}
	return Milestone{}, false
}
