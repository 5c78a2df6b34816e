// Package core defines the fundamental types and errors for StreakForge.
package core

import "time"

// Handle is a user's workshop handle, e.g. "@quietbuilder".
// Users have no independent lifecycle; they exist wherever referenced.
type Handle = string

// Tier represents a badge tier
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
	TierSpecial  Tier = "special"
)

// Category groups badges by what kind of milestone they reward
type Category string

const (
	CategoryStreak     Category = "streak"
	CategoryShip       Category = "ship"
	CategoryEngagement Category = "engagement"
)

// CriteriaType identifies which metric a badge threshold compares against
type CriteriaType string

const (
	CriteriaStreakDays CriteriaType = "streak_days"
	CriteriaShipCount  CriteriaType = "ship_count"
	CriteriaGameCount  CriteriaType = "game_count"
	CriteriaKudosCount CriteriaType = "kudos_count"
)

// StreakSnapshot is a read-only view of one user's activity, supplied fresh
// on every evaluation cycle by the external streak tracker.
type StreakSnapshot struct {
	User        Handle    `json:"user"`
	CurrentDays int       `json:"current"`
	BestDays    int       `json:"best"`
	LastActive  time.Time `json:"last_active"`

	// Activity counters for event-based badges. Zero when the tracker
	// doesn't report them.
	Ships int `json:"ships,omitempty"`
	Games int `json:"games,omitempty"`
	Kudos int `json:"kudos,omitempty"`
}

// Counter returns the snapshot value a criteria type compares against.
// Streak badges compare against BestDays so a later reset can never
// invalidate an award.
func (s StreakSnapshot) Counter(ct CriteriaType) int {
	switch ct {
	case CriteriaStreakDays:
		return s.BestDays
	case CriteriaShipCount:
		return s.Ships
	case CriteriaGameCount:
		return s.Games
	case CriteriaKudosCount:
		return s.Kudos
	default:
		return 0
	}
}

// AwardRecord is the durable, immutable record that a user earned a badge.
// For a given (user, badge) pair at most one record ever exists.
type AwardRecord struct {
	User      Handle    `json:"-"`
	BadgeID   string    `json:"badge_key"`
	AwardedAt time.Time `json:"awarded_at"`
	Reason    string    `json:"reason"`
	Points    int       `json:"points"`
}

// Announcement is the notifier-facing shape for a pending celebration.
// The core makes no assumption about delivery transport.
type Announcement struct {
	User    Handle `json:"user"`
	BadgeID string `json:"badge_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}
