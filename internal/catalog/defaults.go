package catalog

import "github.com/streakforge/streakforge/internal/core"

// Default returns the built-in workshop catalog: the streak progression
// ladder plus the event-based badges.
func Default() *Catalog {
	c, err := New(defaultDefinitions)
	if err != nil {
		// The built-in definitions are validated by tests; a failure here
		// is a programming error.
		panic(err)
	}
	return c
}

var defaultDefinitions = []BadgeDefinition{
	{
		ID:           "first_day",
		Name:         "First Day",
		Description:  "Started your workshop journey!",
		Category:     core.CategoryStreak,
		CriteriaType: core.CriteriaStreakDays,
		Threshold:    1,
		Points:       10,
		Tier:         core.TierBronze,
		Icon:         "🌱",
	},
	{
		ID:           "early_bird",
		Name:         "Early Bird",
		Description:  "Maintained activity for 3 days straight!",
		Category:     core.CategoryStreak,
		CriteriaType: core.CriteriaStreakDays,
		Threshold:    3,
		Points:       25,
		Tier:         core.TierBronze,
		Icon:         "🌅",
	},
	{
		ID:           "week_warrior",
		Name:         "Week Warrior",
		Description:  "Achieved a full week streak!",
		Category:     core.CategoryStreak,
		CriteriaType: core.CriteriaStreakDays,
		Threshold:    7,
		Points:       50,
		Tier:         core.TierSilver,
		Icon:         "💪",
	},
	{
		ID:           "consistency_champion",
		Name:         "Consistency Champion",
		Description:  "Maintained a 14-day streak!",
		Category:     core.CategoryStreak,
		CriteriaType: core.CriteriaStreakDays,
		Threshold:    14,
		Points:       100,
		Tier:         core.TierGold,
		Icon:         "🔥",
	},
	{
		ID:           "monthly_legend",
		Name:         "Monthly Legend",
		Description:  "Reached the legendary 30-day streak!",
		Category:     core.CategoryStreak,
		CriteriaType: core.CriteriaStreakDays,
		Threshold:    30,
		Points:       250,
		Tier:         core.TierPlatinum,
		Icon:         "🏆",
	},
	{
		ID:           "century_club",
		Name:         "Century Club",
		Description:  "Achieved the ultimate 100-day streak!",
		Category:     core.CategoryStreak,
		CriteriaType: core.CriteriaStreakDays,
		Threshold:    100,
		Points:       1000,
		Tier:         core.TierDiamond,
		Icon:         "👑",
	},
	{
		ID:           "first_ship",
		Name:         "First Ship",
		Description:  "Shared your first creation with the workshop!",
		Category:     core.CategoryShip,
		CriteriaType: core.CriteriaShipCount,
		Threshold:    1,
		Points:       30,
		Tier:         core.TierBronze,
		Icon:         "🚢",
	},
	{
		ID:           "game_master",
		Name:         "Game Master",
		Description:  "Created or participated in workshop games!",
		Category:     core.CategoryEngagement,
		CriteriaType: core.CriteriaGameCount,
		Threshold:    1,
		Points:       75,
		Tier:         core.TierGold,
		Icon:         "🎮",
	},
	{
		ID:           "community_builder",
		Name:         "Community Builder",
		Description:  "Helped others and fostered positive workshop vibes!",
		Category:     core.CategoryEngagement,
		CriteriaType: core.CriteriaKudosCount,
		Threshold:    1,
		Points:       100,
		Tier:         core.TierSpecial,
		Icon:         "🌟",
	},
}
