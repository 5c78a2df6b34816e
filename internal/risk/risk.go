// Package risk scores disengagement risk from inactivity. The scoring
// functions are deterministic, monotone heuristics, not models: the same
// snapshot and clock always produce the same score.
package risk

import (
	"sort"
	"time"

	"github.com/streakforge/streakforge/internal/core"
)

// Bucket classifies a risk level for triage
type Bucket string

const (
	BucketLow    Bucket = "low"
	BucketMedium Bucket = "medium"
	BucketHigh   Bucket = "high"
)

// Assessment is a per-user risk reading
type Assessment struct {
	User          core.Handle `json:"user"`
	Level         int         `json:"risk_level"` // 0-100
	Bucket        Bucket      `json:"bucket"`
	HoursInactive float64     `json:"hours_inactive"`
}

// Score rates how likely the user in the snapshot is to disengage, based on
// hours since last activity: >36h scores 90, >24h 70, >12h 40, else 20.
func Score(snap core.StreakSnapshot, now time.Time) Assessment {
	hours := now.Sub(snap.LastActive).Hours()
	if hours < 0 {
		hours = 0
	}

	var level int
	switch {
	case hours > 36:
		level = 90
	case hours > 24:
		level = 70
	case hours > 12:
		level = 40
	default:
		level = 20
	}

	return Assessment{
		User:          snap.User,
		Level:         level,
		Bucket:        bucketFor(level),
		HoursInactive: hours,
	}
}

func bucketFor(level int) Bucket {
	switch {
	case level >= 70:
		return BucketHigh
	case level >= 40:
		return BucketMedium
	default:
		return BucketLow
	}
}

// CommunityHealth aggregates a cohort health score in [0,100]:
// 70% weight on inverted mean risk, 30% on the share of users holding at
// least one award. An empty cohort scores 0.
func CommunityHealth(snaps []core.StreakSnapshot, hasAward func(user core.Handle) bool, now time.Time) float64 {
	if len(snaps) == 0 {
		return 0
	}

	var riskSum float64
	awarded := 0
	for _, snap := range snaps {
		riskSum += float64(Score(snap, now).Level)
		if hasAward != nil && hasAward(snap.User) {
			awarded++
		}
	}

	meanRisk := riskSum / float64(len(snaps))
	awardShare := float64(awarded) / float64(len(snaps))

	health := 0.7*(100-meanRisk) + 0.3*(awardShare*100)
	if health < 0 {
		return 0
	}
	if health > 100 {
		return 100
	}
	return health
}

// AtRisk returns the cohort members at or above minBucket, highest risk
// first, ties broken by handle for stable output.
func AtRisk(snaps []core.StreakSnapshot, now time.Time, minBucket Bucket) []Assessment {
	floor := 0
	switch minBucket {
	case BucketHigh:
		floor = 70
	case BucketMedium:
		floor = 40
	}

	var out []Assessment
	for _, snap := range snaps {
		a := Score(snap, now)
		if a.Level >= floor {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].User < out[j].User
	})
	return out
}
