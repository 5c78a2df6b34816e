// Package snapshot loads per-user streak state from the streaks document
// maintained by the activity tracker.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/streakforge/streakforge/internal/award"
	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/logging"
)

// userEntry is one user's record in the streaks document. last_active is a
// bare date in the tracker's output.
type userEntry struct {
	Current    int    `json:"current"`
	Best       int    `json:"best"`
	LastActive string `json:"last_active"`
	Ships      int    `json:"ships"`
	Games      int    `json:"games"`
	Kudos      int    `json:"kudos"`
}

// document is the wrapped form; older trackers wrote the user map at the top
// level instead.
type document struct {
	Streaks map[string]userEntry `json:"streaks"`
}

var lastActiveLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Load reads the streaks document at path. A missing file yields an empty
// cohort. A file that does not parse as a whole is a *award.ParseError;
// individual malformed users are skipped with a warning.
func Load(path string) ([]core.StreakSnapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &award.ParseError{Path: path, Err: err}
	}
	return Parse(path, data)
}

// Parse decodes a streaks document. path is used for error reporting only.
func Parse(path string, data []byte) ([]core.StreakSnapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &award.ParseError{Path: path, Err: err}
	}

	users := doc.Streaks
	if users == nil {
		// Flat form: the user map at the top level.
		var flat map[string]json.RawMessage
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, &award.ParseError{Path: path, Err: err}
		}
		users = make(map[string]userEntry, len(flat))
		for handle, raw := range flat {
			var entry userEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				logging.Warn("Skipping malformed streak entry for %s: %v", handle, err)
				continue
			}
			users[handle] = entry
		}
	}

	snaps := make([]core.StreakSnapshot, 0, len(users))
	for handle, entry := range users {
		snap, err := toSnapshot(handle, entry)
		if err != nil {
			logging.Warn("Skipping streak entry for %s: %v", handle, err)
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].User < snaps[j].User })
	return snaps, nil
}

func toSnapshot(handle string, entry userEntry) (core.StreakSnapshot, error) {
	if entry.Current < 0 || entry.Best < 0 {
		return core.StreakSnapshot{}, fmt.Errorf("negative streak length")
	}

	snap := core.StreakSnapshot{
		User:        core.Handle(handle),
		CurrentDays: entry.Current,
		BestDays:    entry.Best,
		Ships:       entry.Ships,
		Games:       entry.Games,
		Kudos:       entry.Kudos,
	}

	// A tracker crash can leave best behind current; the longest streak is
	// at least the live one.
	if snap.BestDays < snap.CurrentDays {
		snap.BestDays = snap.CurrentDays
	}

	if entry.LastActive != "" {
		at, err := parseLastActive(entry.LastActive)
		if err != nil {
			return core.StreakSnapshot{}, err
		}
		snap.LastActive = at
	}

	return snap, nil
}

func parseLastActive(value string) (time.Time, error) {
	for _, layout := range lastActiveLayouts {
		if at, err := time.Parse(layout, value); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized last_active %q", value)
}
