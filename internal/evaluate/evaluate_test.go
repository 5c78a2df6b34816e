package evaluate

import (
	"testing"

	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/core"
)

func ladderCatalog(t *testing.T, thresholds ...int) *catalog.Catalog {
	t.Helper()

	ids := map[int]string{1: "one", 3: "three", 7: "seven", 14: "fourteen", 30: "thirty", 100: "hundred"}
	var defs []catalog.BadgeDefinition
	for _, th := range thresholds {
		defs = append(defs, catalog.BadgeDefinition{
			ID:           ids[th],
			Name:         ids[th],
			CriteriaType: core.CriteriaStreakDays,
			Threshold:    th,
			Points:       th * 10,
			Tier:         core.TierBronze,
		})
	}

	c, err := catalog.New(defs)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

func badgeIDs(defs []catalog.BadgeDefinition) []string {
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	return ids
}

func TestEvaluate_ProgressionCompleteness(t *testing.T) {
	cat := ladderCatalog(t, 1, 3, 7, 14, 30)
	snap := core.StreakSnapshot{User: "@maya", CurrentDays: 10, BestDays: 10}

	got := Evaluate(snap, cat, map[string]bool{})

	want := []string{"one", "three", "seven"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, badgeIDs(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestEvaluate_BoundaryInclusion(t *testing.T) {
	cat := ladderCatalog(t, 7)

	at := Evaluate(core.StreakSnapshot{User: "@a", BestDays: 7}, cat, map[string]bool{})
	if len(at) != 1 || at[0].ID != "seven" {
		t.Errorf("best == 7 should earn the 7-day badge, got %v", badgeIDs(at))
	}

	below := Evaluate(core.StreakSnapshot{User: "@b", BestDays: 6}, cat, map[string]bool{})
	if len(below) != 0 {
		t.Errorf("best == 6 should earn nothing, got %v", badgeIDs(below))
	}
}

func TestEvaluate_UsesBestNotCurrent(t *testing.T) {
	cat := ladderCatalog(t, 1, 3, 7)

	// Streak reset: current dropped to 1 but best remains 8
	snap := core.StreakSnapshot{User: "@reset", CurrentDays: 1, BestDays: 8}
	got := Evaluate(snap, cat, map[string]bool{})
	if len(got) != 3 {
		t.Errorf("best=8 should qualify all three rungs despite current=1, got %v", badgeIDs(got))
	}
}

func TestEvaluate_SkipsAlreadyEarned(t *testing.T) {
	cat := ladderCatalog(t, 1, 3, 7)
	snap := core.StreakSnapshot{User: "@maya", BestDays: 10}

	got := Evaluate(snap, cat, map[string]bool{"one": true, "three": true})
	if len(got) != 1 || got[0].ID != "seven" {
		t.Errorf("only the 7-day badge should be new, got %v", badgeIDs(got))
	}
}

func TestEvaluate_NoNewBadgesIsEmpty(t *testing.T) {
	cat := ladderCatalog(t, 1, 3)
	snap := core.StreakSnapshot{User: "@maya", BestDays: 5}

	got := Evaluate(snap, cat, map[string]bool{"one": true, "three": true})
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", badgeIDs(got))
	}
}

func TestEvaluate_EventCriteria(t *testing.T) {
	defs := []catalog.BadgeDefinition{
		{ID: "first_ship", Name: "First Ship", CriteriaType: core.CriteriaShipCount, Threshold: 1, Points: 30, Tier: core.TierBronze},
		{ID: "one", Name: "one", CriteriaType: core.CriteriaStreakDays, Threshold: 1, Points: 10, Tier: core.TierBronze},
	}
	cat, err := catalog.New(defs)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}

	// No ships reported: only the streak badge qualifies
	got := Evaluate(core.StreakSnapshot{User: "@a", BestDays: 2}, cat, map[string]bool{})
	if len(got) != 1 || got[0].ID != "one" {
		t.Errorf("expected only streak badge, got %v", badgeIDs(got))
	}

	// A shipped creation earns first_ship
	got = Evaluate(core.StreakSnapshot{User: "@a", BestDays: 2, Ships: 1}, cat, map[string]bool{"one": true})
	if len(got) != 1 || got[0].ID != "first_ship" {
		t.Errorf("expected first_ship, got %v", badgeIDs(got))
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	cat := catalog.Default()
	snap := core.StreakSnapshot{User: "@maya", BestDays: 30, Ships: 2, Games: 1, Kudos: 3}

	first := badgeIDs(Evaluate(snap, cat, map[string]bool{}))
	for i := 0; i < 10; i++ {
		again := badgeIDs(Evaluate(snap, cat, map[string]bool{}))
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed: %v vs %v", i, first, again)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: order changed: %v vs %v", i, first, again)
			}
		}
	}
}

func TestNextMilestone(t *testing.T) {
	cat := ladderCatalog(t, 1, 3, 7, 14, 30)

	m, ok := NextMilestone(core.StreakSnapshot{User: "@maya", BestDays: 10}, cat)
	if !ok {
		t.Fatal("expected a next milestone")
	}
	if m.Badge.ID != "fourteen" || m.DaysToGo != 4 {
		t.Errorf("expected fourteen in 4 days, got %s in %d", m.Badge.ID, m.DaysToGo)
	}

	if _, ok := NextMilestone(core.StreakSnapshot{User: "@done", BestDays: 30}, cat); ok {
		t.Error("fully climbed ladder should have no next milestone")
	}
}
