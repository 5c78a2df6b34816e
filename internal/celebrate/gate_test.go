package celebrate

import (
	"context"
	"testing"
	"time"

	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/storage"
)

func testGate(t *testing.T) *Gate {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewGate(db)
}

func award(badgeID string, at time.Time) core.AwardRecord {
	return core.AwardRecord{
		User:      "@maya",
		BadgeID:   badgeID,
		AwardedAt: at,
		Reason:    "streak milestone: 7 days",
		Points:    50,
	}
}

func TestMarkCelebrated_Idempotent(t *testing.T) {
	gate := testGate(t)
	ctx := context.Background()

	if err := gate.MarkCelebrated(ctx, "@maya", "first_day"); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}
	if err := gate.MarkCelebrated(ctx, "@maya", "first_day"); err != nil {
		t.Fatalf("repeat mark should be a no-op, got: %v", err)
	}

	count, err := gate.CountForUser(ctx, "@maya")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 celebration after duplicate marks, got %d", count)
	}
}

func TestIsCelebrated(t *testing.T) {
	gate := testGate(t)
	ctx := context.Background()

	ok, err := gate.IsCelebrated(ctx, "@maya", "first_day")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unmarked badge should not be celebrated")
	}

	if err := gate.MarkCelebrated(ctx, "@maya", "first_day"); err != nil {
		t.Fatal(err)
	}

	ok, err = gate.IsCelebrated(ctx, "@maya", "first_day")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("marked badge should be celebrated")
	}

	// Same badge for another user stays uncelebrated
	ok, err = gate.IsCelebrated(ctx, "@sam", "first_day")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("celebrations must be scoped per user")
	}
}

func TestPendingCelebrations_FiltersAndOrders(t *testing.T) {
	gate := testGate(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earned := []core.AwardRecord{
		award("week_warrior", base.Add(48*time.Hour)),
		award("first_day", base),
		award("early_bird", base.Add(24*time.Hour)),
	}

	if err := gate.MarkCelebrated(ctx, "@maya", "early_bird"); err != nil {
		t.Fatal(err)
	}

	pending, err := gate.PendingCelebrations(ctx, "@maya", earned)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"first_day", "week_warrior"}
	if len(pending) != len(want) {
		t.Fatalf("expected %d pending, got %d", len(want), len(pending))
	}
	for i, id := range want {
		if pending[i].BadgeID != id {
			t.Errorf("pending[%d] = %s, want %s (award-time ascending)", i, pending[i].BadgeID, id)
		}
	}
}

func TestPendingCelebrations_AllCelebrated(t *testing.T) {
	gate := testGate(t)
	ctx := context.Background()

	earned := []core.AwardRecord{award("first_day", time.Now().UTC())}
	if err := gate.MarkCelebrated(ctx, "@maya", "first_day"); err != nil {
		t.Fatal(err)
	}

	pending, err := gate.PendingCelebrations(ctx, "@maya", earned)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending celebrations, got %d", len(pending))
	}
}
