package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/streakforge/streakforge/internal/award"
	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/celebrate"
	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/notify"
	"github.com/streakforge/streakforge/internal/risk"
	"github.com/streakforge/streakforge/internal/storage"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	cat := catalog.Default()

	ledger, err := award.Open(filepath.Join(t.TempDir(), "ledger.json"), cat)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(cat, ledger, celebrate.NewGate(db), notify.NewService())
}

func snap(user core.Handle, current, best int, inactive time.Duration) core.StreakSnapshot {
	return core.StreakSnapshot{
		User:        user,
		CurrentDays: current,
		BestDays:    best,
		LastActive:  time.Now().UTC().Add(-inactive),
	}
}

func TestRunCheck_AwardsProgression(t *testing.T) {
	e := testEngine(t)

	result, err := e.RunCheck(context.Background(), []core.StreakSnapshot{
		snap("@maya", 10, 10, 2*time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.UsersChecked != 1 {
		t.Errorf("users checked = %d, want 1", result.UsersChecked)
	}
	// best=10 crosses 1, 3 and 7
	if result.BadgesAwarded != 3 {
		t.Fatalf("badges awarded = %d, want 3", result.BadgesAwarded)
	}
	want := []string{"first_day", "early_bird", "week_warrior"}
	for i, id := range want {
		if result.NewAwards[i].BadgeID != id {
			t.Errorf("award[%d] = %s, want %s", i, result.NewAwards[i].BadgeID, id)
		}
	}
}

func TestRunCheck_SecondRunIsNoOp(t *testing.T) {
	e := testEngine(t)
	snaps := []core.StreakSnapshot{snap("@maya", 10, 10, 2*time.Hour)}

	if _, err := e.RunCheck(context.Background(), snaps); err != nil {
		t.Fatal(err)
	}
	result, err := e.RunCheck(context.Background(), snaps)
	if err != nil {
		t.Fatal(err)
	}
	if result.BadgesAwarded != 0 {
		t.Errorf("second run awarded %d badges, want 0", result.BadgesAwarded)
	}
	if e.Ledger().TotalAwarded() != 3 {
		t.Errorf("ledger holds %d awards, want 3", e.Ledger().TotalAwarded())
	}
}

func TestRunCheck_CancelledContext(t *testing.T) {
	e := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RunCheck(ctx, []core.StreakSnapshot{snap("@maya", 1, 1, time.Hour)})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestLeaderboard_Ordering(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	// @maya: 1+3+7+14 day badges = 10+25+50+100 = 185 points, 4 badges
	// @sam: first_day only = 10 points
	_, err := e.RunCheck(ctx, []core.StreakSnapshot{
		snap("@sam", 1, 1, time.Hour),
		snap("@maya", 14, 14, time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	board := e.Leaderboard()
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].User != "@maya" || board[0].Points != 185 || board[0].Badges != 4 {
		t.Errorf("unexpected top entry: %+v", board[0])
	}
	if board[0].Rank != "Builder" {
		t.Errorf("rank for 185 points = %s, want Builder", board[0].Rank)
	}
	if board[1].User != "@sam" || board[1].Rank != "Newcomer" {
		t.Errorf("unexpected second entry: %+v", board[1])
	}
}

func TestRank_Ladder(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, "Newcomer"},
		{24, "Newcomer"},
		{25, "Explorer"},
		{50, "Creator"},
		{100, "Builder"},
		{250, "Expert"},
		{500, "Champion"},
		{999, "Champion"},
		{1000, "Legend"},
	}
	for _, tt := range tests {
		if got := Rank(tt.points); got != tt.want {
			t.Errorf("Rank(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}

func TestPendingAnnouncements_AndCelebrate(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	_, err := e.RunCheck(ctx, []core.StreakSnapshot{snap("@maya", 3, 3, time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	anns, err := e.PendingAnnouncements(ctx, []core.Handle{"@maya"})
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 2 {
		t.Fatalf("expected 2 pending announcements, got %d", len(anns))
	}
	if anns[0].BadgeID != "first_day" || anns[1].BadgeID != "early_bird" {
		t.Errorf("unexpected announcement order: %+v", anns)
	}
	if anns[1].Message != "🎉 @maya earned Early Bird 🌅!" {
		t.Errorf("unexpected message: %q", anns[1].Message)
	}

	if err := e.Celebrate(ctx, "@maya", "first_day"); err != nil {
		t.Fatal(err)
	}
	// Re-ack is a no-op
	if err := e.Celebrate(ctx, "@maya", "first_day"); err != nil {
		t.Fatalf("repeat celebrate should be a no-op, got: %v", err)
	}

	anns, err = e.PendingAnnouncements(ctx, []core.Handle{"@maya"})
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 1 || anns[0].BadgeID != "early_bird" {
		t.Errorf("expected only early_bird pending, got %+v", anns)
	}
}

func TestCelebrate_UnearnedBadge(t *testing.T) {
	e := testEngine(t)

	err := e.Celebrate(context.Background(), "@maya", "century_club")
	if !errors.Is(err, core.ErrBadgeNotFound) {
		t.Errorf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestHealth_EmptyCohort(t *testing.T) {
	e := testEngine(t)
	if h := e.Health(nil, time.Now()); h != 0 {
		t.Errorf("empty cohort health = %v, want 0", h)
	}
}

func TestAtRisk(t *testing.T) {
	e := testEngine(t)
	now := time.Now().UTC()

	snaps := []core.StreakSnapshot{
		snap("@fresh", 5, 5, 2*time.Hour),
		snap("@fading", 0, 5, 30*time.Hour),
	}

	assessments := e.AtRisk(snaps, now, risk.BucketMedium)
	if len(assessments) != 1 {
		t.Fatalf("expected 1 at-risk user, got %d", len(assessments))
	}
	if assessments[0].User != "@fading" || assessments[0].Level != 70 {
		t.Errorf("unexpected assessment: %+v", assessments[0])
	}
}
