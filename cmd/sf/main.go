// StreakForge CLI - inspect streak badges, ranks and celebrations.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/streakforge/streakforge/internal/award"
	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/celebrate"
	"github.com/streakforge/streakforge/internal/config"
	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/engine"
	"github.com/streakforge/streakforge/internal/notify"
	"github.com/streakforge/streakforge/internal/risk"
	"github.com/streakforge/streakforge/internal/snapshot"
	"github.com/streakforge/streakforge/internal/storage"
)

var (
	configPath string

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sf",
		Short: "StreakForge - streak badges for the workshop",
		Long: `StreakForge evaluates daily activity streaks against a badge catalog,
keeps a durable award ledger and tracks which badges still deserve a
celebration.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(leaderboardCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(celebrationsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openEngine(cfg *config.Config) (*engine.Engine, *storage.DB, error) {
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		var err error
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	ledger, err := award.Open(cfg.LedgerPath, cat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}

	return engine.New(cat, ledger, celebrate.NewGate(db), notify.NewService()), db, nil
}

// checkCmd runs one evaluation cycle
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate current streaks and award new badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			eng, db, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			snaps, err := snapshot.Load(cfg.SnapshotPath)
			if err != nil {
				return err
			}

			result, err := eng.RunCheck(context.Background(), snaps)
			if err != nil {
				return err
			}

			fmt.Printf("Checked %d users\n", result.UsersChecked)
			if result.BadgesAwarded == 0 {
				fmt.Println("No new badges")
			}
			for _, rec := range result.NewAwards {
				fmt.Printf("  %s earned %s (+%d points)\n", rec.User, rec.BadgeID, rec.Points)
			}
			fmt.Printf("Community health: %.1f\n", result.Health)

			return nil
		},
	}
}

// leaderboardCmd prints the points standings
func leaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the badge leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			eng, db, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			board := eng.Leaderboard()
			if len(board) == 0 {
				fmt.Println("No awards yet. Run 'sf check' first.")
				return nil
			}

			fmt.Println("🏆 Leaderboard")
			fmt.Println()
			for i, entry := range board {
				fmt.Printf("  %2d. %-20s %5d pts  %2d badges  %s\n",
					i+1, entry.User, entry.Points, entry.Badges, entry.Rank)
			}

			return nil
		},
	}
}

// userCmd shows one user's awards
func userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <handle>",
		Short: "Show a user's badges and rank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := core.Handle(args[0])

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			eng, db, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			records := eng.Ledger().Records(handle)
			points := eng.Ledger().TotalPoints(handle)

			fmt.Printf("👤 %s\n", handle)
			fmt.Printf("   Rank: %s (%d points)\n", engine.Rank(points), points)
			fmt.Println()

			if len(records) == 0 {
				fmt.Println("   No badges yet")
				return nil
			}

			for _, rec := range records {
				name := rec.BadgeID
				icon := ""
				if def, ok := eng.Catalog().Lookup(rec.BadgeID); ok {
					name = def.Name
					icon = def.Icon + " "
				}
				fmt.Printf("   %s%s (+%d) - %s\n", icon, name, rec.Points, rec.AwardedAt.Format("2006-01-02"))
			}

			// Next streak milestone, when the tracker knows this user
			snaps, err := snapshot.Load(cfg.SnapshotPath)
			if err == nil {
				for _, snap := range snaps {
					if snap.User != handle {
						continue
					}
					if ms, ok := eng.NextMilestone(snap); ok {
						fmt.Println()
						fmt.Printf("   Next: %s in %d days\n", ms.Badge.Name, ms.DaysToGo)
					}
				}
			}

			return nil
		},
	}
}

// riskCmd shows disengagement risk for the cohort
func riskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "risk",
		Short: "Show disengagement risk per user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			eng, db, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			snaps, err := snapshot.Load(cfg.SnapshotPath)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No streak data found")
				return nil
			}

			now := time.Now().UTC()
			fmt.Printf("Community health: %.1f\n", eng.Health(snaps, now))
			fmt.Println()

			for _, a := range eng.AtRisk(snaps, now, risk.BucketLow) {
				fmt.Printf("  %-20s %3d  %-6s  inactive %.0fh\n",
					a.User, a.Level, a.Bucket, a.HoursInactive)
			}

			return nil
		},
	}
}

// celebrationsCmd lists (and optionally acks) pending celebrations
func celebrationsCmd() *cobra.Command {
	var ack bool

	cmd := &cobra.Command{
		Use:   "celebrations",
		Short: "Show badges waiting for a shout-out",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			eng, db, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			anns, err := eng.PendingAnnouncements(ctx, eng.Ledger().Users())
			if err != nil {
				return err
			}

			if len(anns) == 0 {
				fmt.Println("Nothing to celebrate right now")
				return nil
			}

			for _, ann := range anns {
				fmt.Println(ann.Message)
				if ack {
					if err := eng.Celebrate(ctx, ann.User, ann.BadgeID); err != nil {
						return err
					}
				}
			}
			if ack {
				fmt.Printf("\nMarked %d celebrations as announced\n", len(anns))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&ack, "ack", false, "mark listed celebrations as announced")
	return cmd
}

// migrateCmd rewrites the ledger in the canonical schema
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Normalize the award ledger to the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			cat := catalog.Default()
			if cfg.CatalogPath != "" {
				cat, err = catalog.Load(cfg.CatalogPath)
				if err != nil {
					return err
				}
			}

			ledger, err := award.Open(cfg.LedgerPath, cat)
			if err != nil {
				return err
			}
			if err := ledger.Save(); err != nil {
				return err
			}

			fmt.Printf("Ledger normalized: %d awards across %d users\n",
				ledger.TotalAwarded(), len(ledger.Users()))
			return nil
		},
	}
}

// versionCmd shows version
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show StreakForge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("StreakForge %s\n", version)
		},
	}
}
