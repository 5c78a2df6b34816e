// StreakForge Daemon - periodic badge evaluation and celebration service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/streakforge/streakforge/internal/api"
	"github.com/streakforge/streakforge/internal/award"
	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/celebrate"
	"github.com/streakforge/streakforge/internal/config"
	"github.com/streakforge/streakforge/internal/engine"
	"github.com/streakforge/streakforge/internal/logging"
	"github.com/streakforge/streakforge/internal/notify"
	"github.com/streakforge/streakforge/internal/scheduler"
	"github.com/streakforge/streakforge/internal/snapshot"
	"github.com/streakforge/streakforge/internal/storage"
)

var (
	configPath string
	dataDir    string
	port       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "streakforge",
		Short: "StreakForge Daemon - badge evaluation and celebration service",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if cfg.Features.DebugMode {
		logging.SetLevel(logging.DEBUG)
	}

	logging.Info("Starting StreakForge daemon")

	// Open database
	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Load badge catalog
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	logging.Info("Catalog loaded: %d badge definitions", cat.Len())

	// Open award ledger
	ledger, err := award.Open(cfg.LedgerPath, cat)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	logging.Info("Ledger loaded: %d awards across %d users", ledger.TotalAwarded(), len(ledger.Users()))

	notifier := notify.NewService()
	eng := engine.New(cat, ledger, celebrate.NewGate(db), notifier)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic evaluation
	var sched *scheduler.Scheduler
	if cfg.Features.EnableScheduler {
		sched, err = scheduler.NewScheduler(scheduler.DefaultConfig())
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		interval := time.Duration(cfg.Check.IntervalMinutes) * time.Minute
		task := scheduler.IntervalTask("badge-check", "Badge evaluation", interval, func(ctx context.Context) error {
			snaps, err := snapshot.Load(cfg.SnapshotPath)
			if err != nil {
				return err
			}
			result, err := eng.RunCheck(ctx, snaps)
			if err != nil {
				return err
			}
			if result.BadgesAwarded > 0 {
				logging.Info("Check awarded %d badges across %d users", result.BadgesAwarded, result.UsersChecked)
			}
			return nil
		})
		if err := sched.Register(task); err != nil {
			return fmt.Errorf("failed to register check task: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		logging.Info("Scheduler started: check every %s", interval)
	}

	// Create API server
	server := api.New(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Engine:       eng,
		Notifier:     notifier,
		SnapshotPath: cfg.SnapshotPath,
	})

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logging.Info("Shutting down")
		if sched != nil {
			sched.Stop()
		}
		server.Stop(context.Background())
		cancel()
	}()

	// Start server (blocks)
	logging.Info("API listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	return server.Start()
}
