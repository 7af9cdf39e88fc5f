package cmd

import (
	"context"
	"log"

	"game-sync/core/config"
	"game-sync/core/database"
	"game-sync/core/logger"
	"game-sync/core/reconcile"
	"game-sync/feature/integration"
	"game-sync/feature/leaderboard"
	"game-sync/feature/steamworks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncGameID       uint
	syncAll          bool
	syncCleanup      bool
	syncLeaderboards bool
	syncStats        bool
)

// syncCmd runs one reconciliation pass from the command line.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass against all external platforms",
	Long: `Run a bidirectional leaderboard and stat sync for one game or for every
game with a live integration, then exit.

Examples:
  # Sync one game
  sync --game 1

  # Sync every live integration
  sync --all

  # Only leaderboards, plus the orphan cleanup sweep
  sync --game 1 --leaderboards --cleanup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		integrations := integration.NewService(db, logg, cfg.Crypto.Key)
		entries := leaderboard.NewService(db, logg)
		steamworks.NewFeature(db, logg, cfg.Steam, entries, integrations)

		ctx := context.Background()
		if syncAll {
			if err := integrations.SyncAll(ctx); err != nil {
				return err
			}
			if syncCleanup {
				return integrations.CleanupAll(ctx)
			}
			return nil
		}

		targets, err := integrations.ForGame(ctx, syncGameID)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			logg.Warn("Game has no live integrations", zap.Uint("game_id", syncGameID))
			return nil
		}

		both := !syncLeaderboards && !syncStats
		for i := range targets {
			it := &targets[i]
			l := logg.With(zap.Uint("integration_id", it.ID), zap.String("type", it.Type))

			if syncLeaderboards || both {
				report, err := integrations.SyncLeaderboards(ctx, it)
				if err != nil {
					l.Error("Leaderboard sync failed", zap.Error(err))
				} else {
					logReport(l, "Leaderboard sync completed", report)
				}
			}
			if syncStats || both {
				report, err := integrations.SyncStats(ctx, it)
				if err != nil {
					l.Error("Stat sync failed", zap.Error(err))
				} else {
					logReport(l, "Stat sync completed", report)
				}
			}
			if syncCleanup {
				if platform, ok := integrations.Platform(it); ok {
					if err := platform.CleanupOrphans(ctx, it); err != nil {
						l.Error("Orphan cleanup failed", zap.Error(err))
					}
				}
			}
		}
		return nil
	},
}

func logReport(l *zap.Logger, msg string, report *reconcile.Report) {
	if report == nil {
		l.Info("Sync disabled for this integration")
		return
	}
	l.Info(msg,
		zap.Int("leaderboards_created", report.LeaderboardsCreated),
		zap.Int("leaderboards_updated", report.LeaderboardsUpdated),
		zap.Int("mappings_created", report.MappingsCreated),
		zap.Int("stats_created", report.StatsCreated),
		zap.Int("stats_updated", report.StatsUpdated),
		zap.Int("pulled", report.Pulled),
		zap.Int("pushed", report.Pushed),
		zap.Int("errors", len(report.Errors)),
		zap.String("execution_time", report.ExecutionTime))
	for _, recordErr := range report.Errors {
		l.Warn("Record failed", zap.String("record", recordErr.Record), zap.String("error", recordErr.Message))
	}
}

func init() {
	syncCmd.Flags().UintVar(&syncGameID, "game", 0, "Game id to sync")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Sync every live integration")
	syncCmd.Flags().BoolVar(&syncCleanup, "cleanup", false, "Also run the orphan remote-score cleanup sweep")
	syncCmd.Flags().BoolVar(&syncLeaderboards, "leaderboards", false, "Sync leaderboards only")
	syncCmd.Flags().BoolVar(&syncStats, "stats", false, "Sync stats only")
	RootCmd.AddCommand(syncCmd)
}
