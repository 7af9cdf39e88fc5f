package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-sync/core/config"
	"game-sync/core/database"
	"game-sync/core/loader"
	"game-sync/core/logger"
	"game-sync/core/middleware/auth"
	"game-sync/core/middleware/rayid"
	"game-sync/core/scheduler"
	"game-sync/core/storage"

	"game-sync/feature/game"
	gamemodels "game-sync/feature/game/models"
	"game-sync/feature/integration"
	imodels "game-sync/feature/integration/models"
	"game-sync/feature/leaderboard"
	lbmodels "game-sync/feature/leaderboard/models"
	"game-sync/feature/stat"
	statmodels "game-sync/feature/stat/models"
	"game-sync/feature/steamworks"
	swmodels "game-sync/feature/steamworks/models"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the game sync server",
	Long:  `Starts the HTTP server, loads all features and schedules background syncs.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(
			&gamemodels.Game{}, &gamemodels.Player{}, &gamemodels.PlayerAlias{},
			&lbmodels.Leaderboard{}, &lbmodels.LeaderboardEntry{},
			&statmodels.GameStat{}, &statmodels.PlayerGameStat{},
			&imodels.Integration{}, &imodels.IntegrationEvent{},
			&swmodels.LeaderboardMapping{}, &swmodels.LeaderboardEntryLink{}, &swmodels.StatLink{},
		); err != nil {
			logg.Fatal("Failed to migrate database", zap.Error(err))
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 5. Initialize Storage (Optional)
		// The archive bucket being down must not keep the service from
		// serving gameplay traffic.
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Warn("Optional storage connection failed, archival disabled", zap.Error(err))
			store = nil
		}

		// 6. Build Services and Features
		integrations := integration.NewService(db, logg, cfg.Crypto.Key)
		leaderboards := leaderboard.NewFeature(db, logg, integrations)

		mgr := loader.NewManager()
		mgr.Register(game.NewFeature(db, logg))
		mgr.Register(integration.NewFeature(integrations))
		mgr.Register(leaderboards)
		mgr.Register(stat.NewFeature(db, logg, integrations))
		mgr.Register(steamworks.NewFeature(db, logg, cfg.Steam, leaderboards.Service(), integrations))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		v1 := app.Group("/v1")
		if err := mgr.LoadAll(v1); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Background Jobs
		var jobs *scheduler.Service
		if cfg.Scheduler.Enabled {
			jobs = scheduler.New(logg)
			if err := jobs.Every("integration sync", time.Duration(cfg.Scheduler.SyncIntervalMinutes)*time.Minute, integrations.SyncAll); err != nil {
				logg.Fatal("Failed to schedule sync job", zap.Error(err))
			}
			if err := jobs.Every("orphan cleanup", time.Duration(cfg.Scheduler.CleanupIntervalMinutes)*time.Minute, integrations.CleanupAll); err != nil {
				logg.Fatal("Failed to schedule cleanup job", zap.Error(err))
			}
			if store != nil {
				archiver := integration.NewArchiver(db, store, cfg.Storage.Bucket, cfg.Storage.RetentionDays, logg)
				if err := jobs.Daily("event archival", cfg.Scheduler.ArchiveTime, archiver.Run); err != nil {
					logg.Fatal("Failed to schedule archival job", zap.Error(err))
				}
			}
			jobs.Start()
		}

		// 9. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 10. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		if jobs != nil {
			jobs.Stop()
		}
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
