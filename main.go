package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hunter-progression/config"
	"hunter-progression/handlers"
	"hunter-progression/middleware"
	"hunter-progression/models"
	"hunter-progression/services"
	"hunter-progression/utils"
	"hunter-progression/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.UserQuest{},
		&models.UserGate{},
		&models.UserGateObjective{},
		&models.UserAchievement{},
		&models.ProcessedWorkout{},
		&models.StrengthSnapshot{},
	); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var store services.ObjectFetcher
	if cfg.CatalogObjectKey != "" {
		r2, err := utils.NewObjectStore(ctx, utils.R2Config{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2BucketName,
		})
		if err != nil {
			slog.Error("failed to initialize R2 client", "error", err)
			os.Exit(1)
		}
		store = r2
	}
	catalog, err := services.LoadCatalog(ctx, store, cfg.CatalogObjectKey)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	rng := services.NewLockedRand(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	achievements := services.NewAchievementService(db, catalog, services.SnapshotStrengthSource{})
	ledger := services.NewProgressionService(db, cfg.XPWeights(), achievements)
	quests := services.NewQuestService(db, catalog, ledger, achievements, rng)
	gates := services.NewGateService(db, catalog, ledger, achievements, cfg.GateSettings(), rng)
	workouts := services.NewWorkoutService(db, ledger, quests, gates, achievements)

	app := fiber.New(fiber.Config{
		AppName:   "hunter-progression",
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	handlers.SetupHealthRoutes(app, db)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 🔐❗ Only Gateway requests past this point
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	handlers.SetupRoutes(app, handlers.Services{
		Progression:  ledger,
		Achievements: achievements,
		Quests:       quests,
		Gates:        gates,
		Workouts:     workouts,
		Catalog:      catalog,
	})

	sched, err := services.StartRetentionScheduler(db, cfg.RetentionDays, cfg.RetentionInterval)
	if err != nil {
		slog.Error("failed to start retention scheduler", "error", err)
		os.Exit(1)
	}

	if cfg.StrengthSyncURL != "" {
		workers.NewStrengthSyncWorker(db, cfg.StrengthSyncURL, cfg.StrengthSyncPath, cfg.StrengthSyncToken, cfg.StrengthSyncInterval).Start(ctx)
		slog.Info("✅ Strength Sync Worker running", "interval", cfg.StrengthSyncInterval)
	} else {
		slog.Warn("⚠️  STRENGTH_SYNC_URL not set, lift achievements use existing snapshots only")
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	slog.Info("✅ Server running", "port", cfg.Port)
	slog.Info("✅ Catalog loaded", "version", catalog.Version,
		"quests", len(catalog.Quests), "gates", len(catalog.Gates), "achievements", len(catalog.Achievements))
	slog.Info("✅ GatewayAuthMiddleware enforced on every route except /healthz")
	slog.Info("✅ CORS configured", "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	slog.Info("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		slog.Warn("scheduler shutdown", "error", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
}
