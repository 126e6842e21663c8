package handlers

import (
	"context"
	"time"

	"hunter-progression/middleware"
	"hunter-progression/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services bundles the engine components behind the HTTP surface.
type Services struct {
	Progression  *services.ProgressionService
	Achievements *services.AchievementService
	Quests       *services.QuestService
	Gates        *services.GateService
	Workouts     *services.WorkoutService
	Catalog      *services.Catalog
}

// SetupHealthRoutes must be registered before the gateway middleware.
func SetupHealthRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"cause":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// SetupRoutes mounts every gateway-facing route. The gateway forwards paths
// like /api/v1/progression/user/progress -> /user/progress.
func SetupRoutes(app *fiber.App, svc Services) {
	// 🔐 user routes need X-User-ID; admin routes additionally the admin role
	user := app.Group("/user", middleware.UserContextMiddleware())
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	SetupProgressionRoutes(app, user, admin, svc)
	SetupQuestRoutes(user, svc.Quests)
	SetupGateRoutes(user, admin, svc.Gates)
}
