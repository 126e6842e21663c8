// handlers/progression_routes.go
package handlers

import (
	"errors"

	"hunter-progression/models"
	"hunter-progression/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, user, admin fiber.Router, svc Services) {
	user.Get("/progress", func(c *fiber.Ctx) error {
		prog, err := svc.Progression.GetProgress(c.UserContext(), userID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(progressResponse(prog))
	})

	user.Get("/achievements", func(c *fiber.Ctx) error {
		views, err := svc.Achievements.ListAchievements(c.UserContext(), userID(c))
		if err != nil {
			return respondError(c, err)
		}
		unlocked := 0
		for _, v := range views {
			if v.Unlocked {
				unlocked++
			}
		}
		return c.JSON(fiber.Map{
			"achievements": views,
			"unlocked":     unlocked,
			"total":        len(views),
		})
	})

	user.Post("/workouts/events", func(c *fiber.Ctx) error {
		var ev models.WorkoutEvent
		if err := c.BodyParser(&ev); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		uid := userID(c)
		if ev.UserID == "" {
			ev.UserID = uid
		}
		if ev.UserID != uid {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "event user_id does not match X-User-ID",
			})
		}

		summary, err := svc.Workouts.SubmitWorkoutEvent(c.UserContext(), &ev)
		if err != nil && !(errors.Is(err, services.ErrDuplicateEvent) && summary != nil) {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"summary":  summary,
			"xp_label": xpLabel(printerFor(c), summary.XPDelta),
		})
	})

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required,max=128"`
			XP     int64  `json:"xp" validate:"required,min=1,max=1000000"`
			Reason string `json:"reason" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if err := validate.Struct(req); err != nil {
			return badRequest(c, "validation failed", err)
		}
		if req.Reason == "" {
			req.Reason = "admin_grant"
		}

		result, err := svc.Progression.GrantXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		resp := rewardResponse(c, result)
		resp["message"] = "XP granted successfully"
		resp["user_id"] = req.UserID
		return c.JSON(resp)
	})

	app.Get("/catalog", func(c *fiber.Ctx) error {
		return c.JSON(svc.Catalog)
	})
}

func progressResponse(prog *models.UserProgress) fiber.Map {
	floor := int64(0)
	if prog.Level > 1 {
		floor = models.XPForLevel(prog.Level)
	}
	next := models.XPForLevel(prog.Level + 1)
	return fiber.Map{
		"id":                prog.ID,
		"user_id":           prog.ExternalUserID,
		"xp":                prog.TotalXP,
		"level":             prog.Level,
		"rank":              prog.Rank,
		"rank_name":         prog.Rank.Name(),
		"xp_into_level":     prog.TotalXP - floor,
		"xp_for_next_level": next - floor,
		"next_level_at":     next,
		"current_streak":    prog.CurrentStreak,
		"longest_streak":    prog.LongestStreak,
		"total_workouts":    prog.TotalWorkouts,
		"total_prs":         prog.TotalPRs,
		"total_volume":      prog.TotalVolume,
		"quests_claimed":    prog.QuestsClaimed,
		"gates_cleared":     prog.GatesCleared,
		"last_level_up_at":  prog.LastLevelUpAt,
		"last_rank_up_at":   prog.LastRankUpAt,
	}
}
