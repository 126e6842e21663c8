// handlers/quest_routes.go
package handlers

import (
	"errors"

	"hunter-progression/models"
	"hunter-progression/services"

	"github.com/gofiber/fiber/v2"
)

type questView struct {
	models.UserQuest
	PercentComplete float64 `json:"percent_complete"`
}

func SetupQuestRoutes(user fiber.Router, quests *services.QuestService) {
	user.Get("/quests/today", func(c *fiber.Ctx) error {
		list, err := quests.GetTodayQuests(c.UserContext(), userID(c))
		if err != nil {
			return respondError(c, err)
		}
		views := make([]questView, 0, len(list))
		date := ""
		for _, q := range list {
			views = append(views, questView{UserQuest: q, PercentComplete: q.PercentComplete()})
			date = q.Date
		}
		return c.JSON(fiber.Map{
			"date":   date,
			"quests": views,
		})
	})

	user.Post("/quests/:id/claim", func(c *fiber.Ctx) error {
		result, err := quests.ClaimQuest(c.UserContext(), userID(c), c.Params("id"))
		if err != nil && !(errors.Is(err, services.ErrAlreadyClaimed) && result != nil) {
			return respondError(c, err)
		}
		return c.JSON(rewardResponse(c, result))
	})
}
