// handlers/gate_routes.go
package handlers

import (
	"errors"
	"time"

	"hunter-progression/models"
	"hunter-progression/services"

	"github.com/gofiber/fiber/v2"
)

type gateView struct {
	models.UserGate
	SecondsRemaining int64 `json:"seconds_remaining"`
	PotentialXP      int64 `json:"potential_xp"`
}

func newGateView(g models.UserGate, now time.Time) gateView {
	v := gateView{UserGate: g}
	if g.Status.Unresolved() {
		v.SecondsRemaining = max(0, int64(g.ExpiresAt.Sub(now).Seconds()))
	}
	// what a claim would pay if every bonus objective were also completed
	full := g
	full.Objectives = make([]models.UserGateObjective, len(g.Objectives))
	for i, o := range g.Objectives {
		o.IsCompleted = true
		full.Objectives[i] = o
	}
	v.PotentialXP, _ = services.GateReward(&full)
	return v
}

func gateViews(gates []models.UserGate, now time.Time) []gateView {
	views := make([]gateView, 0, len(gates))
	for _, g := range gates {
		views = append(views, newGateView(g, now))
	}
	return views
}

func SetupGateRoutes(user, admin fiber.Router, gates *services.GateService) {
	user.Get("/gates", func(c *fiber.Ctx) error {
		board, err := gates.ListGates(c.UserContext(), userID(c))
		if err != nil {
			return respondError(c, err)
		}
		now := gates.Now()
		return c.JSON(fiber.Map{
			"available":           gateViews(board.Available, now),
			"active":              gateViews(board.Active, now),
			"completed_unclaimed": gateViews(board.CompletedUnclaimed, now),
		})
	})

	user.Get("/gates/:id", func(c *fiber.Ctx) error {
		g, err := gates.GetGate(c.UserContext(), userID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(newGateView(*g, gates.Now()))
	})

	user.Post("/gates/:id/accept", func(c *fiber.Ctx) error {
		g, err := gates.AcceptGate(c.UserContext(), userID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(newGateView(*g, gates.Now()))
	})

	user.Post("/gates/:id/abandon", func(c *fiber.Ctx) error {
		g, err := gates.AbandonGate(c.UserContext(), userID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "gate abandoned",
			"gate_id": g.ID,
			"status":  g.Status,
		})
	})

	user.Post("/gates/:id/claim", func(c *fiber.Ctx) error {
		result, err := gates.ClaimGate(c.UserContext(), userID(c), c.Params("id"))
		if err != nil && !(errors.Is(err, services.ErrAlreadyClaimed) && result != nil) {
			return respondError(c, err)
		}
		return c.JSON(rewardResponse(c, result))
	})

	admin.Post("/gates/spawn", func(c *fiber.Ctx) error {
		type Req struct {
			UserID   string      `json:"user_id" validate:"required,max=128"`
			GateCode string      `json:"gate_code" validate:"omitempty,max=64"`
			Rank     models.Rank `json:"rank" validate:"omitempty,oneof=E D C B A S"`
			Rare     *bool       `json:"rare"`
			Stretch  *bool       `json:"stretch"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if err := validate.Struct(req); err != nil {
			return badRequest(c, "validation failed", err)
		}

		g, err := gates.ForceSpawn(c.UserContext(), req.UserID, services.ForceSpawnOptions{
			GateCode: req.GateCode,
			Rank:     req.Rank,
			Rare:     req.Rare,
			Stretch:  req.Stretch,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newGateView(*g, gates.Now()))
	})
}
