package handlers

import (
	"errors"
	"log/slog"

	"hunter-progression/models"
	"hunter-progression/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var validate = validator.New()

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.German,
	language.French,
	language.Spanish,
	language.Japanese,
})

// statusFor maps engine error kinds to HTTP.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindPrecondition:
		return fiber.StatusUnprocessableEntity
	case services.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	var e *services.Error
	if errors.As(err, &e) {
		body := fiber.Map{"error": e.Message, "code": e.Code}
		if e.Err != nil {
			body["cause"] = e.Err.Error()
		}
		return c.Status(statusFor(e.Kind)).JSON(body)
	}
	slog.Error("Request failed", "path", c.Path(), "user_id", c.Locals("user_id"), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

// printerFor picks a number printer from Accept-Language.
func printerFor(c *fiber.Ctx) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
	tag, _, _ := localeMatcher.Match(tags...)
	return message.NewPrinter(tag)
}

// xpLabel renders "+1,325 XP" with locale digit grouping.
func xpLabel(p *message.Printer, xp int64) string {
	return p.Sprintf("+%d XP", xp)
}

func rewardResponse(c *fiber.Ctx, r *models.RewardResult) fiber.Map {
	return fiber.Map{
		"xp_awarded":            r.XPAwarded,
		"xp_label":              xpLabel(printerFor(c), r.XPAwarded),
		"breakdown":             r.Breakdown,
		"already_claimed":       r.AlreadyClaimed,
		"level":                 r.Level,
		"achievements_unlocked": r.AchievementsUnlocked,
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
