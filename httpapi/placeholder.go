package httpapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/chatflow/config"
)

// PlaceholderMessage explains why the editor is unavailable.
const PlaceholderMessage = "The chat flow editor needs an assistant API key. Set " +
	config.APIKeyEnv + " and restart the server."

// Placeholder builds an app that answers every request with 503 and PlaceholderMessage.
func Placeholder() *fiber.App {
	app := newApp()
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "assistant not configured",
			"message": PlaceholderMessage,
		})
	})
	return app
}
