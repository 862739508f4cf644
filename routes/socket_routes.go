package routes

import (
	"github.com/UnExplainableFish52/reliant-learners-academy/handlers"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// SocketRoutes serves the live test stream. Authentication happens in the
// first message since browsers cannot set headers on the upgrade.
func SocketRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws/tests/:testId", h.TestSocket())
}
