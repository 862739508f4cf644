package routes

import (
	"github.com/UnExplainableFish52/reliant-learners-academy/handlers"
	"github.com/UnExplainableFish52/reliant-learners-academy/middleware"
	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(h.Config.JWTSecret), middleware.RoleRequired(models.RoleAdmin))

	users := admin.Group("/users")
	users.Post("", h.CreateUser)
}
