package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/cogniscreen/internal/api/http/handler"
)

func (r *Router) registerHistoryRoutes(api fiber.Router, h *handler.HistoryHandler, clientScope fiber.Handler) {
	hist := api.Group("/history", clientScope)

	hist.Get("/", h.List)
	hist.Delete("/", h.Clear)

	// before /:id
	hist.Get("/export", h.Export)
	hist.Post("/export", h.Upload)

	hist.Get("/:id", h.Get)
}
