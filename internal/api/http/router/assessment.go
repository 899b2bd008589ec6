package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/cogniscreen/internal/api/http/handler"
)

func (r *Router) registerAssessmentRoutes(api fiber.Router, h *handler.AssessmentHandler, clientScope fiber.Handler) {
	a := api.Group("/assessment")

	// Rule table, no client state
	a.Get("/fields", h.Fields)
	a.Get("/fields/:name", h.Field)
	a.Post("/validate", h.Validate)

	a.Get("/result", clientScope, h.Result)

	sessions := a.Group("/sessions", clientScope)
	sessions.Post("/", h.Start)

	s := sessions.Group("/:id")
	s.Get("/", h.Get)
	s.Delete("/", h.Discard)
	s.Put("/fields/:name", h.SetField)
	s.Post("/next", h.Next)
	s.Post("/previous", h.Previous)
	s.Post("/sections/:index", h.GoTo)
	s.Post("/draft/resume", h.ResumeDraft)
	s.Post("/submit", h.Submit)
}
