package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/cogniscreen/internal/api/http/middleware"
	form "github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/service/assessment"
)

type AssessmentHandler struct {
	svc assessment.Service
}

func NewAssessmentHandler(svc assessment.Service) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

func (h *AssessmentHandler) Fields(c fiber.Ctx) error {
	return ok(c, h.svc.Fields())
}

func (h *AssessmentHandler) Field(c fiber.Ctx) error {
	rule, found := h.svc.Field(c.Params("name"))
	if !found {
		return notFound(c, "unknown field")
	}
	return ok(c, rule)
}

type validateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *AssessmentHandler) Validate(c fiber.Ctx) error {
	var req validateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Field == "" {
		return badRequest(c, "field is required")
	}
	return ok(c, h.svc.Validate(req.Field, req.Value))
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (h *AssessmentHandler) Start(c fiber.Ctx) error {
	res, err := h.svc.Start(c.Context(), middleware.ClientIDFromFiber(c))
	if err != nil {
		return mapAssessmentError(c, err, nil)
	}
	return created(c, res)
}

func (h *AssessmentHandler) Get(c fiber.Ctx) error {
	view, err := h.svc.Get(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"))
	if err != nil {
		return mapAssessmentError(c, err, nil)
	}
	return ok(c, view)
}

type setFieldRequest struct {
	Value string `json:"value"`
}

func (h *AssessmentHandler) SetField(c fiber.Ctx) error {
	var req setFieldRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.SetField(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"), c.Params("name"), req.Value)
	if err != nil {
		return mapAssessmentError(c, err, nil)
	}
	return ok(c, res)
}

func (h *AssessmentHandler) Next(c fiber.Ctx) error {
	view, err := h.svc.Next(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"))
	if err != nil {
		return mapAssessmentError(c, err, &view)
	}
	return ok(c, view)
}

func (h *AssessmentHandler) Previous(c fiber.Ctx) error {
	view, err := h.svc.Previous(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"))
	if err != nil {
		return mapAssessmentError(c, err, &view)
	}
	return ok(c, view)
}

func (h *AssessmentHandler) GoTo(c fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return badRequest(c, "invalid section index")
	}
	view, err := h.svc.GoTo(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"), index)
	if err != nil {
		return mapAssessmentError(c, err, &view)
	}
	return ok(c, view)
}

func (h *AssessmentHandler) ResumeDraft(c fiber.Ctx) error {
	view, err := h.svc.ResumeDraft(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"))
	if err != nil {
		return mapAssessmentError(c, err, nil)
	}
	return ok(c, view)
}

func (h *AssessmentHandler) Submit(c fiber.Ctx) error {
	out, err := h.svc.Submit(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"))
	if err != nil {
		return mapAssessmentError(c, err, out.Session)
	}
	return created(c, out)
}

func (h *AssessmentHandler) Discard(c fiber.Ctx) error {
	if err := h.svc.Discard(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id")); err != nil {
		return mapAssessmentError(c, err, nil)
	}
	return noContent(c)
}

func (h *AssessmentHandler) Result(c fiber.Ctx) error {
	sub, err := h.svc.Result(c.Context(), middleware.ClientIDFromFiber(c))
	if err != nil {
		return mapAssessmentError(c, err, nil)
	}
	return ok(c, sub)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// mapAssessmentError writes the response for err. A rejected section
// change carries the failing fields and, when given, the session view.
func mapAssessmentError(c fiber.Ctx, err error, view *assessment.View) error {
	var se *form.SectionError
	switch {
	case errors.As(err, &se):
		body := fiber.Map{
			"error":  form.ErrSectionIncomplete.Error(),
			"fields": se.Fields,
			"focus":  se.Focus(),
		}
		if view != nil && view.ID != "" {
			body["session"] = view
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	case errors.Is(err, assessment.ErrSessionNotFound):
		return notFound(c, "session not found")
	case errors.Is(err, assessment.ErrNoDraft):
		return notFound(c, "no saved draft")
	case errors.Is(err, assessment.ErrNoResult):
		return notFound(c, "no assessment result")
	case errors.Is(err, form.ErrAlreadySubmitted):
		return conflict(c, err.Error())
	case errors.Is(err, form.ErrSectionLocked),
		errors.Is(err, form.ErrSectionOutOfRange),
		errors.Is(err, form.ErrNotFinalSection),
		errors.Is(err, assessment.ErrEmptySubmission):
		return badRequest(c, err.Error())
	default:
		slog.ErrorContext(c.Context(), "assessment request failed", "path", c.Path(), "error", err)
		return internalError(c)
	}
}
