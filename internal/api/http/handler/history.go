package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/cogniscreen/internal/api/http/middleware"
	"github.com/Alijeyrad/cogniscreen/internal/history"
	historysvc "github.com/Alijeyrad/cogniscreen/internal/service/history"
)

type HistoryHandler struct {
	svc historysvc.Service
}

func NewHistoryHandler(svc historysvc.Service) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

func (h *HistoryHandler) List(c fiber.Ctx) error {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "invalid limit")
		}
		limit = n
	}

	records, err := h.svc.List(c.Context(), middleware.ClientIDFromFiber(c), limit)
	if err != nil {
		return mapHistoryError(c, err)
	}
	return ok(c, records)
}

func (h *HistoryHandler) Get(c fiber.Ctx) error {
	rec, err := h.svc.Get(c.Context(), middleware.ClientIDFromFiber(c), c.Params("id"))
	if err != nil {
		return mapHistoryError(c, err)
	}
	return ok(c, rec)
}

func (h *HistoryHandler) Clear(c fiber.Ctx) error {
	if err := h.svc.Clear(c.Context(), middleware.ClientIDFromFiber(c)); err != nil {
		return mapHistoryError(c, err)
	}
	return noContent(c)
}

func (h *HistoryHandler) Export(c fiber.Ctx) error {
	exp, err := h.svc.Export(c.Context(), middleware.ClientIDFromFiber(c), c.Query("format", history.FormatCSV))
	if err != nil {
		return mapHistoryError(c, err)
	}

	c.Set(fiber.HeaderContentType, exp.ContentType)
	c.Attachment(exp.Name)
	return c.Send(exp.Body)
}

func (h *HistoryHandler) Upload(c fiber.Ctx) error {
	up, err := h.svc.Upload(c.Context(), middleware.ClientIDFromFiber(c), c.Query("format", history.FormatCSV))
	if err != nil {
		return mapHistoryError(c, err)
	}
	return created(c, up)
}

func mapHistoryError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return notFound(c, "history record not found")
	case errors.Is(err, history.ErrEmpty):
		return notFound(c, "no history to export")
	case errors.Is(err, historysvc.ErrUnsupportedFormat):
		return badRequest(c, err.Error())
	case errors.Is(err, historysvc.ErrUploadDisabled):
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.ErrorContext(c.Context(), "history request failed", "path", c.Path(), "error", err)
		return internalError(c)
	}
}
