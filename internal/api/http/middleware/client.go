package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/cogniscreen/pkg/constants"
	"github.com/Alijeyrad/cogniscreen/pkg/reqctx"
)

const (
	LocalsClientID = "client_id"

	maxClientIDLen = 128
)

// ClientScope reads the caller's client id from the X-Client-Id header.
// Every stored key is scoped by it, so it must not contain the key
// separator.
func ClientScope() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(constants.HeaderClientID))
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, constants.HeaderClientID+" header is required")
		}
		if len(id) > maxClientIDLen || strings.ContainsAny(id, ": \t") {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+constants.HeaderClientID+" value")
		}

		c.Locals(LocalsClientID, id)
		c.SetContext(reqctx.WithClientID(c.Context(), id))
		return c.Next()
	}
}

// ClientIDFromFiber returns the id set by ClientScope.
func ClientIDFromFiber(c fiber.Ctx) string {
	s, _ := c.Locals(LocalsClientID).(string)
	return s
}
