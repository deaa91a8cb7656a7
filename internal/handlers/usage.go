package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pitchforge/internal/services"
)

// UsageHandler reports the current session's daily generation budget.
type UsageHandler struct {
	usage *services.UsageLimiterService
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage *services.UsageLimiterService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Stats returns the session's usage snapshot.
// GET /api/usage
func (h *UsageHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.usage.Stats(sessionID(c)))
}
