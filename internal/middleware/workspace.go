package middleware

import (
	"github.com/gofiber/fiber/v2"

	"pitchforge/internal/workspace"
)

// Header names carrying the caller's workspace key and session identity.
const (
	HeaderWorkspaceKey = "X-Workspace-Key"
	HeaderSessionID    = "X-Session-ID"
)

// WorkspaceResolver resolves the workspace key header into a workspace id
// once per request. The raw key is never stored; only its digest travels
// further. Requests without a key keep an empty workspace id, which the
// store treats as "no workspace".
func WorkspaceResolver() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("workspace_id", workspace.Resolve(c.Get(HeaderWorkspaceKey)))

		sessionID := c.Get(HeaderSessionID)
		if sessionID == "" {
			// Anonymous sessions are identified by IP, same as the
			// guest limits elsewhere.
			sessionID = c.IP()
		}
		c.Locals("session_id", sessionID)

		return c.Next()
	}
}

// RequireWorkspace rejects requests whose workspace key is missing.
func RequireWorkspace() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if workspaceID, _ := c.Locals("workspace_id").(string); workspaceID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Workspace key is required. Set the " + HeaderWorkspaceKey + " header.",
			})
		}
		return c.Next()
	}
}
