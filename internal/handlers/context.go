package handlers

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pitchforge/internal/models"
	"pitchforge/internal/services"
	"pitchforge/internal/store"
	"pitchforge/internal/utils"
)

// maxContextDocSize caps uploaded company material (10MB per document).
const maxContextDocSize = 10 * 1024 * 1024

// ContextHandler handles company context CRUD, export/import, and
// document-driven enhancement.
type ContextHandler struct {
	store   *store.ContextStore
	pitch   *services.PitchService
	metrics *services.Metrics
}

// NewContextHandler creates a new context handler
func NewContextHandler(contextStore *store.ContextStore, pitch *services.PitchService, metrics *services.Metrics) *ContextHandler {
	return &ContextHandler{
		store:   contextStore,
		pitch:   pitch,
		metrics: metrics,
	}
}

// workspaceID pulls the resolved workspace id set by the middleware.
func workspaceID(c *fiber.Ctx) string {
	id, _ := c.Locals("workspace_id").(string)
	return id
}

// List returns all context names for the workspace
// GET /api/contexts
func (h *ContextHandler) List(c *fiber.Ctx) error {
	names := h.store.List(workspaceID(c))
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{"contexts": names})
}

// Get returns a single context by name
// GET /api/contexts/:name
func (h *ContextHandler) Get(c *fiber.Ctx) error {
	name := c.Params("name")
	record := h.store.Get(workspaceID(c), name)
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("Context %q not found", name),
		})
	}
	return c.JSON(record)
}

// Save upserts a context under the name in the path
// PUT /api/contexts/:name
func (h *ContextHandler) Save(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))

	var req models.SaveContextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.CompanyName != "" && req.CompanyName != name {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Company name in body does not match the context name in the path",
		})
	}

	record, err := h.store.Save(workspaceID(c), name, req.CompanyInfo)
	if err != nil {
		if err == store.ErrEmptyCompanyName {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Please provide a company name.",
			})
		}
		log.Printf("❌ [CONTEXT] Save failed for %q: %v", name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save context",
		})
	}

	if h.metrics != nil {
		h.metrics.ContextSaves.Inc()
	}
	return c.JSON(record)
}

// Delete removes a context; deleting a missing name succeeds silently
// DELETE /api/contexts/:name
func (h *ContextHandler) Delete(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.store.Delete(workspaceID(c), name); err != nil {
		log.Printf("❌ [CONTEXT] Delete failed for %q: %v", name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete context",
		})
	}
	return c.JSON(fiber.Map{"deleted": name})
}

// Export returns one context as a downloadable JSON artifact
// GET /api/contexts/:name/export
func (h *ContextHandler) Export(c *fiber.Ctx) error {
	name := c.Params("name")
	serialized, ok := h.store.Export(workspaceID(c), name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("Context %q not found", name),
		})
	}

	filename := strings.ReplaceAll(name, " ", "_") + "_context.json"
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.SendString(serialized)
}

// Import parses an exported record and saves it
// POST /api/contexts/import
func (h *ContextHandler) Import(c *fiber.Ctx) error {
	var req models.ImportContextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	name, err := h.store.Import(workspaceID(c), req.Data, req.Name)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not import context: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{"imported": name})
}

// Enhance merges uploaded company material into the context's info via the
// completion capability. The result is returned for review, not saved; the
// client saves explicitly.
// POST /api/contexts/:name/enhance
func (h *ContextHandler) Enhance(c *fiber.Ctx) error {
	name := c.Params("name")
	record := h.store.Get(workspaceID(c), name)
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("Context %q not found", name),
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Expected multipart form with document files",
		})
	}

	files := form.File["documents"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No documents uploaded",
		})
	}

	var extracted strings.Builder
	for _, fileHeader := range files {
		if fileHeader.Size > maxContextDocSize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": fmt.Sprintf("Document %s exceeds the %dMB size limit", fileHeader.Filename, maxContextDocSize/(1024*1024)),
			})
		}

		data, mimeType, err := readUpload(fileHeader)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Could not read %s: %v", fileHeader.Filename, err),
			})
		}

		text, err := utils.ExtractDocumentText(data, mimeType)
		if err != nil {
			log.Printf("⚠️  [CONTEXT] Skipping %s: %v", fileHeader.Filename, err)
			continue
		}
		extracted.WriteString(fmt.Sprintf("\n\nFrom %s:\n%s", fileHeader.Filename, text))
	}

	if extracted.Len() == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No text could be extracted from the uploaded documents",
		})
	}

	enhanced := h.pitch.EnhanceContext(c.Context(), extracted.String(), record.CompanyInfo)
	log.Printf("✨ [CONTEXT] Enhanced %q from %d document(s)", name, len(files))

	return c.JSON(fiber.Map{
		"company_name": record.CompanyName,
		"company_info": enhanced,
	})
}
