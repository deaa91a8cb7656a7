package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pitchforge/internal/logging"
	"pitchforge/internal/models"
	"pitchforge/internal/services"
	"pitchforge/internal/store"
	"pitchforge/internal/utils"
)

// maxProfileDocSize caps uploaded profile documents (10MB).
const maxProfileDocSize = 10 * 1024 * 1024

// PitchHandler drives the generation pipeline: profile parsing, company
// research, and final message generation, gated by the usage limiter.
type PitchHandler struct {
	pitch   *services.PitchService
	store   *store.ContextStore
	usage   *services.UsageLimiterService
	metrics *services.Metrics
}

// NewPitchHandler creates a new pitch handler
func NewPitchHandler(pitch *services.PitchService, contextStore *store.ContextStore, usage *services.UsageLimiterService, metrics *services.Metrics) *PitchHandler {
	return &PitchHandler{
		pitch:   pitch,
		store:   contextStore,
		usage:   usage,
		metrics: metrics,
	}
}

// sessionID pulls the session identity set by the middleware.
func sessionID(c *fiber.Ctx) string {
	id, _ := c.Locals("session_id").(string)
	return id
}

// ProfileParseResponse is returned by the profile parse endpoint.
type ProfileParseResponse struct {
	ProfileText    string `json:"profile_text"`
	Name           string `json:"name"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	CompanySummary string `json:"company_summary,omitempty"`
}

// ParseProfile extracts text from an uploaded profile document, parses the
// structured fields, and runs company research when a company was resolved.
// POST /api/profile/parse
func (h *PitchHandler) ParseProfile(c *fiber.Ctx) error {
	// The daily ceiling gates the whole pipeline, but only accepted
	// generation requests consume quota.
	if err := h.usage.CheckLimit(sessionID(c)); err != nil {
		return quotaExceeded(c, err)
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Expected a multipart form with a \"document\" file",
		})
	}
	if fileHeader.Size > maxProfileDocSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("Document exceeds the %dMB size limit", maxProfileDocSize/(1024*1024)),
		})
	}

	data, mimeType, err := readUpload(fileHeader)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Could not read upload: %v", err),
		})
	}

	profileText, err := utils.ExtractDocumentText(data, mimeType)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fmt.Sprintf("Could not extract text: %v", err),
		})
	}

	requestID := uuid.NewString()
	log.Printf("📄 [PROFILE] Parsing document %s (%d bytes, request %s)", fileHeader.Filename, len(data), requestID)

	parsed := h.pitch.ParseProfile(c.Context(), profileText)

	response := ProfileParseResponse{
		ProfileText: profileText,
		Name:        parsed.Name,
		Title:       parsed.Title,
		Company:     parsed.Company,
	}

	// Research only runs for a resolved company; the summarization step is
	// a hard dependency of showing research, so its failure surfaces.
	if parsed.Company != "" && !strings.EqualFold(parsed.Company, models.NotFoundMarker) {
		digest := h.pitch.ResearchCompany(c.Context(), parsed.Company)
		summary, err := h.pitch.SummarizeResearch(c.Context(), parsed.Company, digest, profileText)
		if err != nil {
			log.Printf("❌ [PROFILE] Research summarization failed (request %s): %v", requestID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Company research failed: " + err.Error(),
			})
		}
		response.CompanySummary = summary
	}

	return c.JSON(response)
}

// GenerateResponse wraps the generated message with the session's usage
// snapshot so clients can warn when the budget runs low.
type GenerateResponse struct {
	Message *models.GeneratedMessage `json:"message"`
	Usage   services.UsageStats      `json:"usage"`
}

// Generate drafts one outreach message from the request and the selected
// company context.
// POST /api/pitch
func (h *PitchHandler) Generate(c *fiber.Ctx) error {
	var req models.GenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.OutputType == "" {
		req.OutputType = models.OutputEmail
	}
	if !req.OutputType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Unknown output type %q", req.OutputType),
		})
	}

	session := sessionID(c)
	if err := h.usage.CheckLimit(session); err != nil {
		return quotaExceeded(c, err)
	}

	companyContext := h.store.Get(workspaceID(c), req.ContextName)
	if companyContext == nil {
		// Precondition failure: no quota is consumed and no external
		// call is made.
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": services.RejectionNoContext,
		})
	}

	// The request is accepted from here on; it consumes quota even if the
	// completion call fails downstream.
	used := h.usage.Increment(session)
	requestID := uuid.NewString()
	reqLog := logging.WithRequest(requestID, workspaceID(c))
	reqLog.Info("generation accepted", "output_type", req.OutputType, "used", used)

	message, err := h.pitch.Generate(c.Context(), req, companyContext)
	if err != nil {
		reqLog.Error("generation failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Message generation failed: " + err.Error(),
		})
	}

	return c.JSON(GenerateResponse{
		Message: message,
		Usage:   h.usage.Stats(session),
	})
}

// quotaExceeded renders a LimitExceededError as a blocked response.
func quotaExceeded(c *fiber.Ctx, err error) error {
	log.Printf("🚫 [QUOTA] %v (session %v)", err, c.Locals("session_id"))
	if limitErr, ok := err.(*services.LimitExceededError); ok {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":    limitErr.Message,
			"limit":    limitErr.Limit,
			"used":     limitErr.Used,
			"reset_at": limitErr.ResetAt,
		})
	}
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// readUpload loads a multipart file into memory and reports its MIME type,
// preferring the declared Content-Type and falling back to the extension.
func readUpload(fileHeader *multipart.FileHeader) ([]byte, string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		switch {
		case strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf"):
			mimeType = "application/pdf"
		case strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".docx"):
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		case strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pptx"):
			mimeType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
		default:
			mimeType = "text/plain"
		}
	}
	return data, mimeType, nil
}
