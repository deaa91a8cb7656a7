package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"pitchforge/internal/middleware"
	"pitchforge/internal/models"
	"pitchforge/internal/services"
	"pitchforge/internal/store"
)

type stubCompletion struct {
	responses []string
	err       error
	calls     int
}

func (s *stubCompletion) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

type stubSearch struct {
	results []models.SearchResult
	calls   int
}

func (s *stubSearch) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	s.calls++
	return s.results, nil
}

type testEnv struct {
	app        *fiber.App
	completion *stubCompletion
	search     *stubSearch
	usage      *services.UsageLimiterService
	store      *store.ContextStore
}

// newTestEnv wires the handlers the way the server entrypoint does, with
// stubbed external capabilities.
func newTestEnv(t *testing.T, dailyLimit int) *testEnv {
	t.Helper()

	completion := &stubCompletion{responses: []string{"stub response"}}
	search := &stubSearch{}
	contextStore := store.NewContextStore(t.TempDir())
	usage := services.NewUsageLimiterService(dailyLimit)
	pitch := services.NewPitchService(completion, search, nil)

	app := fiber.New(fiber.Config{UnescapePath: true})
	app.Use("/api", middleware.WorkspaceResolver())

	contextHandler := NewContextHandler(contextStore, pitch, nil)
	pitchHandler := NewPitchHandler(pitch, contextStore, usage, nil)
	usageHandler := NewUsageHandler(usage)

	api := app.Group("/api")
	api.Get("/usage", usageHandler.Stats)

	contexts := api.Group("/contexts", middleware.RequireWorkspace())
	contexts.Get("/", contextHandler.List)
	contexts.Post("/import", contextHandler.Import)
	contexts.Get("/:name", contextHandler.Get)
	contexts.Put("/:name", contextHandler.Save)
	contexts.Delete("/:name", contextHandler.Delete)
	contexts.Get("/:name/export", contextHandler.Export)

	api.Post("/pitch", middleware.RequireWorkspace(), pitchHandler.Generate)

	return &testEnv{
		app:        app,
		completion: completion,
		search:     search,
		usage:      usage,
		store:      contextStore,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func workspaceHeaders(key string) map[string]string {
	return map[string]string{
		middleware.HeaderWorkspaceKey: key,
		middleware.HeaderSessionID:    "session-" + key,
	}
}

func TestContextCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t, 0)
	headers := workspaceHeaders("alice")

	// Save
	resp := env.request(t, http.MethodPut, "/api/contexts/Acme%20Corp", models.SaveContextRequest{
		CompanyInfo: "Sells anvils.",
	}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save: expected 200, got %d", resp.StatusCode)
	}
	var saved models.CompanyContext
	decodeBody(t, resp, &saved)
	if saved.CompanyName != "Acme Corp" || saved.CompanyInfo != "Sells anvils." {
		t.Errorf("unexpected saved record: %+v", saved)
	}

	// List
	resp = env.request(t, http.MethodGet, "/api/contexts/", nil, headers)
	var listed struct {
		Contexts []string `json:"contexts"`
	}
	decodeBody(t, resp, &listed)
	if len(listed.Contexts) != 1 || listed.Contexts[0] != "Acme Corp" {
		t.Errorf("expected [Acme Corp], got %v", listed.Contexts)
	}

	// Get
	resp = env.request(t, http.MethodGet, "/api/contexts/Acme%20Corp", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Another workspace sees nothing
	resp = env.request(t, http.MethodGet, "/api/contexts/Acme%20Corp", nil, workspaceHeaders("bob"))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-workspace get: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete, then delete again (idempotent)
	for i := 0; i < 2; i++ {
		resp = env.request(t, http.MethodDelete, "/api/contexts/Acme%20Corp", nil, headers)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delete #%d: expected 200, got %d", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp = env.request(t, http.MethodGet, "/api/contexts/Acme%20Corp", nil, headers)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestContextRoutesRequireWorkspaceKey(t *testing.T) {
	env := newTestEnv(t, 0)

	resp := env.request(t, http.MethodGet, "/api/contexts/", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without workspace key, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSaveRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t, 0)

	resp := env.request(t, http.MethodPut, "/api/contexts/%20", models.SaveContextRequest{
		CompanyInfo: "info",
	}, workspaceHeaders("alice"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	if body.Error != "Please provide a company name." {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestSaveRejectsMismatchedBodyName(t *testing.T) {
	env := newTestEnv(t, 0)

	resp := env.request(t, http.MethodPut, "/api/contexts/Acme", models.SaveContextRequest{
		CompanyName: "Globex",
		CompanyInfo: "info",
	}, workspaceHeaders("alice"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for mismatched name, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestExportAndImportRoundTrip(t *testing.T) {
	env := newTestEnv(t, 0)
	headers := workspaceHeaders("alice")

	resp := env.request(t, http.MethodPut, "/api/contexts/Globex", models.SaveContextRequest{
		CompanyInfo: "Makes everything.",
	}, headers)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/contexts/Globex/export", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", resp.StatusCode)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, "Globex_context.json") {
		t.Errorf("unexpected Content-Disposition: %q", disposition)
	}
	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read export body: %v", err)
	}

	// Import into a different workspace
	other := workspaceHeaders("bob")
	resp = env.request(t, http.MethodPost, "/api/contexts/import", models.ImportContextRequest{
		Data: string(exported),
	}, other)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: expected 200, got %d", resp.StatusCode)
	}
	var imported struct {
		Imported string `json:"imported"`
	}
	decodeBody(t, resp, &imported)
	if imported.Imported != "Globex" {
		t.Errorf("expected imported name Globex, got %q", imported.Imported)
	}

	resp = env.request(t, http.MethodGet, "/api/contexts/Globex", nil, other)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get imported: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestImportRejectsGarbage(t *testing.T) {
	env := newTestEnv(t, 0)

	resp := env.request(t, http.MethodPost, "/api/contexts/import", models.ImportContextRequest{
		Data: "not json at all",
	}, workspaceHeaders("alice"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unparseable import, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerateWithoutContextConsumesNoQuota(t *testing.T) {
	env := newTestEnv(t, 0)
	headers := workspaceHeaders("alice")

	resp := env.request(t, http.MethodPost, "/api/pitch", models.GenerationRequest{
		ProfileText: "Jane Doe, CTO at Acme",
		ContextName: "Missing Co",
		OutputType:  models.OutputEmail,
	}, headers)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without a context, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if env.completion.calls != 0 {
		t.Errorf("expected zero completion calls, got %d", env.completion.calls)
	}
	if env.search.calls != 0 {
		t.Errorf("expected zero search calls, got %d", env.search.calls)
	}
	if used := env.usage.Used("session-alice"); used != 0 {
		t.Errorf("rejected request must not consume quota, used=%d", used)
	}
}

func TestGenerateEmailSplitsSubject(t *testing.T) {
	env := newTestEnv(t, 0)
	env.completion.responses = []string{"SUBJECT: Quarterly sync\nHi Jane,\n\nLet's talk anvils."}
	headers := workspaceHeaders("alice")

	resp := env.request(t, http.MethodPut, "/api/contexts/Acme", models.SaveContextRequest{
		CompanyInfo: "Sells anvils.",
	}, headers)
	resp.Body.Close()

	resp = env.request(t, http.MethodPost, "/api/pitch", models.GenerationRequest{
		ProfileText: "Jane Doe, CTO at Acme",
		ContextName: "Acme",
		OutputType:  models.OutputEmail,
	}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body GenerateResponse
	decodeBody(t, resp, &body)
	if body.Message.Subject != "Quarterly sync" {
		t.Errorf("expected subject %q, got %q", "Quarterly sync", body.Message.Subject)
	}
	if !strings.Contains(body.Message.Body, "Hi Jane,") {
		t.Errorf("unexpected body: %q", body.Message.Body)
	}
	if body.Usage.Used != 1 {
		t.Errorf("accepted generation should consume one unit, used=%d", body.Usage.Used)
	}
}

func TestGenerateBlockedAtDailyCeiling(t *testing.T) {
	env := newTestEnv(t, 1)
	headers := workspaceHeaders("alice")

	resp := env.request(t, http.MethodPut, "/api/contexts/Acme", models.SaveContextRequest{
		CompanyInfo: "Sells anvils.",
	}, headers)
	resp.Body.Close()

	request := models.GenerationRequest{
		ProfileText: "Jane Doe, CTO at Acme",
		ContextName: "Acme",
		OutputType:  models.OutputVoicemail,
	}

	resp = env.request(t, http.MethodPost, "/api/pitch", request, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	callsAfterFirst := env.completion.calls

	resp = env.request(t, http.MethodPost, "/api/pitch", request, headers)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", resp.StatusCode)
	}
	var blocked struct {
		Error string `json:"error"`
		Limit int    `json:"limit"`
		Used  int    `json:"used"`
	}
	decodeBody(t, resp, &blocked)
	if blocked.Limit != 1 || blocked.Used != 1 {
		t.Errorf("unexpected block payload: %+v", blocked)
	}

	if env.completion.calls != callsAfterFirst {
		t.Errorf("blocked request must not reach the completion capability")
	}
}

func TestGenerateRejectsUnknownOutputType(t *testing.T) {
	env := newTestEnv(t, 0)

	resp := env.request(t, http.MethodPost, "/api/pitch", map[string]string{
		"profile_text": "Jane Doe",
		"context_name": "Acme",
		"output_type":  "carrier_pigeon",
	}, workspaceHeaders("alice"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown output type, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUsageEndpointReportsStats(t *testing.T) {
	env := newTestEnv(t, 25)
	headers := workspaceHeaders("alice")

	env.usage.Increment("session-alice")
	env.usage.Increment("session-alice")

	resp := env.request(t, http.MethodGet, "/api/usage", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats services.UsageStats
	decodeBody(t, resp, &stats)
	if stats.Used != 2 || stats.Limit != 25 || stats.Remaining != 23 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
