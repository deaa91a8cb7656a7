package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"pitchforge/internal/models"
)

// RejectionNoContext is returned by Generate when no company context is
// selected. It is a fixed message, not an error: the pipeline makes no
// external call in that case.
const RejectionNoContext = "No company context selected. Please create and select a company context first."

// SubjectMarker prefixes the subject line in email-shaped completions.
const SubjectMarker = "SUBJECT:"

// Sampling temperatures per pipeline step. Extraction and enhancement favor
// determinism; generation favors variety.
const (
	tempParse    = 0.0
	tempEnhance  = 0.3
	tempSummary  = 0.5
	tempGenerate = 0.7
)

// DefaultSearchResults is how many web results feed the research digest.
const DefaultSearchResults = 3

// PitchService orchestrates the generation pipeline: profile parsing,
// company research, research summarization, and final message generation.
type PitchService struct {
	completions CompletionClient
	search      SearchClient
	metrics     *Metrics
}

// NewPitchService wires the pipeline to its external capabilities. metrics
// may be nil (tests).
func NewPitchService(completions CompletionClient, search SearchClient, metrics *Metrics) *PitchService {
	return &PitchService{
		completions: completions,
		search:      search,
		metrics:     metrics,
	}
}

// ParseProfile extracts name, title, and company from raw profile text.
// Fields the model cannot resolve come back as the literal "Not found";
// any failure of the call or of parsing degrades to three empty fields.
func (s *PitchService) ParseProfile(ctx context.Context, text string) models.ParsedProfile {
	prompt := fmt.Sprintf(`You are a helpful assistant. Extract the following details from this LinkedIn profile text:

- Full Name
- Job Title
- Company Name

Return *only* valid JSON in this exact format:
{
  "name": "...",
  "title": "...",
  "company": "..."
}

If any info is missing, put "Not found" in that field.

Profile text:
"""
%s
"""`, text)

	raw, err := s.completions.Complete(ctx, prompt, tempParse)
	if err != nil {
		log.Printf("⚠️  [PIPELINE] Profile parse call failed, degrading to empty fields: %v", err)
		s.metrics.stepError("parse")
		return models.ParsedProfile{}
	}

	var parsed models.ParsedProfile
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		log.Printf("⚠️  [PIPELINE] Profile parse returned malformed JSON (%d bytes), degrading to empty fields: %v", len(raw), err)
		s.metrics.stepError("parse")
		return models.ParsedProfile{}
	}

	return parsed
}

// ResearchCompany builds a short bulleted digest of recent web results about
// a company. An empty or unresolved company name short-circuits to an empty
// digest with no search call. Lookup failures render as a readable error
// string inside the digest so later steps see them without the pipeline
// dying.
func (s *PitchService) ResearchCompany(ctx context.Context, companyName string) string {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" || strings.EqualFold(companyName, models.NotFoundMarker) {
		return ""
	}

	if s.metrics != nil {
		s.metrics.SearchRequests.Inc()
	}

	query := fmt.Sprintf("%s recent innovations or projects in AI, moving to cloud, or cybersecurity", companyName)
	results, err := s.search.Search(ctx, query, DefaultSearchResults)
	if err != nil {
		log.Printf("⚠️  [PIPELINE] Company research lookup failed for %q: %v", companyName, err)
		s.metrics.stepError("search")
		return fmt.Sprintf("Error retrieving data: %v", err)
	}

	if len(results) == 0 {
		return "No relevant recent information found online."
	}

	var digest strings.Builder
	for _, r := range results {
		digest.WriteString(fmt.Sprintf("- **%s**: %s (%s)\n", r.Title, r.Snippet, r.Link))
	}
	return digest.String()
}

// SummarizeResearch condenses the research digest and profile text into an
// 80-120 word company summary. Failures propagate: showing company research
// is a hard dependency for the caller.
func (s *PitchService) SummarizeResearch(ctx context.Context, companyName, digest, profileText string) (string, error) {
	source := fmt.Sprintf(`Company: %s

Web data:
%s

LinkedIn profile text:
%s`, companyName, digest, profileText)

	prompt := fmt.Sprintf(`Summarize this information about %s in 80–120 words, focusing on recent innovation projects or AI/cloud/cybersecurity efforts:

%s`, companyName, source)

	summary, err := s.completions.Complete(ctx, prompt, tempSummary)
	if err != nil {
		s.metrics.stepError("summarize")
		return "", fmt.Errorf("research summarization failed: %w", err)
	}
	return summary, nil
}

// Generate drafts the final message. A nil company context short-circuits to
// the fixed rejection text with zero completion calls. For email output, a
// SUBJECT: marker in the completion splits the result into subject and body.
func (s *PitchService) Generate(ctx context.Context, req models.GenerationRequest, companyContext *models.CompanyContext) (*models.GeneratedMessage, error) {
	if companyContext == nil {
		return &models.GeneratedMessage{Text: RejectionNoContext}, nil
	}

	start := time.Now()

	taskInstruction, ok := models.TaskInstructions[req.OutputType]
	if !ok {
		taskInstruction = models.TaskInstructions[models.OutputEmail]
	}
	if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
		taskInstruction = fmt.Sprintf("%s\n\nSpecific instructions: %s", taskInstruction, instructions)
	}

	profile := req.ProfileText
	if notes := strings.TrimSpace(req.PersonalNotes); notes != "" {
		profile += fmt.Sprintf("\n\nAdditional personal insights:\n%s", notes)
	}

	nameInstruction := ""
	if sender := strings.TrimSpace(req.SenderName); sender != "" && req.OutputType == models.OutputEmail {
		nameInstruction = fmt.Sprintf("\nSign the email with: Best regards,\n%s", sender)
	}

	prompt := fmt.Sprintf(`You are a business development AI assistant.
Your task: %s%s

---
PROSPECT PROFILE:
%s

PROSPECT'S COMPANY RESEARCH:
%s

YOUR COMPANY INFO:
Company: %s
Company Information: %s
---

Generate the requested content following the task instructions above. Pay special attention to any specific instructions provided (tone, length, style, key points, etc.).

IMPORTANT: If this is an email, format your response as:
SUBJECT: [subject line here]

[email body here]

This makes it easy to copy the subject and body separately.`,
		taskInstruction, nameInstruction, profile, req.CompanySummary,
		orDefault(companyContext.CompanyName, "Unknown"),
		orDefault(companyContext.CompanyInfo, "No information provided"))

	text, err := s.completions.Complete(ctx, prompt, tempGenerate)
	if err != nil {
		s.metrics.stepError("generate")
		return nil, fmt.Errorf("message generation failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.GenerationRequests.Inc()
		s.metrics.GenerationLatency.Observe(time.Since(start).Seconds())
	}

	message := &models.GeneratedMessage{Text: text}
	if req.OutputType == models.OutputEmail {
		if subject, body, found := splitEmail(text); found {
			message.Subject = subject
			message.Body = body
		}
	}
	return message, nil
}

// EnhanceContext merges uploaded company material into existing company
// info. Any failure returns the existing info unchanged: enhancement is an
// enrichment, never a gate.
func (s *PitchService) EnhanceContext(ctx context.Context, extracted, existing string) string {
	prompt := fmt.Sprintf(`You are a helpful assistant that extracts and organizes company information from documents.

Existing company information:
%s

New document content:
%s

Please create an enhanced company information summary that combines the existing information with new insights from the documents. Focus on:
- Company strengths and value propositions
- Technology and products
- Market positioning
- Background and achievements
- Location and key facts
- Anything that would be valuable for sales outreach

Make it comprehensive but concise. If there's existing information, enhance it rather than replace it entirely.`, existing, extracted)

	enhanced, err := s.completions.Complete(ctx, prompt, tempEnhance)
	if err != nil {
		log.Printf("⚠️  [PIPELINE] Context enhancement failed, keeping existing info: %v", err)
		return existing
	}
	return enhanced
}

// splitEmail scans line by line for the first SUBJECT: marker. The marker
// line (stripped, trimmed) becomes the subject; the non-blank lines after it
// become the body. No marker means no split.
func splitEmail(text string) (subject, body string, found bool) {
	var bodyLines []string
	for _, line := range strings.Split(text, "\n") {
		if !found {
			if strings.HasPrefix(line, SubjectMarker) {
				subject = strings.TrimSpace(strings.TrimPrefix(line, SubjectMarker))
				found = true
			}
			continue
		}
		if strings.TrimSpace(line) != "" {
			bodyLines = append(bodyLines, line)
		}
	}
	if !found {
		return "", "", false
	}
	return subject, strings.TrimSpace(strings.Join(bodyLines, "\n")), true
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models wrap around JSON output despite instructions.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
