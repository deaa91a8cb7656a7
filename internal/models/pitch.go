package models

// OutputType selects which task instruction drives final message generation.
type OutputType string

const (
	OutputEmail       OutputType = "email"
	OutputDirectMsg   OutputType = "direct_message"
	OutputInternalFit OutputType = "internal_fit"
	OutputVoicemail   OutputType = "voicemail"
	OutputMeetingPrep OutputType = "meeting_prep"
)

// TaskInstructions maps each output type to its fixed generation instruction.
// Adding a variant means adding a row here, not touching the pipeline.
var TaskInstructions = map[OutputType]string{
	OutputEmail: "Write a professional email outreach message (under 150 words) in a friendly, professional tone. " +
		"Include a clear subject line. Be specific with addressing the prospect. " +
		"Be sure to lean on their resume more than external data but consider both.",
	OutputDirectMsg: "Write a LinkedIn direct message (under 100 words) in a conversational, professional tone. " +
		"Keep it concise and personalized. Focus on building connection and sparking interest. " +
		"Be sure to reference their background and make it feel genuine, not salesy.",
	OutputInternalFit: "In 150 words or fewer, state how this organization is a strong fit for the product — " +
		"describe the best use case or alignment with their innovation, goals, or challenges. " +
		"Do not write a message to them directly; this is for internal BD insight.",
	OutputVoicemail: "Write a one-sentence cold-call voicemail script that's direct, conversational, and " +
		"leaves a hook for the prospect to call back, max 35 words.",
	OutputMeetingPrep: "Write a bullet-pointed internal briefing of 150 words or fewer (2–6 bullets). " +
		"Explain how our product might be introduced and discussed in a longer meeting with the prospect, and some topics to expand upon during a meeting. " +
		"Emphasize alignment with their personal background and company priorities. Use a neutral internal tone.",
}

// Valid reports whether the output type is one of the known variants.
func (o OutputType) Valid() bool {
	_, ok := TaskInstructions[o]
	return ok
}

// ParsedProfile holds the structured fields extracted from a profile
// document. Empty fields mean the extraction itself failed; the literal
// "Not found" means the extraction ran but could not resolve the field.
type ParsedProfile struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// NotFoundMarker is what the extraction step returns for fields it could not
// resolve. Comparisons against it are case-insensitive.
const NotFoundMarker = "Not found"

// GenerationRequest is everything the pipeline needs to draft one message.
// It is transient and never persisted.
type GenerationRequest struct {
	ProfileText    string     `json:"profile_text"`
	PersonalNotes  string     `json:"personal_notes,omitempty"`
	CompanySummary string     `json:"company_summary,omitempty"`
	ContextName    string     `json:"context_name"`
	OutputType     OutputType `json:"output_type"`
	Instructions   string     `json:"instructions,omitempty"`
	SenderName     string     `json:"sender_name,omitempty"`
}

// GeneratedMessage is the pipeline's terminal output. Subject is only set
// for email output whose completion carried a SUBJECT: marker line.
type GeneratedMessage struct {
	Text    string `json:"text"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// SearchResult is one hit from the web search capability.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}
