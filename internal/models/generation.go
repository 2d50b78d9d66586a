package models

import "time"

// GenerationOutcome classifies how a generation invocation ended.
type GenerationOutcome string

const (
	// OutcomeSuccess indicates a carousel was produced.
	OutcomeSuccess GenerationOutcome = "success"
	// OutcomePreconditionError indicates the request was rejected before dispatch.
	OutcomePreconditionError GenerationOutcome = "precondition_error"
	// OutcomeServiceError indicates the remote service call did not complete successfully.
	OutcomeServiceError GenerationOutcome = "service_error"
	// OutcomeFormatError indicates the reply could not be reduced to slides.
	OutcomeFormatError GenerationOutcome = "format_error"
)

// GenerationRecord is the audit entry for one invocation. It never holds the
// narrative or slide text.
type GenerationRecord struct {
	ID           string            `json:"id"`
	IncidentType IncidentType      `json:"incident_type"`
	VenueType    VenueType         `json:"venue_type"`
	Provider     string            `json:"provider,omitempty"`
	Model        string            `json:"model,omitempty"`
	Outcome      GenerationOutcome `json:"outcome"`
	SlideCount   int               `json:"slide_count"`
	DurationMS   int64             `json:"duration_ms"`
	ErrorDetail  string            `json:"error_detail,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
