package models

import (
	"errors"
	"strings"
)

// Field names used in precondition reports. They match the JSON names of GenerationRequest.
const (
	FieldIncidentType = "incident_type"
	FieldVenueType    = "venue_type"
	FieldStory        = "story"
)

// ErrPrecondition is matched by every PreconditionError through errors.Is.
var ErrPrecondition = errors.New("precondition failed")

// PreconditionError reports input fields that were empty or outside their enumerated set.
// It is raised before any network activity.
type PreconditionError struct {
	Missing []string
	Invalid []string
}

func (e *PreconditionError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "unsupported values for: "+strings.Join(e.Invalid, ", "))
	}
	if len(parts) == 0 {
		return ErrPrecondition.Error()
	}
	return strings.Join(parts, "; ")
}

// Is lets callers match any PreconditionError against ErrPrecondition.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
