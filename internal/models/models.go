// Package models defines the core data structures for CarouselPipe.
//
// It includes the generation request supplied by the caller, the slide and carousel
// records produced by the pipeline, and the audit records kept for operators.
package models

import (
	"strings"
)

// IncidentType names the kind of security incident a carousel is about.
type IncidentType string

const (
	// IncidentDeescalation covers calming an aggressive or intoxicated guest.
	IncidentDeescalation IncidentType = "De-escalation"
	// IncidentVIPProtection covers close protection of a high-profile guest.
	IncidentVIPProtection IncidentType = "VIP Protection"
	// IncidentCrowdManagement covers queues, capacity and crowd flow.
	IncidentCrowdManagement IncidentType = "Crowd Management"
	// IncidentEmergencyResponse covers medical, fire and evacuation events.
	IncidentEmergencyResponse IncidentType = "Emergency Response"
)

// VenueType names the kind of venue where the incident happened.
type VenueType string

const (
	VenueNightclub  VenueType = "Nightclub"
	VenueRestaurant VenueType = "Restaurant"
	VenueHotel      VenueType = "Hotel"
	VenueEvent      VenueType = "Event"
	VenueBeachClub  VenueType = "Beach Club"
)

// IncidentTypes lists the supported incident types in display order.
func IncidentTypes() []IncidentType {
	return []IncidentType{
		IncidentDeescalation,
		IncidentVIPProtection,
		IncidentCrowdManagement,
		IncidentEmergencyResponse,
	}
}

// VenueTypes lists the supported venue types in display order.
func VenueTypes() []VenueType {
	return []VenueType{
		VenueNightclub,
		VenueRestaurant,
		VenueHotel,
		VenueEvent,
		VenueBeachClub,
	}
}

// IsValidIncidentType checks if the given incident type is supported.
func IsValidIncidentType(it IncidentType) bool {
	switch it {
	case IncidentDeescalation, IncidentVIPProtection, IncidentCrowdManagement, IncidentEmergencyResponse:
		return true
	default:
		return false
	}
}

// IsValidVenueType checks if the given venue type is supported.
func IsValidVenueType(vt VenueType) bool {
	switch vt {
	case VenueNightclub, VenueRestaurant, VenueHotel, VenueEvent, VenueBeachClub:
		return true
	default:
		return false
	}
}

// GenerationRequest carries the three user-supplied fields for one generation.
type GenerationRequest struct {
	IncidentType IncidentType `json:"incident_type"`
	VenueType    VenueType    `json:"venue_type"`
	Story        string       `json:"story"`
}

// Validate reports every missing or unsupported field as a single PreconditionError.
func (r GenerationRequest) Validate() error {
	var missing, invalid []string

	if strings.TrimSpace(string(r.IncidentType)) == "" {
		missing = append(missing, FieldIncidentType)
	} else if !IsValidIncidentType(r.IncidentType) {
		invalid = append(invalid, FieldIncidentType)
	}

	if strings.TrimSpace(string(r.VenueType)) == "" {
		missing = append(missing, FieldVenueType)
	} else if !IsValidVenueType(r.VenueType) {
		invalid = append(invalid, FieldVenueType)
	}

	if strings.TrimSpace(r.Story) == "" {
		missing = append(missing, FieldStory)
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}
	return &PreconditionError{Missing: missing, Invalid: invalid}
}
