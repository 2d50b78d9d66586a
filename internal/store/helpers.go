package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/CarouselPipe/internal/models"
)

const generationColumns = `id, incident_type, venue_type, provider, model, outcome, slide_count, duration_ms, error_detail, created_at`

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// generationArgs returns r's column values in generationColumns order.
func generationArgs(r models.GenerationRecord) []interface{} {
	return []interface{}{
		r.ID, string(r.IncidentType), string(r.VenueType),
		nilIfEmpty(r.Provider), nilIfEmpty(r.Model), string(r.Outcome),
		r.SlideCount, r.DurationMS, nilIfEmpty(r.ErrorDetail), r.CreatedAt.UTC(),
	}
}

// scanGenerations reads every row of a generationColumns query.
func scanGenerations(rows *sql.Rows) ([]models.GenerationRecord, error) {
	defer rows.Close()

	var out []models.GenerationRecord
	for rows.Next() {
		var r models.GenerationRecord
		var incident, venue, outcome string
		var provider, model, detail sql.NullString
		err := rows.Scan(
			&r.ID, &incident, &venue, &provider, &model, &outcome,
			&r.SlideCount, &r.DurationMS, &detail, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan generation failed: %w", err)
		}
		r.IncidentType = models.IncidentType(incident)
		r.VenueType = models.VenueType(venue)
		r.Outcome = models.GenerationOutcome(outcome)
		r.Provider = provider.String
		r.Model = model.String
		r.ErrorDetail = detail.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation rows: %w", err)
	}
	return out, nil
}
