package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/CarouselPipe/internal/carousel"
	"github.com/BTreeMap/CarouselPipe/internal/models"
)

// carouselsHandler generates a carousel from a narrative (POST /carousels).
func (s *Server) carouselsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.carouselsHandler: processing generation request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "carouselsHandler", http.MethodPost)
		return
	}

	var req models.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Server.carouselsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	slides, err := s.pipeline.Generate(r.Context(), req)
	if err != nil {
		var pe *models.PreconditionError
		if errors.As(err, &pe) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(pe.Error()))
			return
		}
		// Service and format failures share one message; details are in the logs and audit log.
		slog.Error("Server.carouselsHandler: generation failed", "outcome", carousel.OutcomeOf(err), "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error(GenerationFailedMessage))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(models.CarouselResult{
		Slides: slides,
		Count:  len(slides),
	}))
}

// exportHandler renders slides as a plain-text block (POST /carousels/export).
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.exportHandler: processing export request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "exportHandler", http.MethodPost)
		return
	}

	var req models.ExportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Server.exportHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if len(req.Slides) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("No slides to export"))
		return
	}

	text := carousel.Serialize(models.NewCarousel(req.Slides))
	slog.Debug("Server.exportHandler: carousel exported", "slides", len(req.Slides), "length", len(text))
	writeTextResponse(w, http.StatusOK, text)
}

// optionsHandler lists the selectable incident and venue categories (GET /options).
func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "optionsHandler", http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.Options{
		IncidentTypes: models.IncidentTypes(),
		VenueTypes:    models.VenueTypes(),
	}))
}

// generationsHandler returns the audit log (GET /generations).
func (s *Server) generationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "generationsHandler", http.MethodGet)
		return
	}
	records, err := s.st.GetGenerations()
	if err != nil {
		slog.Error("Server.generationsHandler: failed to fetch generations", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch generations"))
		return
	}
	if records == nil {
		records = []models.GenerationRecord{}
	}
	slog.Debug("Server.generationsHandler: generations fetched", "count", len(records))
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "healthHandler", http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
