package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BTreeMap/CarouselPipe/internal/carousel"
	"github.com/BTreeMap/CarouselPipe/internal/models"
	"github.com/BTreeMap/CarouselPipe/internal/store"
	"github.com/BTreeMap/CarouselPipe/internal/testutil"
)

type failingStore struct {
	store.InMemoryStore
}

func (f *failingStore) AddGeneration(models.GenerationRecord) error {
	return errors.New("disk full")
}

func (f *failingStore) GetGenerations() ([]models.GenerationRecord, error) {
	return nil, errors.New("disk full")
}

func newTestServer(gen carousel.Generator) (*Server, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	return NewServer(gen, st), st
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var payload interface{}
	if body != "" {
		payload = body
	}
	return testutil.Serve(h, testutil.CreateHTTPRequest(t, method, path, payload))
}

const validBody = `{"incident_type":"De-escalation","venue_type":"Nightclub","story":"A guest got loud at the bar and our team calmed things down."}`

func TestCarouselsHandler_Success(t *testing.T) {
	gen := &testutil.FakeGenerator{Reply: testutil.FiveSlideReply}
	srv, st := newTestServer(gen)

	rr := doRequest(t, srv.Handler(), http.MethodPost, "/carousels", validBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result models.CarouselResult
	resp := testutil.DecodeEnvelope(t, rr, &result)
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if result.Count != 5 || len(result.Slides) != 5 {
		t.Fatalf("expected 5 slides, got count=%d len=%d", result.Count, len(result.Slides))
	}
	if result.Slides[0].Title != "Calm Words Stop a Fight" || result.Slides[4].Title != "Book Miami Protector Today" {
		t.Errorf("slides out of order: %+v", result.Slides)
	}
	if result.Slides[0].TitleLength != len("Calm Words Stop a Fight") {
		t.Errorf("unexpected title length %d", result.Slides[0].TitleLength)
	}

	records, _ := st.GetGenerations()
	if len(records) != 1 || records[0].Outcome != models.OutcomeSuccess || records[0].SlideCount != 5 {
		t.Errorf("expected one success record, got %+v", records)
	}
	if records[0].Provider != "fake" || records[0].Model != "fake-model" {
		t.Errorf("provider/model not recorded: %+v", records[0])
	}
}

func TestCarouselsHandler_Precondition(t *testing.T) {
	gen := &testutil.FakeGenerator{Reply: testutil.FiveSlideReply}
	srv, st := newTestServer(gen)

	rr := doRequest(t, srv.Handler(), http.MethodPost, "/carousels", `{"incident_type":"De-escalation","venue_type":"Nightclub","story":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	resp := testutil.DecodeEnvelope(t, rr, nil)
	if !strings.Contains(resp.Message, models.FieldStory) {
		t.Errorf("expected message to name the story field, got %q", resp.Message)
	}
	if gen.Calls() != 0 {
		t.Errorf("expected no dispatch, got %d calls", gen.Calls())
	}
	records, _ := st.GetGenerations()
	if len(records) != 1 || records[0].Outcome != models.OutcomePreconditionError {
		t.Errorf("expected one precondition record, got %+v", records)
	}
}

func TestCarouselsHandler_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(&testutil.FakeGenerator{})
	rr := doRequest(t, srv.Handler(), http.MethodPost, "/carousels", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestCarouselsHandler_FailuresShareMessage(t *testing.T) {
	tests := map[string]struct {
		gen     carousel.Generator
		outcome models.GenerationOutcome
	}{
		"service error":  {gen: &testutil.FakeGenerator{Err: errors.New("connection reset")}, outcome: models.OutcomeServiceError},
		"no generator":   {gen: nil, outcome: models.OutcomeServiceError},
		"no array":       {gen: &testutil.FakeGenerator{Reply: "I cannot help with that."}, outcome: models.OutcomeFormatError},
		"malformed json": {gen: &testutil.FakeGenerator{Reply: `[{"title": "x", "body": }]`}, outcome: models.OutcomeFormatError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv, st := newTestServer(tt.gen)
			rr := doRequest(t, srv.Handler(), http.MethodPost, "/carousels", validBody)
			if rr.Code != http.StatusBadGateway {
				t.Fatalf("expected 502, got %d", rr.Code)
			}
			resp := testutil.DecodeEnvelope(t, rr, nil)
			if resp.Message != GenerationFailedMessage {
				t.Errorf("expected generic message, got %q", resp.Message)
			}
			records, _ := st.GetGenerations()
			if len(records) != 1 || records[0].Outcome != tt.outcome {
				t.Errorf("expected outcome %s, got %+v", tt.outcome, records)
			}
		})
	}
}

func TestCarouselsHandler_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(&testutil.FakeGenerator{})
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/carousels", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", rr.Header().Get("Allow"))
	}
}

func TestExportHandler(t *testing.T) {
	srv, _ := newTestServer(nil)
	body := `{"slides":[{"title":"T1","body":"B1"},{"title":"T2","body":"B2"}]}`
	rr := doRequest(t, srv.Handler(), http.MethodPost, "/carousels/export", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %q", ct)
	}
	want := "SLIDE 1:\nT1\n\nB1\n\n---\n\nSLIDE 2:\nT2\n\nB2\n\n---\n"
	if rr.Body.String() != want {
		t.Errorf("unexpected export:\n%q\nwant\n%q", rr.Body.String(), want)
	}
}

func TestExportHandler_NoSlides(t *testing.T) {
	srv, _ := newTestServer(nil)
	for _, body := range []string{`{"slides":[]}`, `{}`, `oops`} {
		rr := doRequest(t, srv.Handler(), http.MethodPost, "/carousels/export", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestOptionsHandler(t *testing.T) {
	srv, _ := newTestServer(nil)
	rr := doRequest(t, srv.Handler(), http.MethodGet, "/options", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var opts models.Options
	testutil.DecodeEnvelope(t, rr, &opts)
	if len(opts.IncidentTypes) != 4 || len(opts.VenueTypes) != 5 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestGenerationsHandler(t *testing.T) {
	srv, _ := newTestServer(&testutil.FakeGenerator{Reply: testutil.FiveSlideReply})
	h := srv.Handler()

	rr := doRequest(t, h, http.MethodGet, "/generations", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"result":[]`) {
		t.Fatalf("expected empty list, got %d %s", rr.Code, rr.Body.String())
	}

	doRequest(t, h, http.MethodPost, "/carousels", validBody)
	rr = doRequest(t, h, http.MethodGet, "/generations", "")
	var records []models.GenerationRecord
	testutil.DecodeEnvelope(t, rr, &records)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if strings.Contains(rr.Body.String(), "A guest got loud") {
		t.Error("audit log must not contain the narrative")
	}
}

func TestGenerationsHandler_Seeded(t *testing.T) {
	srv, st := newTestServer(nil)
	testutil.SeedGenerations(t, st, models.OutcomeSuccess, models.OutcomeServiceError, models.OutcomeFormatError)

	rr := doRequest(t, srv.Handler(), http.MethodGet, "/generations", "")
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "GET /generations")
	var records []models.GenerationRecord
	testutil.DecodeEnvelope(t, rr, &records)
	if len(records) != 3 || records[1].Outcome != models.OutcomeServiceError {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestGenerationsHandler_StoreFailure(t *testing.T) {
	srv := NewServer(&testutil.FakeGenerator{Reply: testutil.FiveSlideReply}, &failingStore{})
	h := srv.Handler()

	// A failed audit write does not affect the generation response.
	rr := doRequest(t, h, http.MethodPost, "/carousels", validBody)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 despite store failure, got %d", rr.Code)
	}
	rr = doRequest(t, h, http.MethodGet, "/generations", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(&testutil.FakeGenerator{Reply: testutil.FiveSlideReply})
	h := srv.Handler()

	doRequest(t, h, http.MethodPost, "/carousels", validBody)
	doRequest(t, h, http.MethodPost, "/carousels", `{}`)

	rr := doRequest(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`carouselpipe_generations_total{outcome="success"} 1`,
		`carouselpipe_generations_total{outcome="precondition_error"} 1`,
		`carouselpipe_slides_generated_total 5`,
		`carouselpipe_generation_duration_seconds_count{outcome="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv, _ := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS header, got %q", got)
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	srv := NewServer(nil, nil, WithCORSOrigins([]string{"https://studio.example.com"}))
	req := httptest.NewRequest(http.MethodGet, "/options", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for disallowed origin, got %q", got)
	}
}

func TestServerRun_Shutdown(t *testing.T) {
	srv := NewServer(nil, nil, WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
