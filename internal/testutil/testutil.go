// Package testutil provides common test helpers for CarouselPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/CarouselPipe/internal/models"
	"github.com/BTreeMap/CarouselPipe/internal/store"
	"github.com/google/uuid"
)

// FiveSlideReply is a well-formed reply wrapped in prose, as models tend to answer.
const FiveSlideReply = `Here are your slides:
[
  {"title": "Calm Words Stop a Fight", "body": "Our team read the room and stepped in before tempers flared."},
  {"title": "Eyes On Every Corner", "body": "Guards tracked the crowd and spotted trouble early."},
  {"title": "Respect Wins Every Time", "body": "We talked the guest down without force."},
  {"title": "The Night Kept Going", "body": "Music played on and nobody left early."},
  {"title": "Book Miami Protector Today", "body": "Trained professionals for your venue. Call now."}
]
Let me know if you need changes.`

// FakeGenerator is a scripted generation backend. It is safe for concurrent use.
type FakeGenerator struct {
	Reply string
	Err   error
	Delay time.Duration

	mu          sync.Mutex
	calls       int
	instruction string
}

// Complete records the call and returns the scripted reply or error. A Delay
// longer than the context deadline yields the context error.
func (f *FakeGenerator) Complete(ctx context.Context, instruction string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.instruction = instruction
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.Reply, f.Err
}

func (f *FakeGenerator) Provider() string { return "fake" }
func (f *FakeGenerator) Model() string    { return "fake-model" }

// Calls returns how many times Complete ran.
func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastInstruction returns the most recent instruction text.
func (f *FakeGenerator) LastInstruction() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instruction
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t testing.TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// Envelope is the decoded API response with its result left raw.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// DecodeEnvelope decodes the response envelope and, when result is non-nil, its result payload.
func DecodeEnvelope(t testing.TB, rr *httptest.ResponseRecorder, result interface{}) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode JSON response %q: %v", rr.Body.String(), err)
	}
	if result != nil && len(env.Result) > 0 {
		MustUnmarshalJSON(t, env.Result, result)
	}
	return env
}

// CreateHTTPRequest creates an HTTP request with an optional body. A string or
// []byte body is sent as is; anything else is marshaled to JSON.
func CreateHTTPRequest(t testing.TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody []byte
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = []byte(b)
	case []byte:
		reqBody = b
	default:
		reqBody = MustMarshalJSON(t, b)
	}
	return httptest.NewRequest(method, url, bytes.NewReader(reqBody))
}

// Serve runs req through h and returns the recorder.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// AssertGenerationCount validates the number of audit records in st.
func AssertGenerationCount(t testing.TB, st store.Store, expected int, context string) []models.GenerationRecord {
	t.Helper()
	records, err := st.GetGenerations()
	if err != nil {
		t.Fatalf("%s: failed to get generations: %v", context, err)
	}
	if len(records) != expected {
		t.Errorf("%s: expected %d generations, got %d", context, expected, len(records))
	}
	return records
}

// SeedGenerations adds one audit record per outcome to st.
func SeedGenerations(t testing.TB, st store.Store, outcomes ...models.GenerationOutcome) {
	t.Helper()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, outcome := range outcomes {
		rec := models.GenerationRecord{
			ID:           uuid.NewString(),
			IncidentType: models.IncidentCrowdManagement,
			VenueType:    models.VenueEvent,
			Provider:     "fake",
			Model:        "fake-model",
			Outcome:      outcome,
			DurationMS:   int64(100 * (i + 1)),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if outcome == models.OutcomeSuccess {
			rec.SlideCount = models.CarouselSize
		}
		if err := st.AddGeneration(rec); err != nil {
			t.Fatalf("failed to seed generation: %v", err)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t testing.TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t testing.TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
