package carousel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/CarouselPipe/internal/models"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	reply  string
	err    error
	delay  time.Duration
	calls  int
	prompt string
}

func (m *mockGenerator) Complete(ctx context.Context, instruction string) (string, error) {
	m.calls++
	m.prompt = instruction
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.reply, m.err
}

func (m *mockGenerator) Provider() string { return "mock" }
func (m *mockGenerator) Model() string    { return "mock-model" }

// statusErr mimics a provider error carrying an HTTP status.
type statusErr struct{ code int }

func (e statusErr) Error() string   { return "provider rejected request" }
func (e statusErr) HTTPStatus() int { return e.code }

// recordingObserver collects audit records.
type recordingObserver struct {
	mu      sync.Mutex
	records []models.GenerationRecord
}

func (o *recordingObserver) ObserveGeneration(_ context.Context, rec models.GenerationRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

const fiveSlides = `Sure! Here is your carousel:
[
  {"title": "Trouble Brewed at Two AM Tonight", "body": "A guest turned aggressive near the bar."},
  {"title": "Tension Rose Across the Floor", "body": "He pushed other guests and refused to leave."},
  {"title": "Calm Words Changed Everything Fast", "body": "Our team offered water, listened, and called a taxi."},
  {"title": "Everyone Went Home Safe Tonight", "body": "No injuries, no police, just professional de-escalation."},
  {"title": "Book Your Security Team Today", "body": "Contact Miami Protector for trained venue security."}
]
Let me know if you want changes.`

func TestPipelineGenerate_Success(t *testing.T) {
	gen := &mockGenerator{reply: fiveSlides}
	obs := &recordingObserver{}
	p := NewPipeline(gen, WithObserver(obs))

	c, err := p.Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c) != models.CarouselSize {
		t.Fatalf("expected %d slides, got %d", models.CarouselSize, len(c))
	}
	if c[0].Title != "Trouble Brewed at Two AM Tonight" || c[4].Title != "Book Your Security Team Today" {
		t.Errorf("slide order not preserved: %+v", c)
	}
	for i, s := range c {
		if s.TotalLength != s.TitleLength+s.BodyLength {
			t.Errorf("slide %d: broken total length", i)
		}
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 dispatch, got %d", gen.calls)
	}
	want, _ := BuildPrompt(validRequest())
	if gen.prompt != want.Text {
		t.Error("dispatched prompt differs from built prompt")
	}

	if len(obs.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(obs.records))
	}
	rec := obs.records[0]
	if rec.Outcome != models.OutcomeSuccess || rec.SlideCount != 5 || rec.Provider != "mock" || rec.Model != "mock-model" || rec.ID == "" {
		t.Errorf("unexpected audit record %+v", rec)
	}
}

func TestPipelineGenerate_EmptyNarrativeNeverDispatches(t *testing.T) {
	gen := &mockGenerator{reply: fiveSlides}
	obs := &recordingObserver{}
	p := NewPipeline(gen, WithObserver(obs))

	req := validRequest()
	req.Story = ""
	_, err := p.Generate(context.Background(), req)

	var pe *models.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("expected no dispatch, got %d calls", gen.calls)
	}
	if obs.records[0].Outcome != models.OutcomePreconditionError {
		t.Errorf("unexpected outcome %s", obs.records[0].Outcome)
	}
}

func TestPipelineGenerate_ServiceError(t *testing.T) {
	gen := &mockGenerator{err: statusErr{code: 401}}
	p := NewPipeline(gen)

	c, err := p.Generate(context.Background(), validRequest())
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if se.StatusCode != 401 {
		t.Errorf("expected status 401, got %d", se.StatusCode)
	}
	if c != nil {
		t.Error("expected no carousel on service error")
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		t.Error("service error must not be a format error")
	}
}

func TestPipelineGenerate_NilGenerator(t *testing.T) {
	p := NewPipeline(nil)
	_, err := p.Generate(context.Background(), validRequest())
	if !errors.Is(err, ErrGeneratorNotConfigured) {
		t.Fatalf("expected ErrGeneratorNotConfigured, got %v", err)
	}
	if OutcomeOf(err) != models.OutcomeServiceError {
		t.Errorf("expected service outcome, got %s", OutcomeOf(err))
	}
}

func TestPipelineGenerate_FormatError(t *testing.T) {
	gen := &mockGenerator{reply: "I'm sorry, I cannot produce slides for this."}
	obs := &recordingObserver{}
	p := NewPipeline(gen, WithObserver(obs))

	c, err := p.Generate(context.Background(), validRequest())
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Stage != StageExtract {
		t.Fatalf("expected extract FormatError, got %v", err)
	}
	if c != nil {
		t.Error("expected no carousel on format error")
	}
	if obs.records[0].Outcome != models.OutcomeFormatError || obs.records[0].ErrorDetail == "" {
		t.Errorf("unexpected audit record %+v", obs.records[0])
	}
}

func TestPipelineGenerate_StrictCount(t *testing.T) {
	gen := &mockGenerator{reply: `[{"title":"A","body":"B"}]`}

	if c, err := NewPipeline(gen).Generate(context.Background(), validRequest()); err != nil || len(c) != 1 {
		t.Fatalf("permissive: expected 1 slide, got %d (%v)", len(c), err)
	}

	p := NewPipeline(gen, WithCountPolicy(CountPolicyStrict))
	if p.CountPolicy() != CountPolicyStrict {
		t.Fatalf("expected strict policy, got %s", p.CountPolicy())
	}
	_, err := p.Generate(context.Background(), validRequest())
	if !errors.Is(err, ErrSlideCount) {
		t.Fatalf("strict: expected ErrSlideCount, got %v", err)
	}
}

func TestPipelineGenerate_Timeout(t *testing.T) {
	gen := &mockGenerator{reply: fiveSlides, delay: time.Second}
	p := NewPipeline(gen, WithTimeout(20*time.Millisecond))

	_, err := p.Generate(context.Background(), validRequest())
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPipelineGenerate_CustomBrandReachesPrompt(t *testing.T) {
	gen := &mockGenerator{reply: fiveSlides}
	p := NewPipeline(gen, WithBrand("Harbor Guard"))
	if _, err := p.Generate(context.Background(), validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := NewPromptBuilder("Harbor Guard").Build(validRequest())
	if gen.prompt != want.Text {
		t.Error("expected custom brand prompt to be dispatched")
	}
}

func TestOutcomeOf(t *testing.T) {
	cases := map[models.GenerationOutcome]error{
		models.OutcomeSuccess:           nil,
		models.OutcomePreconditionError: &models.PreconditionError{Missing: []string{"story"}},
		models.OutcomeServiceError:      &ServiceError{Err: errors.New("down")},
		models.OutcomeFormatError:       &FormatError{Stage: StageParse, Err: errors.New("bad")},
	}
	for want, err := range cases {
		if got := OutcomeOf(err); got != want {
			t.Errorf("OutcomeOf(%v) = %s, want %s", err, got, want)
		}
	}
}
