package carousel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BTreeMap/CarouselPipe/internal/models"
	"github.com/google/uuid"
)

// DefaultDispatchTimeout bounds one call to the generation service.
const DefaultDispatchTimeout = 60 * time.Second

// Generator sends one instruction to a text-generation service and returns the raw reply text.
type Generator interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// Describer is implemented by generators that can name their provider and model for audit records.
type Describer interface {
	Provider() string
	Model() string
}

// Observer receives the audit record of every invocation, successful or not.
type Observer interface {
	ObserveGeneration(ctx context.Context, rec models.GenerationRecord)
}

// Opts holds configuration for a Pipeline.
type Opts struct {
	Brand       string
	CountPolicy CountPolicy
	Timeout     time.Duration
	Observer    Observer
}

// Option configures a Pipeline.
type Option func(*Opts)

// WithBrand sets the company named in the call-to-action slide.
func WithBrand(brand string) Option {
	return func(o *Opts) { o.Brand = brand }
}

// WithCountPolicy sets how slide counts other than models.CarouselSize are handled.
func WithCountPolicy(policy CountPolicy) Option {
	return func(o *Opts) { o.CountPolicy = policy }
}

// WithTimeout bounds each dispatch. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithObserver registers an observer for audit records.
func WithObserver(obs Observer) Option {
	return func(o *Opts) { o.Observer = obs }
}

// Pipeline dispatches generation requests and reduces replies to carousels.
// It keeps no per-invocation state and is safe for concurrent use.
type Pipeline struct {
	gen      Generator
	builder  *PromptBuilder
	policy   CountPolicy
	timeout  time.Duration
	observer Observer
}

// NewPipeline creates a pipeline around gen. A nil gen is allowed; every
// invocation then fails with a ServiceError wrapping ErrGeneratorNotConfigured.
func NewPipeline(gen Generator, opts ...Option) *Pipeline {
	cfg := Opts{
		CountPolicy: CountPolicyPermissive,
		Timeout:     DefaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CountPolicy == "" {
		cfg.CountPolicy = CountPolicyPermissive
	}
	slog.Debug("NewPipeline: pipeline created", "generator_set", gen != nil, "count_policy", cfg.CountPolicy, "timeout", cfg.Timeout)
	return &Pipeline{
		gen:      gen,
		builder:  NewPromptBuilder(cfg.Brand),
		policy:   cfg.CountPolicy,
		timeout:  cfg.Timeout,
		observer: cfg.Observer,
	}
}

// CountPolicy returns the configured count policy.
func (p *Pipeline) CountPolicy() CountPolicy {
	return p.policy
}

// Generate builds the instruction for req, dispatches it, and returns the parsed carousel.
// It fails with a *models.PreconditionError, *ServiceError or *FormatError; none of them
// is retried and no partial carousel is returned.
func (p *Pipeline) Generate(ctx context.Context, req models.GenerationRequest) (models.Carousel, error) {
	start := time.Now()
	rec := models.GenerationRecord{
		ID:           uuid.NewString(),
		IncidentType: req.IncidentType,
		VenueType:    req.VenueType,
		CreatedAt:    start.UTC(),
	}
	if d, ok := p.gen.(Describer); ok {
		rec.Provider = d.Provider()
		rec.Model = d.Model()
	}

	carousel, err := p.generate(ctx, rec.ID, req)

	rec.DurationMS = time.Since(start).Milliseconds()
	rec.Outcome = OutcomeOf(err)
	rec.SlideCount = len(carousel)
	if err != nil {
		rec.ErrorDetail = err.Error()
	}
	if p.observer != nil {
		p.observer.ObserveGeneration(ctx, rec)
	}
	return carousel, err
}

func (p *Pipeline) generate(ctx context.Context, id string, req models.GenerationRequest) (models.Carousel, error) {
	prompt, err := p.builder.Build(req)
	if err != nil {
		slog.Warn("Pipeline.Generate: request rejected before dispatch", "id", id, "error", err)
		return nil, err
	}

	if p.gen == nil {
		slog.Error("Pipeline.Generate: generation client not configured", "id", id)
		return nil, newServiceError(ErrGeneratorNotConfigured)
	}

	dispatchCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	slog.Debug("Pipeline.Generate: dispatching", "id", id, "incident_type", req.IncidentType, "venue_type", req.VenueType, "prompt_len", len(prompt.Text))
	raw, err := p.gen.Complete(dispatchCtx, prompt.Text)
	if err != nil {
		se := newServiceError(err)
		slog.Error("Pipeline.Generate: dispatch failed", "id", id, "status", se.StatusCode, "error", err)
		return nil, se
	}

	carousel, err := ParseReply(raw, p.policy)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			slog.Error("Pipeline.Generate: reply could not be understood", "id", id, "stage", fe.Stage, "reply_len", len(raw), "error", fe.Err)
		}
		return nil, err
	}

	if len(carousel) != models.CarouselSize {
		slog.Warn("Pipeline.Generate: slide count differs from requested", "id", id, "count", len(carousel), "requested", models.CarouselSize)
	}
	slog.Info("Pipeline.Generate: carousel generated", "id", id, "slides", len(carousel), "total_length", carousel.TotalLength())
	return carousel, nil
}

// OutcomeOf classifies an error returned by Generate.
func OutcomeOf(err error) models.GenerationOutcome {
	var (
		pe *models.PreconditionError
		se *ServiceError
		fe *FormatError
	)
	switch {
	case err == nil:
		return models.OutcomeSuccess
	case errors.As(err, &pe):
		return models.OutcomePreconditionError
	case errors.As(err, &fe):
		return models.OutcomeFormatError
	case errors.As(err, &se):
		return models.OutcomeServiceError
	default:
		return models.OutcomeServiceError
	}
}
