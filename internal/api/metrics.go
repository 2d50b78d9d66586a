package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/CarouselPipe/internal/models"
	"github.com/BTreeMap/CarouselPipe/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the generation collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	slides      prometheus.Counter
}

// NewMetrics creates and registers the generation collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carouselpipe_generations_total",
			Help: "Generation invocations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carouselpipe_generation_duration_seconds",
			Help:    "Wall time of generation invocations by outcome.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		slides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carouselpipe_slides_generated_total",
			Help: "Slides returned to clients.",
		}),
	}
	m.registry.MustRegister(
		m.generations,
		m.duration,
		m.slides,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one invocation.
func (m *Metrics) Observe(rec models.GenerationRecord) {
	outcome := string(rec.Outcome)
	m.generations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(float64(rec.DurationMS) / 1000)
	if rec.Outcome == models.OutcomeSuccess {
		m.slides.Add(float64(rec.SlideCount))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// auditObserver writes every generation record to the store and the metrics.
type auditObserver struct {
	st      store.Store
	metrics *Metrics
}

func (o *auditObserver) ObserveGeneration(ctx context.Context, rec models.GenerationRecord) {
	o.metrics.Observe(rec)
	if err := o.st.AddGeneration(rec); err != nil {
		// The caller still gets its carousel; only the audit row is lost.
		slog.Error("auditObserver.ObserveGeneration: failed to store generation record", "error", err, "id", rec.ID)
	}
}
