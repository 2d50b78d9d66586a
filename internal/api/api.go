// Package api provides the HTTP server for CarouselPipe.
//
// It exposes endpoints for generating carousels, exporting them as a text block,
// listing the selectable categories, reading the generation audit log and scraping metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/CarouselPipe/internal/carousel"
	"github.com/BTreeMap/CarouselPipe/internal/store"
	"github.com/rs/cors"
)

// Default server configuration
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultMaxBodyBytes bounds request bodies; narratives are short free text.
	DefaultMaxBodyBytes = 1 << 20
)

// GenerationFailedMessage is shown to clients for every service or format failure.
const GenerationFailedMessage = "Failed to generate slides. Please try again."

// Opts holds configuration for the API server.
type Opts struct {
	Addr         string
	CORSOrigins  []string
	CarouselOpts []carousel.Option
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(o *Opts) { o.CORSOrigins = origins }
}

// WithCarouselOptions passes options through to the generation pipeline.
func WithCarouselOptions(opts ...carousel.Option) Option {
	return func(o *Opts) { o.CarouselOpts = append(o.CarouselOpts, opts...) }
}

// Server holds the pipeline, audit store and metrics behind the HTTP handlers.
type Server struct {
	pipeline    *carousel.Pipeline
	st          store.Store
	metrics     *Metrics
	addr        string
	corsOrigins []string
}

// NewServer creates a server whose pipeline dispatches through gen. Every
// invocation is recorded in st and in the server's metrics. gen may be nil, in
// which case generation requests fail with a service error.
func NewServer(gen carousel.Generator, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, CORSOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if st == nil {
		st = store.NewInMemoryStore()
	}

	metrics := NewMetrics()
	obs := &auditObserver{st: st, metrics: metrics}
	pipeOpts := append(append([]carousel.Option{}, cfg.CarouselOpts...), carousel.WithObserver(obs))

	slog.Debug("Server.NewServer: server created", "addr", cfg.Addr, "cors_origins", cfg.CORSOrigins, "generator_set", gen != nil)
	return &Server{
		pipeline:    carousel.NewPipeline(gen, pipeOpts...),
		st:          st,
		metrics:     metrics,
		addr:        cfg.Addr,
		corsOrigins: cfg.CORSOrigins,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/carousels", s.carouselsHandler)
	mux.HandleFunc("/carousels/export", s.exportHandler)
	mux.HandleFunc("/options", s.optionsHandler)
	mux.HandleFunc("/generations", s.generationsHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.Handle("/metrics", s.metrics.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server.Run: listener failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: shutdown failed", "error", err)
		return err
	}
	return nil
}
