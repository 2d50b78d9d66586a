// Package genai provides the remote text-generation client used by the carousel pipeline.
//
// Two providers are supported: Anthropic Messages (the default) and OpenAI Chat Completions.
// Each call is a single user turn; the first text segment of the reply is returned verbatim.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Provider names a generation backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Default configuration constants
const (
	// DefaultAnthropicModel is the model requested from Anthropic when none is configured.
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
	// DefaultOpenAIModel is the model requested from OpenAI when none is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultMaxTokens bounds the size of each reply.
	DefaultMaxTokens = 2000
	// DefaultTimeout bounds each request at the transport level.
	DefaultTimeout = 60 * time.Second
)

// Error variables for better error handling and testability
var (
	ErrMissingAPIKey       = errors.New("generation service API key not configured")
	ErrNoTextContent       = errors.New("reply contained no text content")
	ErrUnsupportedProvider = errors.New("unsupported generation provider")
)

// Opts holds configuration options for the generation client.
type Opts struct {
	Provider    Provider
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature *float64
	BaseURL     string
	Timeout     time.Duration
	DebugMode   bool
	StateDir    string
}

// Option defines a function for configuring the generation client.
type Option func(*Opts)

// WithProvider selects the backend ("anthropic" or "openai").
func WithProvider(p string) Option {
	return func(o *Opts) { o.Provider = Provider(strings.ToLower(strings.TrimSpace(p))) }
}

// WithAPIKey sets the provider credential.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithMaxTokens sets the maximum reply size.
func WithMaxTokens(n int) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// WithTemperature sets the sampling temperature. Unset means the provider default.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = &t }
}

// WithBaseURL points the client at a compatible gateway.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithTimeout sets the per-request transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithDebugMode enables writing every request/response pair to <stateDir>/debug.
func WithDebugMode(enabled bool) Option {
	return func(o *Opts) { o.DebugMode = enabled }
}

// WithStateDir sets the directory used for debug captures.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// Client sends generation instructions to the configured provider.
type Client struct {
	provider    Provider
	apiKey      string
	model       string
	maxTokens   int64
	temperature *float64
	debugMode   bool
	stateDir    string

	messages messageService // anthropic
	chat     chatService    // openai
}

// NewClient initializes a generation client. When no API key option is given, the
// provider's environment variable (ANTHROPIC_API_KEY or OPENAI_API_KEY) is used.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Provider:  ProviderAnthropic,
		MaxTokens: DefaultMaxTokens,
		Timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}

	apiKey := cfg.APIKey
	switch cfg.Provider {
	case ProviderAnthropic:
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = DefaultAnthropicModel
		}
	case ProviderOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
	default:
		slog.Error("genai.NewClient: unsupported provider", "provider", cfg.Provider)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
	if apiKey == "" {
		slog.Error("genai.NewClient: API key not set", "provider", cfg.Provider)
		return nil, ErrMissingAPIKey
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	c := &Client{
		provider:    cfg.Provider,
		apiKey:      apiKey,
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		debugMode:   cfg.DebugMode,
		stateDir:    cfg.StateDir,
	}
	switch cfg.Provider {
	case ProviderAnthropic:
		c.messages = newAnthropicMessages(apiKey, cfg.BaseURL, cfg.Timeout)
	case ProviderOpenAI:
		c.chat = newOpenAIChat(apiKey, cfg.BaseURL, cfg.Timeout)
	}

	slog.Debug("genai.NewClient: client created", "provider", c.provider, "model", c.model, "max_tokens", c.maxTokens, "debug", c.debugMode)
	return c, nil
}

// Provider returns the configured backend name.
func (c *Client) Provider() string { return string(c.provider) }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends instruction as a single user turn and returns the reply's first text segment.
// A missing credential fails before any network call.
func (c *Client) Complete(ctx context.Context, instruction string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	start := time.Now()
	var (
		reply string
		err   error
	)
	switch c.provider {
	case ProviderAnthropic:
		reply, err = c.completeAnthropic(ctx, instruction)
	case ProviderOpenAI:
		reply, err = c.completeOpenAI(ctx, instruction)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedProvider, c.provider)
	}

	if err != nil {
		slog.Error("Client.Complete: generation failed", "provider", c.provider, "model", c.model, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", err
	}
	slog.Debug("Client.Complete: generation succeeded", "provider", c.provider, "model", c.model, "duration_ms", time.Since(start).Milliseconds(), "reply_len", len(reply))
	return reply, nil
}
