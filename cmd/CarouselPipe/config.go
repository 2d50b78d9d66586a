package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/CarouselPipe/internal/api"
	"github.com/BTreeMap/CarouselPipe/internal/carousel"
	"github.com/BTreeMap/CarouselPipe/internal/genai"
	"github.com/BTreeMap/CarouselPipe/internal/store"
	"github.com/BTreeMap/CarouselPipe/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CarouselPipe state data
	DefaultStateDir = "/var/lib/carouselpipe"
	// DefaultDBFileName is the default SQLite audit database filename
	DefaultDBFileName = "carouselpipe.db"
)

// Config holds environment configuration
type Config struct {
	StateDir     string
	DatabaseURL  string
	Provider     string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	Debug        bool
	AnthropicKey string
	OpenAIKey    string
	APIAddr      string
	CORSOrigins  []string
	CountPolicy  string
	Brand        string
	LogLevel     string
	LogFormat    string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	provider    *string
	model       *string
	apiKey      *string
	maxTokens   *int
	timeout     *time.Duration
	debug       *bool
	apiAddr     *string
	countPolicy *string
	brand       *string

	// One-shot mode
	generate  *bool
	incident  *string
	venue     *string
	story     *string
	storyFile *string
}

// loadEnvironmentConfig loads configuration from environment variables and the .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:     util.GetEnv("CAROUSELPIPE_STATE_DIR", DefaultStateDir),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Provider:     util.GetEnv("GENAI_PROVIDER", string(genai.ProviderAnthropic)),
		Model:        os.Getenv("GENAI_MODEL"),
		MaxTokens:    util.ParseIntEnv("GENAI_MAX_TOKENS", genai.DefaultMaxTokens),
		Timeout:      util.ParseDurationEnv("GENAI_TIMEOUT", carousel.DefaultDispatchTimeout),
		Debug:        util.ParseBoolEnv("GENAI_DEBUG", false),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		APIAddr:      util.GetEnv("API_ADDR", api.DefaultAddr),
		CORSOrigins:  util.SplitList(util.GetEnv("CORS_ORIGINS", "*")),
		CountPolicy:  util.GetEnv("SLIDE_COUNT_POLICY", string(carousel.CountPolicyPermissive)),
		Brand:        util.GetEnv("BRAND_NAME", carousel.DefaultBrand),
		LogLevel:     util.GetEnv("LOG_LEVEL", "debug"),
		LogFormat:    util.GetEnv("LOG_FORMAT", "text"),
	}

	// Without DATABASE_URL the audit log lives in SQLite under the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
	}

	return config
}

// parseCommandLineFlags defines flags on fs with environment defaults and parses args.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:    fs.String("state-dir", config.StateDir, "state directory for CarouselPipe data (overrides $CAROUSELPIPE_STATE_DIR)"),
		dbDSN:       fs.String("db-dsn", config.DatabaseURL, "audit log database DSN, SQLite path or Postgres URL (overrides $DATABASE_URL)"),
		provider:    fs.String("provider", config.Provider, "generation provider: anthropic or openai (overrides $GENAI_PROVIDER)"),
		model:       fs.String("model", config.Model, "model identifier (overrides $GENAI_MODEL)"),
		apiKey:      fs.String("api-key", "", "provider API key (overrides $ANTHROPIC_API_KEY / $OPENAI_API_KEY)"),
		maxTokens:   fs.Int("max-tokens", config.MaxTokens, "maximum reply tokens (overrides $GENAI_MAX_TOKENS)"),
		timeout:     fs.Duration("timeout", config.Timeout, "bound on each generation call (overrides $GENAI_TIMEOUT)"),
		debug:       fs.Bool("debug", config.Debug, "write provider requests and replies to <state-dir>/debug (overrides $GENAI_DEBUG)"),
		apiAddr:     fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		countPolicy: fs.String("count-policy", config.CountPolicy, "slide count policy: permissive or strict (overrides $SLIDE_COUNT_POLICY)"),
		brand:       fs.String("brand", config.Brand, "company named in the call-to-action slide (overrides $BRAND_NAME)"),

		generate:  fs.Bool("generate", false, "generate one carousel, print the export block and exit"),
		incident:  fs.String("incident", "", "incident type for -generate"),
		venue:     fs.String("venue", "", "venue type for -generate"),
		story:     fs.String("story", "", "incident narrative for -generate"),
		storyFile: fs.String("story-file", "", "read the narrative from a file, or - for stdin"),
	}

	if err := fs.Parse(args); err != nil {
		return flags, err
	}

	// Keep the default SQLite file inside an overridden state directory.
	defaultDSN := filepath.Join(config.StateDir, DefaultDBFileName)
	if *flags.dbDSN == defaultDSN && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"provider", *flags.provider,
		"model", *flags.model,
		"apiKey_set", *flags.apiKey != "",
		"apiAddr", *flags.apiAddr,
		"countPolicy", *flags.countPolicy,
		"generate", *flags.generate)

	return flags, nil
}

// buildStoreOptions picks the audit store backend from the DSN.
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs generation client options. The provider-specific
// environment key is used unless -api-key is given.
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	genaiOpts := []genai.Option{
		genai.WithProvider(*flags.provider),
		genai.WithMaxTokens(*flags.maxTokens),
		genai.WithTimeout(*flags.timeout),
		genai.WithDebugMode(*flags.debug),
		genai.WithStateDir(*flags.stateDir),
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}

	key := *flags.apiKey
	if key == "" {
		switch genai.Provider(strings.ToLower(strings.TrimSpace(*flags.provider))) {
		case genai.ProviderOpenAI:
			key = config.OpenAIKey
		default:
			key = config.AnthropicKey
		}
	}
	if key != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(key))
	}
	return genaiOpts
}

// buildCarouselOptions constructs pipeline options.
func buildCarouselOptions(flags Flags) ([]carousel.Option, error) {
	policy, err := carousel.ParseCountPolicy(*flags.countPolicy)
	if err != nil {
		return nil, err
	}
	return []carousel.Option{
		carousel.WithBrand(*flags.brand),
		carousel.WithCountPolicy(policy),
		carousel.WithTimeout(*flags.timeout),
	}, nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, config Config, carouselOpts []carousel.Option) []api.Option {
	apiOpts := []api.Option{api.WithCarouselOptions(carouselOpts...)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if len(config.CORSOrigins) > 0 {
		apiOpts = append(apiOpts, api.WithCORSOrigins(config.CORSOrigins))
	}
	return apiOpts
}
