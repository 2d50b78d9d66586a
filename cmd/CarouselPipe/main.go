package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BTreeMap/CarouselPipe/internal/api"
	"github.com/BTreeMap/CarouselPipe/internal/carousel"
	"github.com/BTreeMap/CarouselPipe/internal/genai"
	"github.com/BTreeMap/CarouselPipe/internal/lockfile"
	"github.com/BTreeMap/CarouselPipe/internal/models"
	"github.com/BTreeMap/CarouselPipe/internal/store"
)

// Exit codes
const (
	exitOK           = 0
	exitFailure      = 1
	exitPrecondition = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	config := loadEnvironmentConfig()
	slog.SetDefault(newLogger(stderr, config.LogLevel, config.LogFormat))
	slog.Debug("environment variables loaded",
		"CAROUSELPIPE_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"GENAI_PROVIDER", config.Provider,
		"ANTHROPIC_API_KEY_SET", config.AnthropicKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"SLIDE_COUNT_POLICY", config.CountPolicy)

	fs := flag.NewFlagSet("CarouselPipe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags, err := parseCommandLineFlags(fs, args, config)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitPrecondition
	}

	carouselOpts, err := buildCarouselOptions(flags)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return exitPrecondition
	}

	// A missing credential is not fatal: generation requests then fail with a service error.
	var gen carousel.Generator
	client, err := genai.NewClient(buildGenAIOptions(flags, config)...)
	if err != nil {
		slog.Warn("Generation client unavailable; generation requests will fail", "error", err)
	} else {
		gen = client
	}

	if *flags.generate {
		return runOnce(flags, gen, carouselOpts, stdin, stdout, stderr)
	}
	return runServer(flags, config, gen, carouselOpts)
}

// runServer serves the HTTP API until SIGINT or SIGTERM.
func runServer(flags Flags, config Config, gen carousel.Generator, carouselOpts []carousel.Option) int {
	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		return exitFailure
	}
	defer lock.Release()

	st, err := store.New(buildStoreOptions(flags)...)
	if err != nil {
		slog.Error("Failed to open audit store", "error", err)
		return exitFailure
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping CarouselPipe", "state_dir", *flags.stateDir, "api_addr", *flags.apiAddr, "provider", *flags.provider)
	srv := api.NewServer(gen, st, buildAPIOptions(flags, config, carouselOpts)...)
	if err := srv.Run(ctx); err != nil {
		slog.Error("CarouselPipe failed to run", "error", err)
		return exitFailure
	}
	slog.Info("CarouselPipe exited successfully")
	return exitOK
}

// runOnce generates one carousel and writes its export block to stdout. Nothing is persisted.
func runOnce(flags Flags, gen carousel.Generator, carouselOpts []carousel.Option, stdin io.Reader, stdout, stderr io.Writer) int {
	story, err := readStory(flags, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitPrecondition
	}

	req := models.GenerationRequest{
		IncidentType: models.IncidentType(*flags.incident),
		VenueType:    models.VenueType(*flags.venue),
		Story:        story,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slides, err := carousel.NewPipeline(gen, carouselOpts...).Generate(ctx, req)
	if err != nil {
		var pe *models.PreconditionError
		if errors.As(err, &pe) {
			fmt.Fprintf(stderr, "Error: %v\n", pe)
			fmt.Fprintf(stderr, "Incident types: %s\n", joinEnum(models.IncidentTypes()))
			fmt.Fprintf(stderr, "Venue types: %s\n", joinEnum(models.VenueTypes()))
			return exitPrecondition
		}
		fmt.Fprintln(stderr, api.GenerationFailedMessage)
		return exitFailure
	}

	fmt.Fprint(stdout, carousel.Serialize(slides))
	return exitOK
}

func readStory(flags Flags, stdin io.Reader) (string, error) {
	switch *flags.storyFile {
	case "":
		return *flags.story, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read story from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(*flags.storyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read story file: %w", err)
		}
		return string(data), nil
	}
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(parts, ", ")
}
