package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsroom/internal/cli"
	"horse.fit/newsroom/internal/config"
	"horse.fit/newsroom/internal/logging"
	payloadschema "horse.fit/newsroom/schema"
)

// runFetch pulls raw items from every configured source and prints the
// ones that pass schema validation. Useful for checking connector setup
// without running a full batch.
func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Fetch timeout")
	pretty := fs.Bool("pretty", false, "Indent the JSON output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	registry, err := buildSources(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build sources: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	type sourceReport struct {
		Source  string                          `json:"source"`
		Fetched int                             `json:"fetched"`
		Valid   int                             `json:"valid"`
		Error   string                          `json:"error,omitempty"`
		Items   []*payloadschema.RawItemPayload `json:"items,omitempty"`
	}

	var reports []sourceReport
	for _, source := range registry.Sources() {
		report := sourceReport{Source: source.Name()}
		payloads, err := source.Fetch(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("source", source.Name()).Msg("source fetch failed")
			report.Error = err.Error()
			reports = append(reports, report)
			continue
		}
		report.Fetched = len(payloads)
		for _, payload := range payloads {
			encoded, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			validated, err := payloadschema.ValidateRawItem(encoded)
			if err != nil {
				logger.Debug().Err(err).Str("source", source.Name()).Msg("payload failed validation")
				continue
			}
			report.Valid++
			report.Items = append(report.Items, validated)
		}
		reports = append(reports, report)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(map[string]any{"sources": reports}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		return 1
	}
	return 0
}
