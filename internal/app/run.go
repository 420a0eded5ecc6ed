package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/newsroom/internal/cli"
	"horse.fit/newsroom/internal/config"
	"horse.fit/newsroom/internal/logging"
	"horse.fit/newsroom/internal/pipeline"
	"horse.fit/newsroom/internal/store"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Batch timeout")
	noPersist := fs.Bool("no-persist", false, "Skip persisting results even when DATABASE_URL is set")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var topicStore pipeline.Store
	if !*noPersist && strings.TrimSpace(cfg.DatabaseURL) != "" {
		pool, err := store.NewPool(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("database connection failed")
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()
		topicStore = store.NewTopicStore(pool)
	}

	p, err := buildPipeline(cfg, topicStore, logger)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline construction failed")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	batch := pipeline.NewBatch()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Warn().Str("batch_id", batch.ID).Msg("cancellation requested")
		batch.Cancel()
		cancel()
	}()

	topics, err := p.Run(ctx, batch)
	if err != nil {
		logger.Error().Err(err).Str("batch_id", batch.ID).Msg("batch failed")
		fmt.Fprintf(os.Stderr, "Batch failed: %v\n", err)
		if errors.Is(err, pipeline.ErrCancelled) {
			return 130
		}
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(map[string]any{
		"batch_id": batch.ID,
		"topics":   topics,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		return 1
	}
	return 0
}
