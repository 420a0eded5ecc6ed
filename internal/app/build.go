package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/cluster"
	"horse.fit/newsroom/internal/config"
	"horse.fit/newsroom/internal/content"
	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/embed"
	"horse.fit/newsroom/internal/pipeline"
	"horse.fit/newsroom/internal/research"
	"horse.fit/newsroom/internal/sources"
	"horse.fit/newsroom/internal/verify"
)

func buildSources(cfg *config.Config, logger zerolog.Logger) (*sources.Registry, error) {
	registry := sources.NewSourceRegistry()

	for _, feed := range cfg.RSSFeedList() {
		if err := registry.Register(sources.NewRSSSource(feed.Name, feed.URL, logger)); err != nil {
			return nil, fmt.Errorf("register RSS feed %s: %w", feed.Name, err)
		}
	}
	if cfg.HackerNewsEnabled {
		if err := registry.Register(sources.NewHackerNewsSource("", cfg.HackerNewsLimit, logger)); err != nil {
			return nil, fmt.Errorf("register hackernews source: %w", err)
		}
	}

	if len(registry.Sources()) == 0 {
		return nil, fmt.Errorf("no sources configured: set NR_RSS_FEEDS or NR_HACKERNEWS_ENABLED")
	}
	return registry, nil
}

func buildResearchBackend(cfg *config.Config) (research.Backend, error) {
	backend, err := research.NewHTTPBackend(research.HTTPBackendOptions{
		Name:     cfg.ResearchProvider,
		Endpoint: cfg.ResearchEndpoint,
		APIKey:   cfg.ResearchAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("build research backend: %w", err)
	}

	registry := research.NewRegistry(cfg.ResearchProvider)
	if err := registry.Register(backend); err != nil {
		return nil, fmt.Errorf("register research backend: %w", err)
	}
	return registry.Backend(cfg.ResearchProvider)
}

func buildPipeline(cfg *config.Config, topicStore pipeline.Store, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	registry, err := buildSources(cfg, logger)
	if err != nil {
		return nil, err
	}

	backend, err := buildResearchBackend(cfg)
	if err != nil {
		return nil, err
	}

	embedClient := embed.NewClient(embed.ClientOptions{
		Endpoint:       cfg.EmbeddingEndpoint,
		ModelName:      cfg.EmbeddingModel,
		RequestTimeout: cfg.EmbeddingTimeout,
	}, logger)

	clusterer := cluster.New(cluster.Params{
		Epsilon:        cfg.ClusterEpsilon,
		MinSamples:     cfg.MinSamples,
		MinClusterSize: cfg.MinClusterSize,
		RescueScore:    cfg.NoiseRescueScore,
	}, logger)

	namer := cluster.NewNamer(research.NewTopicLabeler(backend), logger)
	correlator := correlate.NewCorrelator(correlate.NewRouter(cfg.ComplexKeywordList(), cfg.DeepEngagementSum))

	orchestrator := research.NewOrchestrator(backend, research.Options{
		Concurrency:  cfg.ConcurrencyLimit,
		QuickTimeout: cfg.QuickTimeout,
		PollInterval: cfg.PollInterval,
		DeepBudget:   cfg.ResearchTimeout,
	}, logger)

	verifier := verify.NewVerifier(
		verify.NewSearchClaimChecker(backend),
		verify.NewGeneratorGapFiller(backend),
		logger,
	)

	return pipeline.New(
		registry,
		content.NewNormalizer(logger),
		embedClient,
		clusterer,
		namer,
		correlator,
		orchestrator,
		verifier,
		topicStore,
		pipeline.Options{
			TopicCount:       cfg.TopicCount,
			DepthOverride:    correlate.Depth(strings.ToLower(strings.TrimSpace(cfg.DepthOverride))),
			EmbedConcurrency: cfg.EmbedConcurrency,
		},
		logger,
	), nil
}
