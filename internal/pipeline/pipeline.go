// Package pipeline sequences the content intelligence stages: fetch,
// normalize, dedup, embed, cluster, correlate, research, verify.
package pipeline

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/cluster"
	"horse.fit/newsroom/internal/content"
	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/embed"
	"horse.fit/newsroom/internal/globaltime"
	"horse.fit/newsroom/internal/research"
	"horse.fit/newsroom/internal/sources"
	"horse.fit/newsroom/internal/verify"
)

const DefaultTopicCount = 5

// Store persists batch results. Persistence failures degrade the batch
// but never abort it.
type Store interface {
	SaveTopics(ctx context.Context, batchID string, topics []verify.VerifiedTopic) error
}

// Options tunes a pipeline instance.
type Options struct {
	// TopicCount caps how many topics are researched per batch.
	TopicCount int
	// DepthOverride forces every task to one research depth when set.
	DepthOverride correlate.Depth
	// EmbedBatchSize and EmbedConcurrency configure the indexing pass.
	EmbedBatchSize   int
	EmbedConcurrency int
	// NearDupThreshold is the cosine similarity for near-duplicate merges.
	NearDupThreshold float64
}

func (o Options) withDefaults() Options {
	if o.TopicCount <= 0 {
		o.TopicCount = DefaultTopicCount
	}
	if o.NearDupThreshold <= 0 {
		o.NearDupThreshold = content.NearDuplicateThreshold
	}
	return o
}

// Pipeline wires the stages together. All per-run state lives in the
// Batch, so one Pipeline can serve many batches.
type Pipeline struct {
	registry     *sources.Registry
	normalizer   *content.Normalizer
	embedClient  *embed.Client
	clusterer    *cluster.Clusterer
	namer        *cluster.Namer
	correlator   *correlate.Correlator
	orchestrator *research.Orchestrator
	verifier     *verify.Verifier
	store        Store
	opts         Options
	logger       zerolog.Logger
}

func New(
	registry *sources.Registry,
	normalizer *content.Normalizer,
	embedClient *embed.Client,
	clusterer *cluster.Clusterer,
	namer *cluster.Namer,
	correlator *correlate.Correlator,
	orchestrator *research.Orchestrator,
	verifier *verify.Verifier,
	store Store,
	opts Options,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		registry:     registry,
		normalizer:   normalizer,
		embedClient:  embedClient,
		clusterer:    clusterer,
		namer:        namer,
		correlator:   correlator,
		orchestrator: orchestrator,
		verifier:     verifier,
		store:        store,
		opts:         opts.withDefaults(),
		logger:       logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one batch end to end and returns verified topics in
// priority order, or a single fatal error.
func (p *Pipeline) Run(ctx context.Context, batch *Batch) ([]verify.VerifiedTopic, error) {
	logger := p.logger.With().Str("batch_id", batch.ID).Logger()

	items, err := p.ingest(ctx, batch, logger)
	if err != nil {
		return nil, err
	}

	canonical, exactDups := content.ExactDeduplicate(items)
	logger.Info().
		Int("items", len(items)).
		Int("canonical", len(canonical)).
		Int("exact_duplicates", len(exactDups)).
		Msg("exact deduplication done")

	if batch.Cancelled() {
		return nil, ErrCancelled
	}

	indexer := embed.NewIndexer(p.embedClient, batch.Cache(), p.opts.EmbedBatchSize, p.opts.EmbedConcurrency, logger)
	indexResult, err := indexer.IndexItems(ctx, canonical)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("embedded", indexResult.Embedded).
		Int("cache_hits", indexResult.CacheHits).
		Int("failed", indexResult.Failed).
		Msg("embedding pass done")

	canonical, nearDups := content.ResolveNearDuplicates(canonical, p.opts.NearDupThreshold)
	if len(nearDups) > 0 {
		logger.Info().Int("near_duplicates", len(nearDups)).Msg("near-duplicate resolution done")
	}

	if batch.Cancelled() {
		return nil, ErrCancelled
	}

	clustered := p.clusterer.Cluster(canonical)
	if len(clustered.Clusters) == 0 {
		return nil, ErrNoClusters
	}
	p.namer.LabelClusters(ctx, clustered.Clusters)
	logger.Info().
		Int("clusters", len(clustered.Clusters)).
		Int("noise", len(clustered.Noise)).
		Msg("clustering done")

	topics := p.correlator.Correlate(clustered.Clusters, globaltime.Now())
	sort.SliceStable(topics, func(a, b int) bool {
		if topics[a].Priority != topics[b].Priority {
			return topics[a].Priority > topics[b].Priority
		}
		return topics[a].Cluster.ID < topics[b].Cluster.ID
	})
	if len(topics) > p.opts.TopicCount {
		topics = topics[:p.opts.TopicCount]
	}
	if p.opts.DepthOverride != "" {
		for i := range topics {
			topics[i].Depth = p.opts.DepthOverride
		}
	}

	if batch.Cancelled() {
		return nil, ErrCancelled
	}

	tasks := p.orchestrator.Run(ctx, topics)

	verified := make([]verify.VerifiedTopic, 0, len(tasks))
	for i, task := range tasks {
		if task.State() == research.TaskFailed {
			logger.Warn().Err(task.Err()).Str("topic_id", task.TopicID).Msg("skipping failed research task")
			continue
		}
		topic, err := p.verifier.Verify(ctx, &topics[i], task.Findings())
		if err != nil {
			logger.Warn().Err(err).Str("topic_id", task.TopicID).Msg("verification failed, topic dropped")
			continue
		}
		verified = append(verified, *topic)
	}

	if batch.Cancelled() {
		return nil, ErrCancelled
	}

	if p.store != nil {
		if err := p.store.SaveTopics(ctx, batch.ID, verified); err != nil {
			logger.Error().Err(err).Msg("persisting batch results failed")
		}
	}

	logger.Info().Int("verified_topics", len(verified)).Msg("batch complete")
	return verified, nil
}

// ingest fetches and normalizes all configured sources. A failing source
// is skipped; a batch with zero items is fatal.
func (p *Pipeline) ingest(ctx context.Context, batch *Batch, logger zerolog.Logger) ([]content.Item, error) {
	if batch.Cancelled() {
		return nil, ErrCancelled
	}

	var items []content.Item
	for _, source := range p.registry.Sources() {
		payloads, err := source.Fetch(ctx)
		if err != nil {
			fetchErr := &FetchError{Source: source.Name(), Err: err}
			logger.Warn().Err(fetchErr).Msg("source fetch failed, skipping")
			continue
		}
		for _, payload := range payloads {
			item, err := p.normalizer.Normalize(payload)
			if err != nil {
				logger.Debug().Err(err).Str("source", source.Name()).Msg("dropping unnormalizable item")
				continue
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, ErrNoContent
	}
	return items, nil
}
