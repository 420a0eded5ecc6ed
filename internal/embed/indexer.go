package embed

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/newsroom/internal/content"
)

const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 4

	// embedBodyPrefix bounds the body text sent to the embedding service.
	// The title is repeated to weight it, since short titles carry most of
	// the topical signal for news items.
	embedBodyPrefix = 500
)

// IndexResult summarizes one indexing pass.
type IndexResult struct {
	Processed int
	Embedded  int
	CacheHits int
	Failed    int
}

// Indexer attaches embedding vectors to items, going through the cache
// first and batching misses to the embedding service with bounded
// concurrency. A failed batch leaves its items unembedded rather than
// failing the pass; downstream treats such items as singletons.
type Indexer struct {
	client      *Client
	cache       *Cache
	batchSize   int
	concurrency int
	logger      zerolog.Logger
}

func NewIndexer(client *Client, cache *Cache, batchSize, concurrency int, logger zerolog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Indexer{
		client:      client,
		cache:       cache,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "embed-indexer").Logger(),
	}
}

// IndexItems fills in Embedding for each item in place.
func (ix *Indexer) IndexItems(ctx context.Context, items []content.Item) (IndexResult, error) {
	var result IndexResult
	result.Processed = len(items)

	pending := make([]int, 0, len(items))
	for i := range items {
		if items[i].HasEmbedding() {
			result.Embedded++
			continue
		}
		if vector, ok := ix.cache.Get(items[i].Fingerprint); ok {
			items[i].Embedding = vector
			result.CacheHits++
			result.Embedded++
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for start := 0; start < len(pending); start += ix.batchSize {
		end := min(start+ix.batchSize, len(pending))
		batch := pending[start:end]
		g.Go(func() error {
			texts := make([]string, 0, len(batch))
			for _, idx := range batch {
				texts = append(texts, EmbeddingInput(&items[idx]))
			}
			vectors, err := ix.client.Embed(gCtx, texts)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				ix.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("embedding batch failed, items kept unembedded")
				mu.Lock()
				result.Failed += len(batch)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			for i, idx := range batch {
				items[idx].Embedding = vectors[i]
				ix.cache.Put(items[idx].Fingerprint, vectors[i])
				result.Embedded++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// EmbeddingInput is the text sent to the embedding service for an item.
func EmbeddingInput(item *content.Item) string {
	title := strings.TrimSpace(item.Title)
	body := strings.TrimSpace(item.Body)
	if runes := []rune(body); len(runes) > embedBodyPrefix {
		body = string(runes[:embedBodyPrefix])
	}
	switch {
	case title == "" && body == "":
		return ""
	case body == "":
		return title
	default:
		return title + "\n" + title + "\n" + body
	}
}
