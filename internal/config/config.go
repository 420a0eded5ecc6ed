package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Persistence is optional for one-shot runs; serve/health require it.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"NR_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NR_DB_MAX_CONNS" default:"8"`

	EmbeddingEndpoint string        `envconfig:"NR_EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingModel    string        `envconfig:"NR_EMBEDDING_MODEL" default:"Qwen3-Embedding-8B"`
	EmbeddingTimeout  time.Duration `envconfig:"NR_EMBEDDING_TIMEOUT" default:"45s"`
	EmbedConcurrency  int           `envconfig:"NR_EMBED_CONCURRENCY" default:"8"`

	ResearchEndpoint string `envconfig:"NR_RESEARCH_ENDPOINT" default:"http://127.0.0.1:8855"`
	ResearchAPIKey   string `envconfig:"NR_RESEARCH_API_KEY" default:""`
	ResearchProvider string `envconfig:"NR_RESEARCH_PROVIDER" default:"gemini"`

	TopicCount       int           `envconfig:"NR_TOPIC_COUNT" default:"5"`
	DepthOverride    string        `envconfig:"NR_DEPTH_OVERRIDE" default:""`
	ResearchTimeout  time.Duration `envconfig:"NR_RESEARCH_TIMEOUT" default:"20m"`
	QuickTimeout     time.Duration `envconfig:"NR_QUICK_TIMEOUT" default:"20s"`
	PollInterval     time.Duration `envconfig:"NR_POLL_INTERVAL" default:"30s"`
	ConcurrencyLimit int           `envconfig:"NR_CONCURRENCY_LIMIT" default:"3"`

	ClusterEpsilon    float64 `envconfig:"NR_CLUSTER_EPSILON" default:"0.3"`
	MinClusterSize    int     `envconfig:"NR_MIN_CLUSTER_SIZE" default:"3"`
	MinSamples        int     `envconfig:"NR_MIN_SAMPLES" default:"2"`
	NoiseRescueScore  int     `envconfig:"NR_NOISE_RESCUE_SCORE" default:"50"`
	ComplexKeywords   string  `envconfig:"NR_COMPLEX_KEYWORDS" default:"policy,litigation,regulation,investigation,lawsuit,ruling,antitrust,sanction"`
	DeepEngagementSum int     `envconfig:"NR_DEEP_ENGAGEMENT_SUM" default:"500"`

	// RSSFeeds is a comma-separated list of name=url entries. Entries
	// without a name fall back to the feed URL host.
	RSSFeeds          string `envconfig:"NR_RSS_FEEDS" default:""`
	HackerNewsEnabled bool   `envconfig:"NR_HACKERNEWS_ENABLED" default:"true"`
	HackerNewsLimit   int    `envconfig:"NR_HACKERNEWS_LIMIT" default:"30"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("NR_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NR_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NR_DB_MIN_CONNS (%d) cannot exceed NR_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.EmbeddingEndpoint) == "" {
		return fmt.Errorf("NR_EMBEDDING_ENDPOINT is required")
	}
	if c.TopicCount < 1 {
		return fmt.Errorf("NR_TOPIC_COUNT must be >= 1")
	}
	if c.ConcurrencyLimit < 1 {
		return fmt.Errorf("NR_CONCURRENCY_LIMIT must be >= 1")
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("NR_EMBED_CONCURRENCY must be >= 1")
	}
	if c.MinClusterSize < 2 {
		return fmt.Errorf("NR_MIN_CLUSTER_SIZE must be >= 2")
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("NR_MIN_SAMPLES must be >= 1")
	}
	if c.ClusterEpsilon <= 0 || c.ClusterEpsilon >= 1 {
		return fmt.Errorf("NR_CLUSTER_EPSILON must be in (0, 1)")
	}
	switch strings.ToLower(strings.TrimSpace(c.DepthOverride)) {
	case "", "quick", "deep":
	default:
		return fmt.Errorf("NR_DEPTH_OVERRIDE must be empty, %q, or %q", "quick", "deep")
	}
	return nil
}

// FeedSpec is one configured RSS feed.
type FeedSpec struct {
	Name string
	URL  string
}

// RSSFeedList parses NR_RSS_FEEDS into feed specs. Malformed entries are
// skipped rather than failing the whole configuration.
func (c *Config) RSSFeedList() []FeedSpec {
	if c == nil {
		return nil
	}

	var feeds []FeedSpec
	for _, entry := range strings.Split(c.RSSFeeds, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rawURL, found := strings.Cut(entry, "=")
		if !found {
			rawURL = entry
			name = ""
		}
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
				name = parsed.Host
			} else {
				name = rawURL
			}
		}
		feeds = append(feeds, FeedSpec{Name: name, URL: rawURL})
	}
	return feeds
}

func (c *Config) ComplexKeywordList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.ComplexKeywords, ",")
	keywords := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		keyword := strings.ToLower(strings.TrimSpace(part))
		if keyword == "" {
			continue
		}
		if _, exists := seen[keyword]; exists {
			continue
		}
		seen[keyword] = struct{}{}
		keywords = append(keywords, keyword)
	}
	return keywords
}
