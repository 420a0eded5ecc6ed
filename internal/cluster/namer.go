package cluster

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/content"
)

const (
	labelTitleSample = 5
	labelMaxRunes    = 80
)

// LabelGenerator produces a short human-readable topic label from a sample
// of member titles.
type LabelGenerator interface {
	TopicLabel(ctx context.Context, titles []string) (string, error)
}

// Namer labels clusters through a generator, falling back to the first
// member title when generation fails. Label generation is best effort and
// never fails the batch.
type Namer struct {
	gen    LabelGenerator
	logger zerolog.Logger
}

func NewNamer(gen LabelGenerator, logger zerolog.Logger) *Namer {
	return &Namer{gen: gen, logger: logger.With().Str("component", "cluster-namer").Logger()}
}

// LabelClusters fills in Label for each cluster in place.
func (n *Namer) LabelClusters(ctx context.Context, clusters []TopicCluster) {
	for i := range clusters {
		clusters[i].Label = n.label(ctx, &clusters[i])
	}
}

func (n *Namer) label(ctx context.Context, cluster *TopicCluster) string {
	fallback := FallbackLabel(cluster.Items)
	if n.gen == nil {
		return fallback
	}

	titles := make([]string, 0, labelTitleSample)
	for _, item := range cluster.Items {
		titles = append(titles, item.Title)
		if len(titles) == labelTitleSample {
			break
		}
	}
	label, err := n.gen.TopicLabel(ctx, titles)
	if err != nil {
		n.logger.Warn().Err(err).Str("cluster_id", cluster.ID).Msg("topic label generation failed, using fallback")
		return fallback
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return fallback
	}
	return truncateLabel(label)
}

// FallbackLabel is the truncated title of the first member.
func FallbackLabel(items []content.Item) string {
	if len(items) == 0 {
		return ""
	}
	return truncateLabel(items[0].Title)
}

func truncateLabel(label string) string {
	runes := []rune(strings.TrimSpace(label))
	if len(runes) <= labelMaxRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:labelMaxRunes-1])) + "…"
}
