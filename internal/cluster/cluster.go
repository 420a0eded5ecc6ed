package cluster

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/content"
)

// TopicCluster is a group of items judged to be about the same topic.
type TopicCluster struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Items         []content.Item `json:"items"`
	Centroid      []float64      `json:"-"`
	Coherence     float64        `json:"coherence"`
	SourceTypes   []string       `json:"source_types"`
	EarliestAt    time.Time      `json:"earliest_at"`
	LatestAt      time.Time      `json:"latest_at"`
	TimeSpan      time.Duration  `json:"time_span"`
	EngagementSum int            `json:"engagement_sum"`
	Rescued       bool           `json:"rescued,omitempty"`
}

// Result carries the clusters plus the items that stayed noise.
type Result struct {
	Clusters []TopicCluster
	Noise    []content.Item
}

// Clusterer runs the density scan and assembles TopicClusters.
type Clusterer struct {
	params Params
	logger zerolog.Logger
}

func New(params Params, logger zerolog.Logger) *Clusterer {
	return &Clusterer{
		params: params.withDefaults(),
		logger: logger.With().Str("component", "clusterer").Logger(),
	}
}

// Cluster partitions items into topic clusters and noise. Every input item
// lands in exactly one cluster or in the noise set. Clusters below the
// minimum size dissolve back to noise, and noise items whose engagement
// exceeds the rescue score come back as single-item clusters.
func (c *Clusterer) Cluster(items []content.Item) Result {
	labels, clusterCount := scan(items, c.params)

	grouped := make(map[int][]int, clusterCount)
	var noiseIdx []int
	for i, label := range labels {
		if label == labelNoise {
			noiseIdx = append(noiseIdx, i)
			continue
		}
		grouped[label] = append(grouped[label], i)
	}

	var result Result
	for label := 1; label <= clusterCount; label++ {
		group := grouped[label]
		if len(group) < c.params.MinClusterSize {
			noiseIdx = append(noiseIdx, group...)
			continue
		}
		result.Clusters = append(result.Clusters, c.build(items, group, false))
	}

	sort.Slice(noiseIdx, func(a, b int) bool {
		return items[noiseIdx[a]].Fingerprint < items[noiseIdx[b]].Fingerprint
	})
	for _, i := range noiseIdx {
		if items[i].Engagement() > c.params.RescueScore {
			c.logger.Debug().
				Str("fingerprint", items[i].Fingerprint).
				Int("engagement", items[i].Engagement()).
				Msg("rescuing high engagement noise item")
			result.Clusters = append(result.Clusters, c.build(items, []int{i}, true))
			continue
		}
		result.Noise = append(result.Noise, items[i])
	}

	sort.Slice(result.Clusters, func(a, b int) bool {
		return result.Clusters[a].ID < result.Clusters[b].ID
	})
	return result
}

func (c *Clusterer) build(items []content.Item, group []int, rescued bool) TopicCluster {
	sort.Slice(group, func(a, b int) bool {
		return items[group[a]].Fingerprint < items[group[b]].Fingerprint
	})

	cluster := TopicCluster{
		ID:      "topic-" + items[group[0]].Fingerprint[:12],
		Rescued: rescued,
	}

	seenTypes := make(map[string]struct{})
	for _, i := range group {
		item := items[i]
		cluster.Items = append(cluster.Items, item)
		cluster.EngagementSum += item.Engagement()
		if _, ok := seenTypes[item.SourceType]; !ok {
			seenTypes[item.SourceType] = struct{}{}
			cluster.SourceTypes = append(cluster.SourceTypes, item.SourceType)
		}
		if cluster.EarliestAt.IsZero() || item.PublishedAt.Before(cluster.EarliestAt) {
			cluster.EarliestAt = item.PublishedAt
		}
		if item.PublishedAt.After(cluster.LatestAt) {
			cluster.LatestAt = item.PublishedAt
		}
	}
	sort.Strings(cluster.SourceTypes)
	cluster.TimeSpan = cluster.LatestAt.Sub(cluster.EarliestAt)
	cluster.Centroid = centroid(cluster.Items)
	cluster.Coherence = coherence(cluster.Items)
	cluster.Label = FallbackLabel(cluster.Items)
	return cluster
}

// centroid is the renormalized mean of the member vectors. Members without
// an embedding are skipped; a cluster of only unembedded items has no
// centroid.
func centroid(items []content.Item) []float64 {
	var sum []float64
	count := 0
	for i := range items {
		if !items[i].HasEmbedding() {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(items[i].Embedding))
		}
		if len(items[i].Embedding) != len(sum) {
			continue
		}
		for d, v := range items[i].Embedding {
			sum[d] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	var norm float64
	for d := range sum {
		sum[d] /= float64(count)
		norm += sum[d] * sum[d]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}
	for d := range sum {
		sum[d] /= norm
	}
	return sum
}

// coherence is the mean pairwise cosine similarity of the members. A
// single-item cluster is maximally coherent.
func coherence(items []content.Item) float64 {
	embedded := make([]*content.Item, 0, len(items))
	for i := range items {
		if items[i].HasEmbedding() {
			embedded = append(embedded, &items[i])
		}
	}
	if len(embedded) <= 1 {
		return 1
	}
	var total float64
	pairs := 0
	for a := 0; a < len(embedded); a++ {
		for b := a + 1; b < len(embedded); b++ {
			total += content.CosineSimilarity(embedded[a].Embedding, embedded[b].Embedding)
			pairs++
		}
	}
	return total / float64(pairs)
}
