package cluster

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/content"
)

func embeddedItem(name string, vector []float64, engagement int) content.Item {
	return content.Item{
		Fingerprint: content.Fingerprint(name, ""),
		Title:       name,
		PublishedAt: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
		Score:       engagement,
		Embedding:   vector,
	}
}

// jitter returns a unit vector a small angle away from (1,0).
func jitter(angle float64) []float64 {
	return []float64{math.Cos(angle), math.Sin(angle)}
}

func TestClusterGroupsDenseRegion(t *testing.T) {
	t.Parallel()

	items := []content.Item{
		embeddedItem("story a", jitter(0.01), 1),
		embeddedItem("story b", jitter(0.02), 1),
		embeddedItem("story c", jitter(0.03), 1),
		embeddedItem("far away", []float64{0, 1}, 1),
	}

	result := New(Params{}, zerolog.Nop()).Cluster(items)
	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}
	if got := len(result.Clusters[0].Items); got != 3 {
		t.Fatalf("expected 3 members, got %d", got)
	}
	if len(result.Noise) != 1 || result.Noise[0].Title != "far away" {
		t.Fatalf("expected distant item in noise, got %+v", result.Noise)
	}
	if result.Clusters[0].Coherence < 0.99 {
		t.Fatalf("expected tight cluster coherence near 1, got %f", result.Clusters[0].Coherence)
	}
}

func TestClusterDropsUndersizedGroups(t *testing.T) {
	t.Parallel()

	// Two nearby items form a dense pair but stay below MinClusterSize.
	items := []content.Item{
		embeddedItem("pair a", jitter(0.01), 1),
		embeddedItem("pair b", jitter(0.02), 1),
	}
	result := New(Params{}, zerolog.Nop()).Cluster(items)
	if len(result.Clusters) != 0 {
		t.Fatalf("expected no clusters, got %d", len(result.Clusters))
	}
	if len(result.Noise) != 2 {
		t.Fatalf("expected both items in noise, got %d", len(result.Noise))
	}
}

func TestClusterRescuesHighEngagementNoise(t *testing.T) {
	t.Parallel()

	items := []content.Item{
		embeddedItem("viral outlier", []float64{0, 1}, 120),
		embeddedItem("quiet outlier", []float64{1, 0}, 3),
	}
	result := New(Params{}, zerolog.Nop()).Cluster(items)
	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 rescued cluster, got %d", len(result.Clusters))
	}
	rescued := result.Clusters[0]
	if !rescued.Rescued || len(rescued.Items) != 1 || rescued.Items[0].Title != "viral outlier" {
		t.Fatalf("expected viral outlier rescued as singleton, got %+v", rescued)
	}
	if rescued.Coherence != 1 {
		t.Fatalf("expected singleton coherence 1, got %f", rescued.Coherence)
	}
	if len(result.Noise) != 1 || result.Noise[0].Title != "quiet outlier" {
		t.Fatalf("expected quiet outlier discarded as noise")
	}
}

func TestClusterPartitionIsExclusive(t *testing.T) {
	t.Parallel()

	var items []content.Item
	for i := 0; i < 6; i++ {
		items = append(items, embeddedItem(fmt.Sprintf("a%d", i), jitter(0.005*float64(i)), 1))
	}
	for i := 0; i < 4; i++ {
		items = append(items, embeddedItem(fmt.Sprintf("b%d", i), []float64{-1, 0.005 * float64(i)}, 1))
	}
	items = append(items, embeddedItem("lone", []float64{0, -1}, 1))

	result := New(Params{}, zerolog.Nop()).Cluster(items)

	seen := make(map[string]int)
	for _, cl := range result.Clusters {
		for _, item := range cl.Items {
			seen[item.Fingerprint]++
		}
	}
	for _, item := range result.Noise {
		seen[item.Fingerprint]++
	}
	if len(seen) != len(items) {
		t.Fatalf("expected all %d items accounted for, got %d", len(items), len(seen))
	}
	for fp, count := range seen {
		if count != 1 {
			t.Fatalf("item %s appears %d times across partition", fp, count)
		}
	}
}

func TestClusterDeterministicAcrossInputOrder(t *testing.T) {
	t.Parallel()

	var items []content.Item
	for i := 0; i < 5; i++ {
		items = append(items, embeddedItem(fmt.Sprintf("s%d", i), jitter(0.01*float64(i)), 1))
	}

	first := New(Params{}, zerolog.Nop()).Cluster(items)

	reversed := make([]content.Item, len(items))
	for i := range items {
		reversed[i] = items[len(items)-1-i]
	}
	second := New(Params{}, zerolog.Nop()).Cluster(reversed)

	if len(first.Clusters) != len(second.Clusters) {
		t.Fatalf("expected same cluster count, got %d vs %d", len(first.Clusters), len(second.Clusters))
	}
	for i := range first.Clusters {
		if first.Clusters[i].ID != second.Clusters[i].ID {
			t.Fatalf("expected stable cluster ids, got %s vs %s", first.Clusters[i].ID, second.Clusters[i].ID)
		}
		if len(first.Clusters[i].Items) != len(second.Clusters[i].Items) {
			t.Fatalf("expected stable membership for %s", first.Clusters[i].ID)
		}
	}
}

func TestClusterSkipsUnembeddedItems(t *testing.T) {
	t.Parallel()

	plain := content.Item{
		Fingerprint: content.Fingerprint("no vector", ""),
		Title:       "no vector",
		Score:       200,
	}
	result := New(Params{}, zerolog.Nop()).Cluster([]content.Item{plain})
	// High engagement still rescues an unembedded item.
	if len(result.Clusters) != 1 || !result.Clusters[0].Rescued {
		t.Fatalf("expected unembedded high engagement item rescued, got %+v", result)
	}
	if result.Clusters[0].Centroid != nil {
		t.Fatalf("expected nil centroid without embeddings")
	}
}

func TestCentroidIsRenormalized(t *testing.T) {
	t.Parallel()

	items := []content.Item{
		embeddedItem("a", []float64{2, 0}, 1),
		embeddedItem("b", []float64{0, 2}, 1),
	}
	c := centroid(items)
	var norm float64
	for _, v := range c {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Fatalf("expected unit-norm centroid, got norm %f", math.Sqrt(norm))
	}
}

type staticLabeler struct {
	label string
	err   error
}

func (s staticLabeler) TopicLabel(_ context.Context, titles []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("no titles")
	}
	return s.label, nil
}

func TestNamerUsesGeneratorWithFallback(t *testing.T) {
	t.Parallel()

	clusters := []TopicCluster{{
		ID:    "topic-1",
		Items: []content.Item{{Title: "Original first title"}},
	}}

	NewNamer(staticLabeler{label: "App store antitrust ruling"}, zerolog.Nop()).LabelClusters(context.Background(), clusters)
	if clusters[0].Label != "App store antitrust ruling" {
		t.Fatalf("expected generated label, got %q", clusters[0].Label)
	}

	NewNamer(staticLabeler{err: fmt.Errorf("backend down")}, zerolog.Nop()).LabelClusters(context.Background(), clusters)
	if clusters[0].Label != "Original first title" {
		t.Fatalf("expected fallback label, got %q", clusters[0].Label)
	}
}
