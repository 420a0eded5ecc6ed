// Package cluster groups embedded items into topic clusters with a
// density-based scan over cosine distance. Items that fall in no dense
// region are noise, except for high-engagement items which are rescued as
// single-item clusters.
package cluster

import (
	"sort"

	"horse.fit/newsroom/internal/content"
)

const (
	DefaultEpsilon        = 0.3
	DefaultMinClusterSize = 3
	DefaultMinSamples     = 2
	DefaultRescueScore    = 50
)

// Params controls the density scan. Zero values fall back to defaults.
type Params struct {
	// Epsilon is the cosine distance radius for the neighborhood query.
	Epsilon float64
	// MinSamples is the neighborhood size, including the point itself,
	// that makes a point a core point.
	MinSamples int
	// MinClusterSize drops smaller groups back to noise after the scan.
	MinClusterSize int
	// RescueScore is the engagement above which a noise item becomes a
	// singleton cluster instead of being discarded.
	RescueScore int
}

func (p Params) withDefaults() Params {
	if p.Epsilon <= 0 {
		p.Epsilon = DefaultEpsilon
	}
	if p.MinSamples <= 0 {
		p.MinSamples = DefaultMinSamples
	}
	if p.MinClusterSize <= 0 {
		p.MinClusterSize = DefaultMinClusterSize
	}
	if p.RescueScore <= 0 {
		p.RescueScore = DefaultRescueScore
	}
	return p
}

const (
	labelUnvisited = 0
	labelNoise     = -1
)

// scan assigns a cluster label to each embedded item. Items without an
// embedding are labeled noise immediately. Iteration follows fingerprint
// order so the labeling is deterministic for a given input set.
func scan(items []content.Item, params Params) (labels []int, clusterCount int) {
	labels = make([]int, len(items))

	order := make([]int, len(items))
	for i := range items {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return items[order[a]].Fingerprint < items[order[b]].Fingerprint
	})

	for _, i := range order {
		if !items[i].HasEmbedding() {
			labels[i] = labelNoise
		}
	}

	nextLabel := 0
	for _, i := range order {
		if labels[i] != labelUnvisited {
			continue
		}
		neighbors := regionQuery(items, order, i, params.Epsilon)
		if len(neighbors) < params.MinSamples {
			labels[i] = labelNoise
			continue
		}

		nextLabel++
		labels[i] = nextLabel

		// Seed list grows while border and core points are absorbed.
		queue := append([]int(nil), neighbors...)
		for head := 0; head < len(queue); head++ {
			j := queue[head]
			if labels[j] == labelNoise {
				labels[j] = nextLabel
				continue
			}
			if labels[j] != labelUnvisited {
				continue
			}
			labels[j] = nextLabel
			expanded := regionQuery(items, order, j, params.Epsilon)
			if len(expanded) >= params.MinSamples {
				queue = append(queue, expanded...)
			}
		}
	}
	return labels, nextLabel
}

// regionQuery returns indices, in fingerprint order, whose cosine distance
// to items[center] is at most eps. The center itself is included.
func regionQuery(items []content.Item, order []int, center int, eps float64) []int {
	var neighbors []int
	for _, j := range order {
		if !items[j].HasEmbedding() {
			continue
		}
		if j == center {
			neighbors = append(neighbors, j)
			continue
		}
		distance := 1 - content.CosineSimilarity(items[center].Embedding, items[j].Embedding)
		if distance <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
