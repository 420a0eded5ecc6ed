package content

import (
	"math"
	"sort"
)

// NearDuplicateThreshold is the cosine similarity at or above which two
// distinct items are treated as the same story.
const NearDuplicateThreshold = 0.95

// ExactDeduplicate collapses items that share a fingerprint. The canonical
// copy is the earliest published one, ties broken by higher engagement.
// Non-canonical copies are returned marked as duplicates so callers can
// persist the relation.
func ExactDeduplicate(items []Item) (canonical []Item, duplicates []Item) {
	byFingerprint := make(map[string][]int, len(items))
	order := make([]string, 0, len(items))
	for i := range items {
		fp := items[i].Fingerprint
		if _, seen := byFingerprint[fp]; !seen {
			order = append(order, fp)
		}
		byFingerprint[fp] = append(byFingerprint[fp], i)
	}
	sort.Strings(order)

	canonical = make([]Item, 0, len(order))
	for _, fp := range order {
		group := byFingerprint[fp]
		keep := pickCanonical(items, group)
		canonical = append(canonical, items[keep])
		for _, idx := range group {
			if idx == keep {
				continue
			}
			dup := items[idx]
			dup.IsDuplicate = true
			dup.DuplicateOf = items[keep].Fingerprint
			duplicates = append(duplicates, dup)
		}
	}
	return canonical, duplicates
}

// ResolveNearDuplicates merges items whose embeddings are nearly identical.
// Similarity is transitive through union-find so chains of near copies
// collapse into one group. Items without an embedding are never merged.
func ResolveNearDuplicates(items []Item, threshold float64) (canonical []Item, duplicates []Item) {
	if threshold <= 0 {
		threshold = NearDuplicateThreshold
	}

	// Fingerprint order keeps the merge deterministic across runs.
	idx := make([]int, len(items))
	for i := range items {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return items[idx[a]].Fingerprint < items[idx[b]].Fingerprint
	})

	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for a := 0; a < len(idx); a++ {
		i := idx[a]
		if !items[i].HasEmbedding() {
			continue
		}
		for b := a + 1; b < len(idx); b++ {
			j := idx[b]
			if !items[j].HasEmbedding() {
				continue
			}
			if CosineSimilarity(items[i].Embedding, items[j].Embedding) >= threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int, len(items))
	for _, i := range idx {
		root := find(i)
		groups[root] = append(groups[root], i)
	}
	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(a, b int) bool {
		return items[roots[a]].Fingerprint < items[roots[b]].Fingerprint
	})

	canonical = make([]Item, 0, len(roots))
	for _, root := range roots {
		group := groups[root]
		keep := pickCanonical(items, group)
		canonical = append(canonical, items[keep])
		for _, i := range group {
			if i == keep {
				continue
			}
			dup := items[i]
			dup.IsDuplicate = true
			dup.DuplicateOf = items[keep].Fingerprint
			duplicates = append(duplicates, dup)
		}
	}
	return canonical, duplicates
}

func pickCanonical(items []Item, group []int) int {
	keep := group[0]
	for _, i := range group[1:] {
		a, b := &items[i], &items[keep]
		switch {
		case a.PublishedAt.Before(b.PublishedAt):
			keep = i
		case a.PublishedAt.Equal(b.PublishedAt) && a.Engagement() > b.Engagement():
			keep = i
		}
	}
	return keep
}

// CosineSimilarity returns 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := a[i], b[i]
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
