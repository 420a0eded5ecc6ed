// Package correlate scores topic clusters for cross-source corroboration,
// trend velocity, and research priority, and routes each topic to a quick
// or deep research pass.
package correlate

import (
	"math"
	"sort"
	"strings"

	"horse.fit/newsroom/internal/cluster"
	"horse.fit/newsroom/internal/content"
)

// Source type credibility. Community signal ranks below media coverage,
// which ranks below an official or government source.
var sourceTypeWeights = map[string]float64{
	"official":   1.0,
	"newsdata":   0.8,
	"rss":        0.8,
	"hackernews": 0.6,
	"reddit":     0.5,
	"youtube":    0.4,
}

const (
	defaultSourceWeight = 0.5

	// diversityBonusTypes distinct source types multiply the weighted sum
	// by diversityBonus.
	diversityBonusTypes = 3
	diversityBonus      = 1.5

	// commonClaimSimilarity is the trigram jaccard above which two
	// sentences from different items count as the same claim.
	commonClaimSimilarity = 0.8
	maxCommonClaims       = 10
	minClaimRunes         = 40
)

// CorrelatedTopic is a cluster annotated with corroboration and trend
// signals plus the routed research depth.
type CorrelatedTopic struct {
	Cluster          cluster.TopicCluster `json:"cluster"`
	CorrelationScore float64              `json:"correlation_score"`
	CommonClaims     []string             `json:"common_claims,omitempty"`
	Velocity         float64              `json:"velocity"`
	Trend            TrendClass           `json:"trend"`
	Priority         int                  `json:"priority"`
	Depth            Depth                `json:"depth"`
}

// SourceWeight returns the credibility weight for a source type.
func SourceWeight(sourceType string) float64 {
	if w, ok := sourceTypeWeights[strings.ToLower(strings.TrimSpace(sourceType))]; ok {
		return w
	}
	return defaultSourceWeight
}

// CorrelationScore sums the credibility weights of the distinct source
// types in the cluster and applies the diversity bonus at three or more
// types. Each type counts once no matter how many members carry it.
func CorrelationScore(c *cluster.TopicCluster) float64 {
	seen := make(map[string]struct{}, len(c.SourceTypes))
	var sum float64
	for _, sourceType := range c.SourceTypes {
		key := strings.ToLower(strings.TrimSpace(sourceType))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sum += SourceWeight(key)
	}
	if len(seen) >= diversityBonusTypes {
		sum *= diversityBonus
	}
	return sum
}

// CommonClaims returns sentences that appear near-verbatim in at least two
// different member items, a strong sign the claim was reported rather than
// invented by one outlet. Output is deduplicated and sorted.
func CommonClaims(c *cluster.TopicCluster) []string {
	type claim struct {
		item     int
		sentence string
	}
	var claims []claim
	for i := range c.Items {
		for _, sentence := range splitSentences(c.Items[i].Body) {
			if len([]rune(sentence)) < minClaimRunes {
				continue
			}
			claims = append(claims, claim{item: i, sentence: sentence})
		}
	}

	matched := make(map[string]struct{})
	for a := 0; a < len(claims); a++ {
		for b := a + 1; b < len(claims); b++ {
			if claims[a].item == claims[b].item {
				continue
			}
			if content.TrigramJaccard(claims[a].sentence, claims[b].sentence) >= commonClaimSimilarity {
				matched[claims[a].sentence] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(matched))
	for sentence := range matched {
		out = append(out, sentence)
	}
	sort.Strings(out)
	if len(out) > maxCommonClaims {
		out = out[:maxCommonClaims]
	}
	return out
}

func splitSentences(body string) []string {
	var sentences []string
	for _, paragraph := range strings.Split(body, "\n") {
		rest := strings.TrimSpace(paragraph)
		for rest != "" {
			cut := strings.IndexAny(rest, ".!?")
			if cut < 0 {
				sentences = append(sentences, rest)
				break
			}
			sentence := strings.TrimSpace(rest[:cut+1])
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			rest = strings.TrimSpace(rest[cut+1:])
		}
	}
	return sentences
}

// Priority maps correlation and velocity onto the 1..10 research priority
// scale. It is monotone in both inputs.
func Priority(correlationScore, velocity float64) int {
	raw := 1 + 1.8*correlationScore + 1.5*math.Abs(velocity)
	priority := int(math.Round(raw))
	if priority < 1 {
		return 1
	}
	if priority > 10 {
		return 10
	}
	return priority
}
