package correlate

import (
	"strings"
	"time"

	"horse.fit/newsroom/internal/cluster"
)

// Depth is the research mode a topic is routed to.
type Depth string

const (
	DepthQuick Depth = "quick"
	DepthDeep  Depth = "deep"
)

const (
	// recencyWindow routes a topic deep when any member published inside it.
	recencyWindow = 6 * time.Hour
	// DefaultDeepEngagementSum routes deep above this summed engagement.
	DefaultDeepEngagementSum = 500
)

// Router decides quick versus deep once per topic. The decision is recorded
// on the ResearchTask and never re-evaluated mid flight.
type Router struct {
	complexKeywords   []string
	deepEngagementSum int
}

func NewRouter(complexKeywords []string, deepEngagementSum int) *Router {
	if deepEngagementSum <= 0 {
		deepEngagementSum = DefaultDeepEngagementSum
	}
	normalized := make([]string, 0, len(complexKeywords))
	for _, keyword := range complexKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			normalized = append(normalized, keyword)
		}
	}
	return &Router{complexKeywords: normalized, deepEngagementSum: deepEngagementSum}
}

// Route returns deep if any member published within the recency window, or
// the summed engagement exceeds the threshold, or the cluster label or a
// member title matches a complex keyword. Otherwise quick.
func (r *Router) Route(c *cluster.TopicCluster, now time.Time) Depth {
	for i := range c.Items {
		age := now.Sub(c.Items[i].PublishedAt)
		if age >= 0 && age < recencyWindow {
			return DepthDeep
		}
	}
	if c.EngagementSum > r.deepEngagementSum {
		return DepthDeep
	}
	if r.matchesComplexKeyword(c) {
		return DepthDeep
	}
	return DepthQuick
}

func (r *Router) matchesComplexKeyword(c *cluster.TopicCluster) bool {
	haystacks := make([]string, 0, len(c.Items)+1)
	haystacks = append(haystacks, strings.ToLower(c.Label))
	for i := range c.Items {
		haystacks = append(haystacks, strings.ToLower(c.Items[i].Title))
	}
	for _, keyword := range r.complexKeywords {
		for _, haystack := range haystacks {
			if strings.Contains(haystack, keyword) {
				return true
			}
		}
	}
	return false
}

// Correlator bundles scoring, trend analysis, and routing.
type Correlator struct {
	router *Router
}

func NewCorrelator(router *Router) *Correlator {
	return &Correlator{router: router}
}

// Correlate annotates every cluster. Input order is preserved.
func (co *Correlator) Correlate(clusters []cluster.TopicCluster, now time.Time) []CorrelatedTopic {
	topics := make([]CorrelatedTopic, 0, len(clusters))
	for i := range clusters {
		c := clusters[i]
		score := CorrelationScore(&c)
		velocity := Velocity(&c, now)
		topics = append(topics, CorrelatedTopic{
			Cluster:          c,
			CorrelationScore: score,
			CommonClaims:     CommonClaims(&c),
			Velocity:         velocity,
			Trend:            ClassifyTrend(velocity),
			Priority:         Priority(score, velocity),
			Depth:            co.router.Route(&c, now),
		})
	}
	return topics
}
