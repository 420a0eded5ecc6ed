package correlate

import (
	"time"

	"horse.fit/newsroom/internal/cluster"
)

// TrendClass labels how fast a topic's mention rate is changing.
type TrendClass string

const (
	TrendBreaking     TrendClass = "breaking"
	TrendAccelerating TrendClass = "accelerating"
	TrendStable       TrendClass = "stable"
	TrendDeclining    TrendClass = "declining"
)

const (
	trendWindow = 24 * time.Hour

	// Bucket 1 is the most recent hour. Recent activity is the mean of
	// buckets 1..3, the baseline is the mean of buckets 4..12.
	recentBuckets       = 3
	earlierBucketsUpper = 12
)

// Velocity computes the mention-rate change for a cluster's member
// timestamps relative to now. Timestamps older than the trailing window or
// in the future are ignored.
func Velocity(c *cluster.TopicCluster, now time.Time) float64 {
	totalBuckets := int(trendWindow / time.Hour)
	buckets := make([]int, totalBuckets+1)

	for i := range c.Items {
		age := now.Sub(c.Items[i].PublishedAt)
		if age < 0 || age >= trendWindow {
			continue
		}
		bucket := int(age/time.Hour) + 1
		buckets[bucket]++
	}

	var recentSum int
	for b := 1; b <= recentBuckets; b++ {
		recentSum += buckets[b]
	}
	recent := float64(recentSum) / float64(recentBuckets)

	var earlierSum int
	for b := recentBuckets + 1; b <= earlierBucketsUpper; b++ {
		earlierSum += buckets[b]
	}
	earlier := float64(earlierSum) / float64(earlierBucketsUpper-recentBuckets)

	denominator := earlier
	if denominator < 1 {
		denominator = 1
	}
	return (recent - earlier) / denominator
}

// ClassifyTrend applies the velocity boundaries. The boundaries are strict:
// exactly 2.0 is accelerating, not breaking, and exactly 0.5 is stable.
func ClassifyTrend(velocity float64) TrendClass {
	switch {
	case velocity > 2.0:
		return TrendBreaking
	case velocity > 0.5:
		return TrendAccelerating
	case velocity < -0.5:
		return TrendDeclining
	default:
		return TrendStable
	}
}
