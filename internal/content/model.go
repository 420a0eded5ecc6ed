// Package content holds the normalized item model and the exact and
// near-duplicate resolution steps that run before clustering.
package content

import (
	"encoding/json"
	"time"
)

// Item is a normalized content item. Fingerprint is the stable identity
// used everywhere downstream, including duplicate resolution and cluster
// ordering.
type Item struct {
	Fingerprint  string          `json:"fingerprint"`
	SourceType   string          `json:"source_type"`
	SourceName   string          `json:"source_name"`
	Title        string          `json:"title"`
	Body         string          `json:"body"`
	URL          string          `json:"url,omitempty"`
	CanonicalURL string          `json:"canonical_url,omitempty"`
	Host         string          `json:"host,omitempty"`
	Author       string          `json:"author,omitempty"`
	Language     string          `json:"language,omitempty"`
	PublishedAt  time.Time       `json:"published_at"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Score        int             `json:"score"`
	Comments     int             `json:"comments"`
	Shares       int             `json:"shares"`
	Simhash      uint64          `json:"-"`
	Embedding    []float64       `json:"-"`
	IsDuplicate  bool            `json:"is_duplicate,omitempty"`
	DuplicateOf  string          `json:"duplicate_of,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// Engagement weighs comments double because a comment is a stronger signal
// of attention than an upvote.
func (it *Item) Engagement() int {
	return it.Score + 2*it.Comments
}

// HasEmbedding reports whether the item carries a usable vector.
func (it *Item) HasEmbedding() bool {
	return len(it.Embedding) > 0
}
