// Package research executes quick and deep research passes for correlated
// topics against pluggable external backends.
package research

import (
	"context"
	"time"
)

// SearchResult is one grounded search hit.
type SearchResult struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet"`
	Source      string     `json:"source,omitempty"`
	Credibility float64    `json:"credibility"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// GroundedSearcher answers a query with citation-backed search results.
type GroundedSearcher interface {
	SearchGrounded(ctx context.Context, query string) ([]SearchResult, error)
}

// StructuredGenerator fills out with a JSON document generated from the
// prompt. Implementations must only write to out on success.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, out any) error
}

// DeepResearchState is the remote job status reported by a deep backend.
type DeepResearchState string

const (
	DeepStateRunning   DeepResearchState = "running"
	DeepStateCompleted DeepResearchState = "completed"
	DeepStateFailed    DeepResearchState = "failed"
)

// DeepResearchStatus is one poll response. Findings may be partially
// populated while the job is still running.
type DeepResearchStatus struct {
	State    DeepResearchState `json:"state"`
	Findings *Findings         `json:"findings,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// DeepResearcher runs long asynchronous research jobs.
type DeepResearcher interface {
	SubmitDeepResearch(ctx context.Context, query string) (jobID string, err error)
	PollDeepResearch(ctx context.Context, jobID string) (*DeepResearchStatus, error)
}

// Backend is a full research provider. Quick tasks use the searcher and
// generator, deep tasks additionally use the deep researcher.
type Backend interface {
	GroundedSearcher
	StructuredGenerator
	DeepResearcher
	Name() string
}
