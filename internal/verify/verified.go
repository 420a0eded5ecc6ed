// Package verify runs the editorial gate: claim verification, balance
// measurement with a single bounded gap-fill pass, and an editorial score.
package verify

import (
	"time"

	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/research"
)

// VerifiedClaim is a claim whose verification confidence cleared the bar.
type VerifiedClaim struct {
	research.Claim
	Confidence float64 `json:"confidence"`
}

// FlaggedClaim failed verification and carries the reason.
type FlaggedClaim struct {
	research.Claim
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// VerifiedTopic is the pipeline's final output record. It is built fresh
// from the findings; upstream findings are never mutated.
type VerifiedTopic struct {
	TopicID          string               `json:"topic_id"`
	Label            string               `json:"label"`
	Depth            correlate.Depth      `json:"depth"`
	Trend            correlate.TrendClass `json:"trend"`
	Priority         int                  `json:"priority"`
	CorrelationScore float64              `json:"correlation_score"`
	Summary          string               `json:"summary"`
	VerifiedClaims   []VerifiedClaim      `json:"verified_claims,omitempty"`
	FlaggedClaims    []FlaggedClaim       `json:"flagged_claims,omitempty"`
	KeyFacts         []research.KeyFact   `json:"key_facts,omitempty"`
	CounterArguments []string             `json:"counter_arguments,omitempty"`
	HumanStories     []string             `json:"human_stories,omitempty"`
	Citations        []research.Citation  `json:"citations,omitempty"`
	BalanceScore     float64              `json:"balance_score"`
	GapFillApplied   bool                 `json:"gap_fill_applied,omitempty"`
	ReviewPassed     bool                 `json:"review_passed"`
	EditorialScore   float64              `json:"editorial_score"`
	EditorialNotes   []string             `json:"editorial_notes,omitempty"`
	Partial          bool                 `json:"partial,omitempty"`
	VerifiedAt       time.Time            `json:"verified_at"`
}
