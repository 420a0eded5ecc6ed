package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/globaltime"
	"horse.fit/newsroom/internal/research"
)

const (
	// verifiedConfidence is the strict bar a claim must clear.
	verifiedConfidence = 0.8
	// balanceThreshold gates review_passed and triggers the gap fill.
	balanceThreshold = 0.6
	// neutralBalance applies when no claim carries a stance.
	neutralBalance = 0.5
)

// ClaimChecker produces a verification confidence in [0,1] for one claim.
type ClaimChecker interface {
	CheckClaim(ctx context.Context, claim research.Claim) (float64, error)
}

// GapFiller finds claims for the underrepresented side of a topic.
type GapFiller interface {
	MissingPerspectives(ctx context.Context, label string, missing research.Stance) ([]research.Claim, error)
}

// Verifier runs the editorial gate over research findings.
type Verifier struct {
	checker ClaimChecker
	filler  GapFiller
	logger  zerolog.Logger
}

func NewVerifier(checker ClaimChecker, filler GapFiller, logger zerolog.Logger) *Verifier {
	return &Verifier{
		checker: checker,
		filler:  filler,
		logger:  logger.With().Str("component", "verifier").Logger(),
	}
}

// Verify builds a VerifiedTopic for one researched topic. When the balance
// score is below the threshold, exactly one gap-fill pass runs and the
// balance is recomputed once; there is no further iteration.
func (v *Verifier) Verify(ctx context.Context, topic *correlate.CorrelatedTopic, findings *research.Findings) (*VerifiedTopic, error) {
	if findings == nil {
		return nil, fmt.Errorf("verify topic %s: no findings", topic.Cluster.ID)
	}

	logger := v.logger.With().Str("topic_id", topic.Cluster.ID).Logger()
	out := &VerifiedTopic{
		TopicID:          topic.Cluster.ID,
		Label:            topic.Cluster.Label,
		Depth:            topic.Depth,
		Trend:            topic.Trend,
		Priority:         topic.Priority,
		CorrelationScore: topic.CorrelationScore,
		Summary:          findings.Summary,
		KeyFacts:         append([]research.KeyFact(nil), findings.KeyFacts...),
		CounterArguments: append([]string(nil), findings.CounterArguments...),
		HumanStories:     append([]string(nil), findings.HumanStories...),
		Citations:        append([]research.Citation(nil), findings.Citations...),
		Partial:          findings.Partial,
		VerifiedAt:       globaltime.Now(),
	}

	claims := append([]research.Claim(nil), findings.Claims...)
	v.checkClaims(ctx, out, claims)
	out.BalanceScore = balanceScore(claims)

	if out.BalanceScore < balanceThreshold && v.filler != nil {
		missing := underrepresentedStance(claims)
		filled, err := v.filler.MissingPerspectives(ctx, topic.Cluster.Label, missing)
		if err != nil {
			logger.Warn().Err(err).Str("missing_stance", string(missing)).Msg("gap-fill pass failed")
		} else if len(filled) > 0 {
			out.GapFillApplied = true
			v.checkClaims(ctx, out, filled)
			claims = append(claims, filled...)
			out.BalanceScore = balanceScore(claims)
			logger.Info().Float64("balance", out.BalanceScore).Int("added_claims", len(filled)).Msg("gap-fill pass applied")
		}
	}

	out.ReviewPassed = len(out.FlaggedClaims) == 0 && out.BalanceScore >= balanceThreshold
	out.EditorialScore, out.EditorialNotes = editorialScore(out)
	return out, nil
}

func (v *Verifier) checkClaims(ctx context.Context, out *VerifiedTopic, claims []research.Claim) {
	for _, claim := range claims {
		confidence, err := v.checker.CheckClaim(ctx, claim)
		if err != nil {
			out.FlaggedClaims = append(out.FlaggedClaims, FlaggedClaim{
				Claim:  claim,
				Reason: "verification failed: " + err.Error(),
			})
			continue
		}
		if confidence > verifiedConfidence {
			out.VerifiedClaims = append(out.VerifiedClaims, VerifiedClaim{Claim: claim, Confidence: confidence})
			continue
		}
		out.FlaggedClaims = append(out.FlaggedClaims, FlaggedClaim{
			Claim:      claim,
			Confidence: confidence,
			Reason:     fmt.Sprintf("confidence %.2f below %.2f", confidence, verifiedConfidence),
		})
	}
}

// balanceScore is 1.0 for perfectly balanced support and opposition, 0 for
// one-sided coverage, and 0.5 when no claim takes a side.
func balanceScore(claims []research.Claim) float64 {
	var support, oppose int
	for _, claim := range claims {
		switch claim.Stance {
		case research.StanceSupport:
			support++
		case research.StanceOppose:
			oppose++
		}
	}
	total := support + oppose
	if total == 0 {
		return neutralBalance
	}
	minSide := support
	if oppose < minSide {
		minSide = oppose
	}
	return 2 * float64(minSide) / float64(total)
}

func underrepresentedStance(claims []research.Claim) research.Stance {
	var support, oppose int
	for _, claim := range claims {
		switch claim.Stance {
		case research.StanceSupport:
			support++
		case research.StanceOppose:
			oppose++
		}
	}
	if oppose < support {
		return research.StanceOppose
	}
	return research.StanceSupport
}

// editorialScore grades the topic out of 10: facts up to 3, summary up to
// 2, perspective diversity up to 2, opinion coverage up to 2, timeliness 1.
func editorialScore(topic *VerifiedTopic) (float64, []string) {
	var score float64
	var notes []string

	factPoints := float64(len(topic.KeyFacts))
	if factPoints > 3 {
		factPoints = 3
	}
	score += factPoints
	if factPoints < 3 {
		notes = append(notes, fmt.Sprintf("only %d key facts", len(topic.KeyFacts)))
	}

	summary := strings.TrimSpace(topic.Summary)
	switch {
	case len(summary) >= 80:
		score += 2
	case summary != "":
		score += 1
		notes = append(notes, "summary is thin")
	default:
		notes = append(notes, "summary missing")
	}

	if len(topic.CounterArguments) > 0 {
		score += 1
	} else {
		notes = append(notes, "no counter-arguments gathered")
	}
	if len(topic.HumanStories) > 0 {
		score += 1
	} else {
		notes = append(notes, "no human stories gathered")
	}

	if topic.BalanceScore >= balanceThreshold {
		score += 2
	} else if topic.BalanceScore > 0 {
		score += 1
		notes = append(notes, "opinion coverage is one-sided")
	} else {
		notes = append(notes, "no opposing viewpoints represented")
	}

	if !topic.Partial {
		score += 1
	} else {
		notes = append(notes, "findings were cut short")
	}

	return score, notes
}
