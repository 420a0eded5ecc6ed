package verify

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/cluster"
	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/research"
)

type scriptedChecker struct {
	confidences map[string]float64
	err         error
}

func (c scriptedChecker) CheckClaim(_ context.Context, claim research.Claim) (float64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if confidence, ok := c.confidences[claim.Text]; ok {
		return confidence, nil
	}
	return 0.95, nil
}

type scriptedFiller struct {
	claims []research.Claim
	err    error
	calls  atomic.Int32
}

func (f *scriptedFiller) MissingPerspectives(_ context.Context, _ string, _ research.Stance) ([]research.Claim, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func testTopic() *correlate.CorrelatedTopic {
	return &correlate.CorrelatedTopic{
		Cluster: cluster.TopicCluster{
			ID:    "topic-1",
			Label: "Ruling reshapes app store policy",
		},
		Depth:    correlate.DepthDeep,
		Trend:    correlate.TrendAccelerating,
		Priority: 7,
	}
}

func balancedFindings() *research.Findings {
	return &research.Findings{
		TopicID: "topic-1",
		Summary: "A detailed summary of the ruling and its expected consequences for app developers.",
		KeyFacts: []research.KeyFact{
			{Fact: "f1", Confidence: 0.9},
			{Fact: "f2", Confidence: 0.9},
			{Fact: "f3", Confidence: 0.9},
		},
		Claims: []research.Claim{
			{Text: "support one", Stance: research.StanceSupport},
			{Text: "oppose one", Stance: research.StanceOppose},
		},
		CounterArguments: []string{"a critic argues otherwise"},
		HumanStories:     []string{"a developer describes the impact"},
		Citations:        []research.Citation{{Title: "src", URL: "https://x.example"}},
	}
}

func TestVerifyBalancedTopicPasses(t *testing.T) {
	t.Parallel()

	v := NewVerifier(scriptedChecker{}, &scriptedFiller{}, zerolog.Nop())
	out, err := v.Verify(context.Background(), testTopic(), balancedFindings())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.ReviewPassed {
		t.Fatalf("expected review passed, got %+v", out)
	}
	if out.BalanceScore != 1.0 {
		t.Fatalf("expected balance 1.0, got %f", out.BalanceScore)
	}
	if len(out.VerifiedClaims) != 2 || len(out.FlaggedClaims) != 0 {
		t.Fatalf("expected both claims verified, got %d/%d", len(out.VerifiedClaims), len(out.FlaggedClaims))
	}
	if out.GapFillApplied {
		t.Fatalf("expected no gap fill on balanced topic")
	}
	if out.EditorialScore != 10 {
		t.Fatalf("expected full editorial score, got %f (notes %v)", out.EditorialScore, out.EditorialNotes)
	}
}

func TestVerifyFlagsLowConfidenceClaims(t *testing.T) {
	t.Parallel()

	checker := scriptedChecker{confidences: map[string]float64{
		"oppose one": 0.4,
		// Exactly at the bar is not enough, the comparison is strict.
		"support one": 0.8,
	}}
	v := NewVerifier(checker, nil, zerolog.Nop())
	out, err := v.Verify(context.Background(), testTopic(), balancedFindings())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(out.FlaggedClaims) != 2 {
		t.Fatalf("expected both claims flagged, got %d", len(out.FlaggedClaims))
	}
	if out.ReviewPassed {
		t.Fatalf("expected review failed with flagged claims present")
	}
}

func TestVerifyCheckerErrorFlagsClaim(t *testing.T) {
	t.Parallel()

	v := NewVerifier(scriptedChecker{err: errors.New("backend down")}, nil, zerolog.Nop())
	out, err := v.Verify(context.Background(), testTopic(), balancedFindings())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(out.FlaggedClaims) != 2 || out.ReviewPassed {
		t.Fatalf("expected checker errors to flag claims, got %+v", out)
	}
}

func TestVerifyGapFillRunsExactlyOnce(t *testing.T) {
	t.Parallel()

	// One-sided findings: three support, no oppose. Balance 0 triggers the
	// gap fill; the filled opposing claims raise it above the threshold.
	findings := balancedFindings()
	findings.Claims = []research.Claim{
		{Text: "support one", Stance: research.StanceSupport},
		{Text: "support two", Stance: research.StanceSupport},
		{Text: "support three", Stance: research.StanceSupport},
	}
	filler := &scriptedFiller{claims: []research.Claim{
		{Text: "oppose filled one", Stance: research.StanceOppose},
		{Text: "oppose filled two", Stance: research.StanceOppose},
	}}

	v := NewVerifier(scriptedChecker{}, filler, zerolog.Nop())
	out, err := v.Verify(context.Background(), testTopic(), findings)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if filler.calls.Load() != 1 {
		t.Fatalf("expected exactly one gap-fill call, got %d", filler.calls.Load())
	}
	if !out.GapFillApplied {
		t.Fatalf("expected gap fill recorded")
	}
	// 2*min(3,2)/5 = 0.8 after the fill.
	if math.Abs(out.BalanceScore-0.8) > 1e-9 {
		t.Fatalf("expected recomputed balance 0.8, got %f", out.BalanceScore)
	}
	if !out.ReviewPassed {
		t.Fatalf("expected review passed after one gap-fill pass")
	}
}

func TestVerifyGapFillCannotLoop(t *testing.T) {
	t.Parallel()

	// The fill returns more one-sided claims, balance stays low, and the
	// verifier must not call the filler again.
	findings := balancedFindings()
	findings.Claims = []research.Claim{{Text: "support one", Stance: research.StanceSupport}}
	filler := &scriptedFiller{claims: []research.Claim{{Text: "support extra", Stance: research.StanceSupport}}}

	v := NewVerifier(scriptedChecker{}, filler, zerolog.Nop())
	out, err := v.Verify(context.Background(), testTopic(), findings)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if filler.calls.Load() != 1 {
		t.Fatalf("expected one gap-fill call even when balance stays low, got %d", filler.calls.Load())
	}
	if out.ReviewPassed {
		t.Fatalf("expected review failed with balance %f", out.BalanceScore)
	}
}

func TestVerifyNeutralClaimsDefaultBalance(t *testing.T) {
	t.Parallel()

	findings := balancedFindings()
	findings.Claims = []research.Claim{{Text: "neutral fact", Stance: research.StanceNeutral}}

	v := NewVerifier(scriptedChecker{}, nil, zerolog.Nop())
	out, err := v.Verify(context.Background(), testTopic(), findings)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.BalanceScore != 0.5 {
		t.Fatalf("expected neutral balance 0.5, got %f", out.BalanceScore)
	}
	if out.ReviewPassed {
		t.Fatalf("expected review failed below balance threshold")
	}
}

func TestVerifyDoesNotMutateFindings(t *testing.T) {
	t.Parallel()

	findings := balancedFindings()
	originalClaims := len(findings.Claims)
	filler := &scriptedFiller{claims: []research.Claim{{Text: "filled", Stance: research.StanceOppose}}}
	findings.Claims = findings.Claims[:1] // one-sided to force the fill

	v := NewVerifier(scriptedChecker{}, filler, zerolog.Nop())
	if _, err := v.Verify(context.Background(), testTopic(), findings); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(findings.Claims) != 1 {
		t.Fatalf("expected findings untouched, got %d claims (had %d)", len(findings.Claims), originalClaims)
	}
}

func TestVerifyNilFindingsRejected(t *testing.T) {
	t.Parallel()

	v := NewVerifier(scriptedChecker{}, nil, zerolog.Nop())
	if _, err := v.Verify(context.Background(), testTopic(), nil); err == nil {
		t.Fatalf("expected error for nil findings")
	}
}

func TestReviewPassedProperty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		flagged int
		balance float64
		want    bool
	}{
		{"clean and balanced", 0, 0.6, true},
		{"clean but unbalanced", 0, 0.59, false},
		{"flagged and balanced", 1, 1.0, false},
		{"flagged and unbalanced", 2, 0.1, false},
	}
	for _, tc := range cases {
		got := tc.flagged == 0 && tc.balance >= balanceThreshold
		if got != tc.want {
			t.Fatalf("%s: review property mismatch", tc.name)
		}
	}
}
