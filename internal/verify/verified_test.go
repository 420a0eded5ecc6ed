package verify

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/research"
)

func TestVerifiedTopicJSONRoundTrip(t *testing.T) {
	t.Parallel()

	original := VerifiedTopic{
		TopicID:          "topic-abc123",
		Label:            "Ruling reshapes app store policy",
		Depth:            correlate.DepthDeep,
		Trend:            correlate.TrendBreaking,
		Priority:         9,
		CorrelationScore: 3.45,
		Summary:          "A detailed summary.",
		VerifiedClaims: []VerifiedClaim{
			{Claim: research.Claim{Text: "claim one", Stance: research.StanceSupport, Source: "https://a.example"}, Confidence: 0.92},
		},
		FlaggedClaims: []FlaggedClaim{
			{Claim: research.Claim{Text: "claim two", Stance: research.StanceOppose}, Confidence: 0.41, Reason: "confidence 0.41 below 0.80"},
		},
		KeyFacts: []research.KeyFact{
			{Fact: "fact one", Source: "https://b.example", Confidence: 0.9},
		},
		CounterArguments: []string{"a counter-argument"},
		HumanStories:     []string{"a human story"},
		Citations: []research.Citation{
			{Title: "z source", URL: "https://z.example", Source: "official"},
			{Title: "a source", URL: "https://a.example", Source: "rss"},
			{Title: "m source", URL: "https://m.example"},
		},
		BalanceScore:   0.8,
		GapFillApplied: true,
		ReviewPassed:   false,
		EditorialScore: 8,
		EditorialNotes: []string{"one flagged claim"},
		Partial:        true,
		VerifiedAt:     time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded VerifiedTopic
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip mismatch:\noriginal %+v\ndecoded  %+v", original, decoded)
	}
	for i, citation := range decoded.Citations {
		if citation != original.Citations[i] {
			t.Fatalf("citation order not preserved at %d", i)
		}
	}
}
