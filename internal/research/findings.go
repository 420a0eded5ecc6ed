package research

import "time"

// Stance is a claim's position relative to the topic's main thesis.
type Stance string

const (
	StanceSupport Stance = "support"
	StanceOppose  Stance = "oppose"
	StanceNeutral Stance = "neutral"
)

// KeyFact is a single researched fact with its provenance.
type KeyFact struct {
	Fact       string  `json:"fact"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Claim is a researched assertion carrying a stance so editorial balance
// can be measured downstream.
type Claim struct {
	Text   string `json:"text"`
	Stance Stance `json:"stance"`
	Source string `json:"source,omitempty"`
}

// Citation points at an external source backing the findings.
type Citation struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// Findings is the output of one research task. Partial marks findings cut
// short by a deep research timeout.
type Findings struct {
	TopicID          string     `json:"topic_id"`
	Summary          string     `json:"summary"`
	KeyFacts         []KeyFact  `json:"key_facts,omitempty"`
	Claims           []Claim    `json:"claims,omitempty"`
	CounterArguments []string   `json:"counter_arguments,omitempty"`
	HumanStories     []string   `json:"human_stories,omitempty"`
	Citations        []Citation `json:"citations,omitempty"`
	Partial          bool       `json:"partial,omitempty"`
	GatheredAt       time.Time  `json:"gathered_at"`
}

// Clone returns a deep copy so later stages can annotate findings without
// mutating the research output.
func (f *Findings) Clone() *Findings {
	if f == nil {
		return nil
	}
	clone := *f
	clone.KeyFacts = append([]KeyFact(nil), f.KeyFacts...)
	clone.Claims = append([]Claim(nil), f.Claims...)
	clone.CounterArguments = append([]string(nil), f.CounterArguments...)
	clone.HumanStories = append([]string(nil), f.HumanStories...)
	clone.Citations = append([]Citation(nil), f.Citations...)
	return &clone
}
