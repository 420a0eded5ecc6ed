package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/newsroom/internal/correlate"
	"horse.fit/newsroom/internal/globaltime"
)

const (
	DefaultConcurrency  = 3
	DefaultQuickTimeout = 20 * time.Second
	DefaultPollInterval = 30 * time.Second
	DefaultDeepBudget   = 20 * time.Minute

	maxKeyFacts     = 8
	maxCounterArgs  = 5
	maxHumanStories = 3
)

// Options bounds the orchestrator. Zero values fall back to defaults.
type Options struct {
	Concurrency  int
	QuickTimeout time.Duration
	PollInterval time.Duration
	DeepBudget   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.QuickTimeout <= 0 {
		o.QuickTimeout = DefaultQuickTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.DeepBudget <= 0 {
		o.DeepBudget = DefaultDeepBudget
	}
	return o
}

// structuredBrief is the generator output used to summarize quick research.
type structuredBrief struct {
	Summary string  `json:"summary"`
	Claims  []Claim `json:"claims"`
}

// Orchestrator runs all research tasks for a batch concurrently under a
// bounded worker pool. One task's failure never blocks the others.
type Orchestrator struct {
	backend Backend
	opts    Options
	logger  zerolog.Logger
}

func NewOrchestrator(backend Backend, opts Options, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		opts:    opts.withDefaults(),
		logger:  logger.With().Str("component", "research-orchestrator").Logger(),
	}
}

// Run researches every topic and returns one task per topic in input
// order. Each task ends in a terminal state; tasks never block each other
// beyond the worker pool limit.
func (o *Orchestrator) Run(ctx context.Context, topics []correlate.CorrelatedTopic) []*Task {
	tasks := make([]*Task, len(topics))
	for i := range topics {
		tasks[i] = NewTask(&topics[i])
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i := range tasks {
		task := tasks[i]
		topic := &topics[i]
		g.Go(func() error {
			o.execute(gCtx, task, topic)
			return nil
		})
	}
	_ = g.Wait()

	// Tasks never started because the batch context died still need a
	// terminal state.
	for _, task := range tasks {
		if task.State() == TaskPending {
			_ = task.start(globaltime.Now())
			_ = task.fail(ctx.Err(), globaltime.Now())
		}
	}
	return tasks
}

func (o *Orchestrator) execute(ctx context.Context, task *Task, topic *correlate.CorrelatedTopic) {
	if err := task.start(globaltime.Now()); err != nil {
		o.logger.Error().Err(err).Str("topic_id", task.TopicID).Msg("task start rejected")
		return
	}
	logger := o.logger.With().Str("topic_id", task.TopicID).Str("depth", string(task.Depth)).Logger()

	var findings *Findings
	var err error
	if task.Depth == correlate.DepthDeep {
		var partial *Findings
		findings, partial, err = o.deepResearch(ctx, topic)
		if err != nil && partialBudgetExceeded(err) {
			if terr := task.timeout(partial, globaltime.Now()); terr != nil {
				logger.Error().Err(terr).Msg("timeout transition rejected")
			}
			logger.Warn().Msg("deep research exceeded budget, keeping partial findings")
			return
		}
	} else {
		findings, err = o.quickResearch(ctx, topic)
	}

	if err != nil {
		if ferr := task.fail(err, globaltime.Now()); ferr != nil {
			logger.Error().Err(ferr).Msg("fail transition rejected")
		}
		logger.Warn().Err(err).Msg("research task failed")
		return
	}

	o.enrich(ctx, findings, topic, logger)
	if cerr := task.complete(findings, globaltime.Now()); cerr != nil {
		logger.Error().Err(cerr).Msg("complete transition rejected")
		return
	}
	logger.Info().Int("key_facts", len(findings.KeyFacts)).Int("claims", len(findings.Claims)).Msg("research task completed")
}

// quickResearch is a bounded synchronous call chain under a hard timeout.
func (o *Orchestrator) quickResearch(ctx context.Context, topic *correlate.CorrelatedTopic) (*Findings, error) {
	qctx, cancel := context.WithTimeout(ctx, o.opts.QuickTimeout)
	defer cancel()

	results, err := o.backend.SearchGrounded(qctx, topic.Cluster.Label)
	if err != nil {
		return nil, fmt.Errorf("grounded search: %w", err)
	}

	findings := &Findings{
		TopicID:    topic.Cluster.ID,
		GatheredAt: globaltime.Now(),
	}
	for _, result := range results {
		if len(findings.KeyFacts) < maxKeyFacts && strings.TrimSpace(result.Snippet) != "" {
			findings.KeyFacts = append(findings.KeyFacts, KeyFact{
				Fact:       result.Snippet,
				Source:     result.URL,
				Confidence: result.Credibility,
			})
		}
		findings.Citations = append(findings.Citations, Citation{
			Title:  result.Title,
			URL:    result.URL,
			Source: result.Source,
		})
	}

	var brief structuredBrief
	if err := o.backend.GenerateStructured(qctx, briefPrompt(topic, findings.KeyFacts), &brief); err != nil {
		// Summarization is best effort; the claims fall back to the
		// cross-source common claims with neutral stance.
		findings.Summary = topic.Cluster.Label
		for _, claim := range topic.CommonClaims {
			findings.Claims = append(findings.Claims, Claim{Text: claim, Stance: StanceNeutral})
		}
		return findings, nil
	}
	findings.Summary = strings.TrimSpace(brief.Summary)
	if findings.Summary == "" {
		findings.Summary = topic.Cluster.Label
	}
	findings.Claims = brief.Claims
	return findings, nil
}

var errDeepBudgetExceeded = errors.New("deep research budget exceeded")

func partialBudgetExceeded(err error) bool {
	return errors.Is(err, errDeepBudgetExceeded)
}

// deepResearch submits an asynchronous job and polls it until completion
// or until the wall-clock budget runs out. The last partial findings seen
// are returned alongside the budget error so the caller can keep them.
func (o *Orchestrator) deepResearch(ctx context.Context, topic *correlate.CorrelatedTopic) (*Findings, *Findings, error) {
	jobID, err := o.backend.SubmitDeepResearch(ctx, deepQuery(topic))
	if err != nil {
		return nil, nil, fmt.Errorf("submit deep research: %w", err)
	}

	deadline := globaltime.Now().Add(o.opts.DeepBudget)
	var partial *Findings
	for {
		if !globaltime.Now().Before(deadline) {
			return nil, o.ensurePartial(partial, topic), errDeepBudgetExceeded
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(o.opts.PollInterval):
		}

		status, err := o.backend.PollDeepResearch(ctx, jobID)
		if err != nil {
			return nil, nil, fmt.Errorf("poll deep research: %w", err)
		}
		if status.Findings != nil {
			partial = status.Findings.Clone()
			partial.TopicID = topic.Cluster.ID
		}
		switch status.State {
		case DeepStateCompleted:
			if partial == nil {
				return nil, nil, fmt.Errorf("deep research completed without findings")
			}
			partial.GatheredAt = globaltime.Now()
			return partial, nil, nil
		case DeepStateFailed:
			return nil, nil, fmt.Errorf("deep research failed: %s", status.Error)
		}
	}
}

func (o *Orchestrator) ensurePartial(partial *Findings, topic *correlate.CorrelatedTopic) *Findings {
	if partial != nil {
		return partial
	}
	// Never hand the verifier a silently empty result: fall back to the
	// cross-source common claims gathered upstream.
	fallback := &Findings{
		TopicID:    topic.Cluster.ID,
		Summary:    topic.Cluster.Label,
		GatheredAt: globaltime.Now(),
	}
	for _, claim := range topic.CommonClaims {
		fallback.Claims = append(fallback.Claims, Claim{Text: claim, Stance: StanceNeutral})
	}
	return fallback
}

// enrich adds counter-arguments and human stories through secondary,
// independent backend calls. Both are non-fatal; a failure simply leaves
// the field empty.
func (o *Orchestrator) enrich(ctx context.Context, findings *Findings, topic *correlate.CorrelatedTopic, logger zerolog.Logger) {
	if findings == nil {
		return
	}
	var counterArgs []string
	var humanStories []string

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := o.backend.SearchGrounded(gCtx, "counterarguments and criticism of: "+topic.Cluster.Label)
		if err != nil {
			logger.Warn().Err(err).Msg("counter-argument search failed")
			return nil
		}
		for _, result := range results {
			if strings.TrimSpace(result.Snippet) == "" {
				continue
			}
			counterArgs = append(counterArgs, result.Snippet)
			if len(counterArgs) == maxCounterArgs {
				break
			}
		}
		return nil
	})
	g.Go(func() error {
		results, err := o.backend.SearchGrounded(gCtx, "first-hand accounts and personal experiences: "+topic.Cluster.Label)
		if err != nil {
			logger.Warn().Err(err).Msg("human story search failed")
			return nil
		}
		for _, result := range results {
			if strings.TrimSpace(result.Snippet) == "" {
				continue
			}
			humanStories = append(humanStories, result.Snippet)
			if len(humanStories) == maxHumanStories {
				break
			}
		}
		return nil
	})
	_ = g.Wait()

	findings.CounterArguments = counterArgs
	findings.HumanStories = humanStories
}

func briefPrompt(topic *correlate.CorrelatedTopic, facts []KeyFact) string {
	var b strings.Builder
	b.WriteString("Summarize the topic and extract stanced claims.\nTopic: ")
	b.WriteString(topic.Cluster.Label)
	for _, claim := range topic.CommonClaims {
		b.WriteString("\nReported claim: ")
		b.WriteString(claim)
	}
	for _, fact := range facts {
		b.WriteString("\nFact: ")
		b.WriteString(fact.Fact)
	}
	return b.String()
}

func deepQuery(topic *correlate.CorrelatedTopic) string {
	var b strings.Builder
	b.WriteString(topic.Cluster.Label)
	for _, claim := range topic.CommonClaims {
		b.WriteString("\n")
		b.WriteString(claim)
	}
	return b.String()
}
