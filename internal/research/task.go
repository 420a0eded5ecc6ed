package research

import (
	"fmt"
	"sync"
	"time"

	"horse.fit/newsroom/internal/correlate"
)

// TaskState is the research task lifecycle state.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskTimedOut  TaskState = "timed_out"
	TaskFailed    TaskState = "failed"
)

// Task tracks one topic's research execution. Transitions only move
// forward: pending to running, running to exactly one terminal state.
type Task struct {
	TopicID  string
	Label    string
	Depth    correlate.Depth
	Priority int

	mu         sync.Mutex
	state      TaskState
	startedAt  time.Time
	finishedAt time.Time
	findings   *Findings
	err        error
}

func NewTask(topic *correlate.CorrelatedTopic) *Task {
	return &Task{
		TopicID:  topic.Cluster.ID,
		Label:    topic.Cluster.Label,
		Depth:    topic.Depth,
		Priority: topic.Priority,
		state:    TaskPending,
	}
}

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Findings returns the task's findings, which may be partial for a timed
// out task and nil for a failed one.
func (t *Task) Findings() *Findings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findings
}

func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() || t.finishedAt.IsZero() {
		return 0
	}
	return t.finishedAt.Sub(t.startedAt)
}

func (t *Task) start(now time.Time) error {
	return t.transition(TaskPending, TaskRunning, func() {
		t.startedAt = now
	})
}

func (t *Task) complete(findings *Findings, now time.Time) error {
	return t.transition(TaskRunning, TaskCompleted, func() {
		t.findings = findings
		t.finishedAt = now
	})
}

// timeout records whatever partial findings were gathered before the
// budget ran out. The findings are never nil so the verifier always has
// something to work with.
func (t *Task) timeout(partial *Findings, now time.Time) error {
	return t.transition(TaskRunning, TaskTimedOut, func() {
		if partial == nil {
			partial = &Findings{TopicID: t.TopicID, Summary: t.Label, GatheredAt: now}
		}
		partial.Partial = true
		t.findings = partial
		t.finishedAt = now
	})
}

func (t *Task) fail(err error, now time.Time) error {
	return t.transition(TaskRunning, TaskFailed, func() {
		t.err = err
		t.finishedAt = now
	})
}

func (t *Task) transition(from, to TaskState, apply func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != from {
		return fmt.Errorf("invalid task transition %s -> %s for topic %s", t.state, to, t.TopicID)
	}
	t.state = to
	apply()
	return nil
}
