package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"horse.fit/newsroom/internal/globaltime"
	"horse.fit/newsroom/internal/verify"
)

// BatchSummary is the read model for batch listings.
type BatchSummary struct {
	BatchID     string     `json:"batch_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TopicCount  int        `json:"topic_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TopicStore persists completed batches. It implements the pipeline's
// Store contract and serves the HTTP read surface.
type TopicStore struct {
	pool *Pool
}

func NewTopicStore(pool *Pool) *TopicStore {
	return &TopicStore{pool: pool}
}

// SaveTopics writes one completed batch atomically. Re-running a batch ID
// replaces its previous topics.
func (s *TopicStore) SaveTopics(ctx context.Context, batchID string, topics []verify.VerifiedTopic) error {
	trimmedID := strings.TrimSpace(batchID)
	if trimmedID == "" {
		return fmt.Errorf("batch ID is required")
	}

	tx, err := s.pool.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := globaltime.Now()

	const upsertBatch = `
INSERT INTO newsroom.batches (batch_id, started_at, completed_at, topic_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (batch_id) DO UPDATE SET
	completed_at = EXCLUDED.completed_at,
	topic_count  = EXCLUDED.topic_count,
	updated_at   = now()
`
	if _, err := tx.Exec(ctx, upsertBatch, trimmedID, now, now, len(topics)); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}

	const deleteTopics = `
DELETE FROM newsroom.verified_topics WHERE batch_id = $1
`
	if _, err := tx.Exec(ctx, deleteTopics, trimmedID); err != nil {
		return fmt.Errorf("clear previous topics: %w", err)
	}

	const insertTopic = `
INSERT INTO newsroom.verified_topics (
	batch_id, topic_id, label, depth, trend, priority,
	correlation_score, balance_score, review_passed, editorial_score,
	partial, payload, verified_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
`
	for _, topic := range topics {
		payload, err := json.Marshal(topic)
		if err != nil {
			return fmt.Errorf("encode topic %s: %w", topic.TopicID, err)
		}
		if _, err := tx.Exec(ctx, insertTopic,
			trimmedID,
			topic.TopicID,
			topic.Label,
			string(topic.Depth),
			string(topic.Trend),
			topic.Priority,
			topic.CorrelationScore,
			topic.BalanceScore,
			topic.ReviewPassed,
			topic.EditorialScore,
			topic.Partial,
			payload,
			topic.VerifiedAt,
		); err != nil {
			return fmt.Errorf("insert topic %s: %w", topic.TopicID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// ListBatches returns the most recent batches, newest first.
func (s *TopicStore) ListBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	b.batch_id,
	b.started_at,
	b.completed_at,
	b.topic_count,
	b.created_at
FROM newsroom.batches b
ORDER BY b.started_at DESC, b.batch_id DESC
LIMIT $1
`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := make([]BatchSummary, 0, limit)
	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.BatchID, &b.StartedAt, &b.CompletedAt, &b.TopicCount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}
	return batches, nil
}

// GetBatch returns one batch summary by ID.
func (s *TopicStore) GetBatch(ctx context.Context, batchID string) (*BatchSummary, error) {
	trimmedID := strings.TrimSpace(batchID)
	if trimmedID == "" {
		return nil, fmt.Errorf("batch ID is required")
	}

	const q = `
SELECT
	b.batch_id,
	b.started_at,
	b.completed_at,
	b.topic_count,
	b.created_at
FROM newsroom.batches b
WHERE b.batch_id = $1
`
	var b BatchSummary
	err := s.pool.QueryRow(ctx, q, trimmedID).Scan(
		&b.BatchID, &b.StartedAt, &b.CompletedAt, &b.TopicCount, &b.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("query batch %s: %w", trimmedID, err)
	}
	return &b, nil
}

// ListTopics returns a batch's verified topics in priority order.
func (s *TopicStore) ListTopics(ctx context.Context, batchID string) ([]verify.VerifiedTopic, error) {
	trimmedID := strings.TrimSpace(batchID)
	if trimmedID == "" {
		return nil, fmt.Errorf("batch ID is required")
	}

	const q = `
SELECT t.payload
FROM newsroom.verified_topics t
WHERE t.batch_id = $1
ORDER BY t.priority DESC, t.topic_id ASC
`
	rows, err := s.pool.Query(ctx, q, trimmedID)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []verify.VerifiedTopic
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		var topic verify.VerifiedTopic
		if err := json.Unmarshal(payload, &topic); err != nil {
			return nil, fmt.Errorf("decode topic payload: %w", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic rows: %w", err)
	}
	return topics, nil
}
