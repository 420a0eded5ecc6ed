package store

import (
	"encoding/json"
	"time"
)

// BatchRecord maps newsroom.batches.
type BatchRecord struct {
	BatchID     string     `gorm:"column:batch_id;type:text;primaryKey"`
	StartedAt   time.Time  `gorm:"column:started_at;type:timestamptz;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz"`
	TopicCount  int        `gorm:"column:topic_count;type:integer;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (BatchRecord) TableName() string { return "newsroom.batches" }

// VerifiedTopicRecord maps newsroom.verified_topics. The payload column
// carries the full VerifiedTopic document; the scalar columns exist for
// listing and filtering without decoding jsonb.
type VerifiedTopicRecord struct {
	RowID            int64           `gorm:"column:row_id;primaryKey;autoIncrement"`
	BatchID          string          `gorm:"column:batch_id;type:text;not null;uniqueIndex:ux_topic_per_batch,priority:1;index"`
	TopicID          string          `gorm:"column:topic_id;type:text;not null;uniqueIndex:ux_topic_per_batch,priority:2"`
	Label            string          `gorm:"column:label;type:text;not null"`
	Depth            string          `gorm:"column:depth;type:text;not null"`
	Trend            string          `gorm:"column:trend;type:text;not null"`
	Priority         int             `gorm:"column:priority;type:integer;not null"`
	CorrelationScore float64         `gorm:"column:correlation_score;type:double precision;not null"`
	BalanceScore     float64         `gorm:"column:balance_score;type:double precision;not null"`
	ReviewPassed     bool            `gorm:"column:review_passed;type:boolean;not null"`
	EditorialScore   float64         `gorm:"column:editorial_score;type:double precision;not null"`
	Partial          bool            `gorm:"column:partial;type:boolean;not null;default:false"`
	Payload          json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	VerifiedAt       time.Time       `gorm:"column:verified_at;type:timestamptz;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (VerifiedTopicRecord) TableName() string { return "newsroom.verified_topics" }

func autoMigrateModels() []any {
	return []any{
		&BatchRecord{},
		&VerifiedTopicRecord{},
	}
}
