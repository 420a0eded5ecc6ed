package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"
	"time"

	"horse.fit/newsroom/internal/embed"
	"horse.fit/newsroom/internal/globaltime"
)

// Batch owns the per-run shared state: the cancellation flag and the
// embedding cache. There is no process-wide mutable pipeline state.
type Batch struct {
	ID        string
	StartedAt time.Time

	cancelled atomic.Bool
	cache     *embed.Cache
}

func NewBatch() *Batch {
	return &Batch{
		ID:        newBatchID(),
		StartedAt: globaltime.Now(),
		cache:     embed.NewCache(),
	}
}

// Cancel flips the batch's cancellation flag. The pipeline checks it
// between stages; partial results of a cancelled batch are discarded.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

func (b *Batch) Cancelled() bool {
	return b.cancelled.Load()
}

// Cache is the batch-scoped embedding cache.
func (b *Batch) Cache() *embed.Cache {
	return b.cache
}

func newBatchID() string {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "batch-" + hex.EncodeToString([]byte(globaltime.Now().Format("20060102150405")))
	}
	return "batch-" + hex.EncodeToString(raw[:])
}
