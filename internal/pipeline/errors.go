package pipeline

import (
	"errors"
	"fmt"
)

// Fatal batch errors. Anything else is recoverable and degrades the batch
// instead of aborting it.
var (
	// ErrNoContent aborts the batch when every source came back empty.
	ErrNoContent = errors.New("no content fetched")
	// ErrNoClusters aborts the batch when clustering found no topics.
	ErrNoClusters = errors.New("no topic clusters formed")
	// ErrCancelled reports an operator-cancelled batch; partial results
	// are discarded.
	ErrCancelled = errors.New("batch cancelled")
)

// FetchError wraps a single connector failure. The batch skips the source
// and continues.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
