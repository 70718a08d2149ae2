package sync

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/baiirun/phi/internal/github"
)

// SnapshotSource fetches one complete remote snapshot.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (*github.Snapshot, error)
}

// FetchResult carries either a snapshot or the error that prevented one.
// Exactly one field is set.
type FetchResult struct {
	Snapshot *github.Snapshot
	Err      error
}

// Fetcher runs snapshot fetches in the background, delivering each result on
// a one-shot channel. It allows at most one outstanding fetch: two concurrent
// reconciliations would race over the same local rows.
type Fetcher struct {
	source   SnapshotSource
	logger   *zap.Logger
	inFlight atomic.Bool
}

// NewFetcher builds a fetcher over the given source. logger may be nil.
func NewFetcher(source SnapshotSource, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, logger: logger}
}

// InFlight reports whether a fetch is currently running.
func (f *Fetcher) InFlight() bool {
	return f.inFlight.Load()
}

// Start kicks off a background fetch and returns a buffered channel that
// receives exactly one FetchResult. It returns ok=false without starting
// anything when a fetch is already in flight.
func (f *Fetcher) Start(ctx context.Context) (<-chan FetchResult, bool) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, false
	}

	ch := make(chan FetchResult, 1)
	go func() {
		defer f.inFlight.Store(false)

		snap, err := f.source.FetchSnapshot(ctx)
		if err != nil {
			f.logger.Warn("snapshot fetch failed", zap.Error(err))
			ch <- FetchResult{Err: err}
			return
		}
		ch <- FetchResult{Snapshot: snap}
	}()
	return ch, true
}
