package gc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stashd/stashd/internal/metrics"
)

const (
	// DefaultPollInterval is how often the queue is scanned.
	DefaultPollInterval = 30 * time.Second

	// DefaultBatchSize is the max keys swept per scan.
	DefaultBatchSize = 100
)

// OrphanQueue is the retry queue the sweeper drains.
type OrphanQueue interface {
	DueOrphans(ctx context.Context, now time.Time, limit int64) ([]string, error)
	EnqueueOrphan(ctx context.Context, key string, at time.Time) error
	RemoveOrphan(ctx context.Context, key string) error
	BumpOrphanAttempts(ctx context.Context, key string) (int, error)
}

// BlobDeleter deletes objects from the blob store.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Sweeper retries deletes of blobs that were left behind when a
// cross-store operation half-failed. Keys arrive via the orphan queue;
// each failed attempt is rescheduled with backoff until the delete
// sticks or attempts run out.
type Sweeper struct {
	queue        OrphanQueue
	blobs        BlobDeleter
	logger       *slog.Logger
	metrics      metrics.Recorder
	pollInterval time.Duration
	batchSize    int64
	maxAttempts  int

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewSweeper creates a new orphan blob sweeper.
func NewSweeper(queue OrphanQueue, blobs BlobDeleter, logger *slog.Logger, recorder metrics.Recorder) *Sweeper {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Sweeper{
		queue:        queue,
		blobs:        blobs,
		logger:       logger.With("component", "gc.sweeper"),
		metrics:      recorder,
		pollInterval: DefaultPollInterval,
		batchSize:    DefaultBatchSize,
		maxAttempts:  DefaultMaxAttempts,
	}
}

// Run starts the sweep loop. Blocks until context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("sweeper already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	s.logger.Info("gc sweeper started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		draining := s.draining
		s.mu.Unlock()

		if draining {
			s.logger.Info("gc sweeper draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			s.logger.Info("gc sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Error("sweep error", "error", err)
			}
		}
	}
}

// Shutdown gracefully stops the sweeper, completing any in-flight sweep.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	s.logger.Info("gc sweeper shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			s.logger.Info("gc sweeper shutdown complete")
			return nil
		case <-ctx.Done():
			s.logger.Warn("gc sweeper shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// SweepOnce drains one batch of due keys. Exported so operational
// tooling and tests can force a sweep without the poll loop.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	keys, err := s.queue.DueOrphans(ctx, time.Now(), s.batchSize)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sweepKey(ctx, key)
	}

	return nil
}

func (s *Sweeper) sweepKey(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.metrics.IncOrphanSwept("failed")
		s.reschedule(ctx, key, err)
		return
	}

	s.metrics.IncOrphanSwept("success")
	if err := s.queue.RemoveOrphan(ctx, key); err != nil {
		// The key stays queued; the next delete is a no-op.
		s.logger.Warn("failed to dequeue swept blob", "key", key, "error", err)
		return
	}
	s.logger.Info("orphaned blob deleted", "key", key)
}

func (s *Sweeper) reschedule(ctx context.Context, key string, cause error) {
	attempts, err := s.queue.BumpOrphanAttempts(ctx, key)
	if err != nil {
		s.logger.Error("failed to bump orphan attempts", "key", key, "error", err)
		return
	}

	if IsExhausted(attempts, s.maxAttempts) {
		s.logger.Error("giving up on orphaned blob",
			"key", key, "attempts", attempts, "error", cause)
		if err := s.queue.RemoveOrphan(ctx, key); err != nil {
			s.logger.Error("failed to dequeue abandoned blob", "key", key, "error", err)
		}
		return
	}

	retryAt := NextRetryAt(attempts - 1)
	if err := s.queue.EnqueueOrphan(ctx, key, retryAt); err != nil {
		s.logger.Error("failed to reschedule orphan", "key", key, "error", err)
		return
	}
	s.logger.Warn("orphaned blob delete failed, rescheduled",
		"key", key, "attempts", attempts, "retry_at", retryAt, "error", cause)
}
