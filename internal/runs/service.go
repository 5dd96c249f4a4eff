package runs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/huddle/internal/ingest"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// Executor runs one ingestion variant.
type Executor interface {
	Run(ctx context.Context, variant ingest.Variant) (ingest.Summary, error)
}

// RunStore persists run rows. *Repository implements it.
type RunStore interface {
	Create(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	ResetStuck(ctx context.Context) (int64, error)
	Get(ctx context.Context, runID string) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}

// SummaryCache keeps the last summary per variant for quick reads.
type SummaryCache interface {
	SetLastSummary(ctx context.Context, summary ingest.Summary) error
}

// Service executes ingestion runs and records their outcome.
type Service struct {
	store    RunStore
	executor Executor
	cache    SummaryCache
	logger   *log.Logger

	now func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(store RunStore, executor Executor, cache SummaryCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[runs] ", log.LstdFlags)
	}

	return &Service{
		store:    store,
		executor: executor,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs the variant synchronously and records it. Bookkeeping failures are logged
// and never fail the run; the returned error is the pipeline's.
func (s *Service) Execute(ctx context.Context, variant ingest.Variant, trigger Trigger) (*Run, ingest.Summary, error) {
	run := &Run{
		RunID:     uuid.NewString(),
		Variant:   variant,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: s.now(),
	}

	if err := s.store.Create(ctx, run); err != nil {
		s.logger.Printf("⚠️  failed to record run %s: %v", run.RunID, err)
	}

	s.logger.Printf("Starting %s run %s (trigger=%s)", variant, run.RunID, trigger)

	summary, runErr := s.executor.Run(ctx, variant)

	completed := s.now()
	run.CompletedAt = &completed
	run.apply(summary)

	if runErr != nil {
		run.Status = StatusFailed
		run.LastError = runErr.Error()
		s.logger.Printf("❌ %s run %s failed: %v", variant, run.RunID, runErr)
	} else {
		run.Status = StatusCompleted
		s.logger.Printf("✓ %s run %s completed: count=%d written=%d", variant, run.RunID, summary.Count(), summary.Written)
	}

	// The request context may already be cancelled; bookkeeping still needs to land.
	bookkeeping, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Finish(bookkeeping, run); err != nil {
		s.logger.Printf("⚠️  failed to finalize run %s: %v", run.RunID, err)
	}

	if runErr == nil && s.cache != nil {
		if err := s.cache.SetLastSummary(bookkeeping, summary); err != nil {
			s.logger.Printf("⚠️  failed to cache summary for %s: %v", variant, err)
		}
	}

	return run.Copy(), summary, runErr
}

// ResetStuck marks runs orphaned by a restart as failed.
func (s *Service) ResetStuck(ctx context.Context) error {
	n, err := s.store.ResetStuck(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Printf("Marked %d interrupted runs as failed", n)
	}
	return nil
}

// Recent lists the most recent runs. limit is clamped to [1, 100]; zero means the default.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.store.ListRecent(ctx, limit)
}

// Get returns one run or ErrNotFound.
func (s *Service) Get(ctx context.Context, runID string) (*Run, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, runID)
}
