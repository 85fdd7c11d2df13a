package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/pkg/jobs"
)

const jobTypeIndexDeposit = "index_deposit"

type depositSnapshotLoader interface {
	GetByID(ctx context.Context, id string) (*models.Deposit, error)
	ListSummaries(ctx context.Context, filter models.DepositFilter) ([]models.DepositSummary, error)
}

// SearchServiceConfig tunes the index worker pool.
type SearchServiceConfig struct {
	Workers int
	Retries int
}

// DepositSearchService keeps an eventually consistent listing view of
// deposits. Writes reach it through an asynchronous job queue; Refresh waits
// for all queued writes to land.
type DepositSearchService struct {
	loader  depositSnapshotLoader
	queue   *jobs.Queue
	serial  *KeyedLocker
	metrics *MetricsService
	logger  *zap.Logger

	mu   sync.RWMutex
	rows map[string]models.DepositSummary

	pendingMu sync.Mutex
	pending   int64
	idle      chan struct{}
}

// NewDepositSearchService constructs the view. Call Start before indexing.
func NewDepositSearchService(loader depositSnapshotLoader, metrics *MetricsService, logger *zap.Logger, cfg SearchServiceConfig) *DepositSearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	s := &DepositSearchService{
		loader:  loader,
		serial:  NewKeyedLocker(),
		metrics: metrics,
		logger:  logger,
		rows:    make(map[string]models.DepositSummary),
	}
	s.queue = jobs.NewQueue("deposit-search", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
		OnDone:     s.done,
	})
	return s
}

// Start launches the index workers.
func (s *DepositSearchService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the index workers.
func (s *DepositSearchService) Stop() {
	s.queue.Stop()
}

// Index schedules the deposit's summary to be refreshed.
func (s *DepositSearchService) Index(depositID string) {
	s.addPending(1)
	err := s.queue.Enqueue(jobs.Job{ID: depositID, Type: jobTypeIndexDeposit, Payload: depositID})
	if err != nil {
		s.logger.Warn("failed to enqueue deposit index job", zap.Error(err), zap.String("deposit_id", depositID))
		s.addPending(-1)
	}
}

// Refresh blocks until every scheduled index job has been applied.
func (s *DepositSearchService) Refresh(ctx context.Context) error {
	for {
		s.pendingMu.Lock()
		if s.pending == 0 {
			s.pendingMu.Unlock()
			return nil
		}
		idle := s.idle
		s.pendingMu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Rebuild replaces the view with a fresh snapshot of the store.
func (s *DepositSearchService) Rebuild(ctx context.Context) error {
	rows, err := s.loader.ListSummaries(ctx, models.DepositFilter{})
	if err != nil {
		return fmt.Errorf("rebuild search view: %w", err)
	}
	next := make(map[string]models.DepositSummary, len(rows))
	for _, row := range rows {
		next[row.ID] = row
	}
	s.mu.Lock()
	s.rows = next
	s.mu.Unlock()
	s.logger.Info("deposit search view rebuilt", zap.Int("deposits", len(next)))
	return nil
}

// Search returns the matching page of summaries, newest first, and the
// total number of matches.
func (s *DepositSearchService) Search(filter models.DepositFilter) ([]models.DepositSummary, int) {
	s.mu.RLock()
	matches := make([]models.DepositSummary, 0, len(s.rows))
	for _, row := range s.rows {
		if filter.OwnerID != "" && row.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		matches = append(matches, row)
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return matches[start:end], total
}

func (s *DepositSearchService) handle(ctx context.Context, job jobs.Job) error {
	depositID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected index payload %T", job.Payload)
	}
	// Jobs for one deposit apply in turn so a slow load cannot overwrite a
	// snapshot taken after it.
	unlock, err := s.serial.Lock(ctx, depositID)
	if err != nil {
		return err
	}
	defer unlock()

	d, err := s.loader.GetByID(ctx, depositID)
	if errors.Is(err, sql.ErrNoRows) {
		s.mu.Lock()
		delete(s.rows, depositID)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rows[depositID] = d.Summary()
	s.mu.Unlock()
	return nil
}

func (s *DepositSearchService) done(job jobs.Job, err error) {
	if err != nil {
		s.logger.Warn("deposit index job failed", zap.Error(err), zap.String("deposit_id", job.ID))
	}
	s.addPending(-1)
}

func (s *DepositSearchService) addPending(delta int64) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	before := s.pending
	s.pending += delta
	if s.pending < 0 {
		s.pending = 0
	}
	switch {
	case before == 0 && s.pending > 0:
		s.idle = make(chan struct{})
	case before > 0 && s.pending == 0:
		close(s.idle)
	}
	s.metrics.SetSearchPending(s.pending)
}
