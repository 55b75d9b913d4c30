package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/insominiac/dancelink-staging-sub000/internal/clock"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
	"github.com/insominiac/dancelink-staging-sub000/internal/metrics"
)

// SweepRepository marks due holds expired and reports which items they
// belonged to.
type SweepRepository interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]domain.ItemKey, error)
}

// Sweeper periodically marks expired holds. It is bookkeeping, not a safety
// mechanism: every availability read already discounts holds past their
// expiry, so a delayed or stopped sweep never lets occupancy exceed
// capacity. The sweep keeps the active working set small and makes
// "timed out" visible to dashboards.
type Sweeper struct {
	repo        SweepRepository
	clock       clock.Clock
	interval    time.Duration
	batchSize   int
	logger      *log.Logger
	metrics     *metrics.Metrics
	invalidator AvailabilityInvalidator

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

const (
	defaultSweepInterval  = 30 * time.Second
	defaultSweepBatchSize = 500
)

func NewSweeper(repo SweepRepository, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:        repo,
		clock:       clk,
		interval:    defaultSweepInterval,
		batchSize:   defaultSweepBatchSize,
		logger:      log.Default(),
		invalidator: NoopInvalidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSweepBatchSize(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithSweepLogger(l *log.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSweepMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func WithSweepInvalidator(inv AvailabilityInvalidator) SweeperOption {
	return func(s *Sweeper) {
		if inv != nil {
			s.invalidator = inv
		}
	}
}

// Start launches the background loop. The first pass runs immediately.
// Each Start gets a fresh stop channel, so a stopped sweeper can be started
// again.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.logger.Printf("sweeper started interval=%s batch=%d", s.interval, s.batchSize)

	s.wg.Add(1)
	go s.loop(ctx, stopCh)
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Printf("sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass. Errors are logged and retried on the next tick; they
// never escape the loop or block foreground traffic.
func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Printf("sweep failed: %v", err)
		return
	}
	if expired > 0 {
		s.logger.Printf("sweep expired %d holds", expired)
	}
}

// SweepOnce marks all due holds (up to the batch size) expired and returns
// how many it touched.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	keys, err := s.repo.ExpireDue(ctx, s.clock.Now(), s.batchSize)
	s.metrics.ObserveSweep(len(keys), err)
	if err != nil {
		return 0, err
	}

	seen := make(map[domain.ItemKey]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		s.invalidator.Invalidate(ctx, key)
	}
	return len(keys), nil
}
