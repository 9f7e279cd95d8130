// Package warmup refreshes the proxy cache on a schedule so the listings and
// global totals are usually answered without an upstream round-trip.
package warmup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/config"
	"github.com/robfig/cron/v3"
)

// Target is what the scheduler refreshes. *handlers.MarketHandler satisfies it.
type Target interface {
	WarmListings(ctx context.Context, page, perPage int) error
	WarmGlobal(ctx context.Context) error
}

// runTimeout bounds one refresh cycle.
const runTimeout = 30 * time.Second

// Scheduler runs the refresh on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	target  Target
	perPage int
	logger  *common.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs int
}

// New creates a scheduler and registers the refresh job. The schedule uses
// six fields, seconds first: "0 */1 * * * *" runs every minute.
func New(cfg config.WarmupConfig, target Target, logger *common.Logger) (*Scheduler, error) {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 50
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		target:  target,
		perPage: perPage,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	// SkipIfStillRunning keeps a slow upstream from stacking refreshes.
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(s.RunNow))
	if _, err := s.cron.AddJob(cfg.Schedule, job); err != nil {
		cancel()
		return nil, fmt.Errorf("register warmup job %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("per_page", s.perPage).Msg("cache warmup scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("cache warmup scheduler stopped")
}

// RunNow refreshes the first listings page and the global totals once.
// Failures are logged; the previous cache entries stay in place.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	if err := s.target.WarmListings(ctx, 1, s.perPage); err != nil {
		s.logger.Warn().Err(err).Msg("warmup: listings refresh failed")
	}
	if err := s.target.WarmGlobal(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("warmup: global stats refresh failed")
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	s.logger.Debug().Int64("duration_ms", time.Since(start).Milliseconds()).Msg("warmup complete")
}

// Runs reports how many refresh cycles have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
