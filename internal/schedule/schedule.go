// Package schedule repeats scrape runs on a cron expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. It receives a context that is canceled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a standard five-field cron expression. Runs never
// overlap: a tick that arrives while the previous run is still going is
// skipped.
type Scheduler struct {
	cron     *cron.Cron
	entry    cron.EntryID
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	runs    int
	skipped int
}

// New creates a scheduler for spec in the given IANA timezone. An empty
// timezone means local time.
func New(spec, timezone string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	loc := time.Local
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		logger:   logger.With("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}

	id, err := s.cron.AddFunc(spec, func() { s.tick(job) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("add cron %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// tick runs job unless a previous run is still in progress.
func (s *Scheduler) tick(job Job) {
	s.mu.Lock()
	if s.running {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	s.running = true
	s.runs++
	n := s.runs
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("scheduled run starting", "run", n)
	if err := job(s.ctx); err != nil {
		s.logger.Error("scheduled run failed", "run", n, "error", err)
		return
	}
	s.logger.Info("scheduled run finished", "run", n, "elapsed", time.Since(start).Round(time.Millisecond))
}

// Start begins cron execution in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "next", s.Next().Format(time.RFC3339), "location", s.location.String())
}

// Stop cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// Next returns the next activation time.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Location returns the scheduler location.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Stats returns how many runs started and how many ticks were skipped.
func (s *Scheduler) Stats() (runs, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.skipped
}
