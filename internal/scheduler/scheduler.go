// Package scheduler repeats extraction runs on a cron schedule for the watch
// command.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled run. Its error is logged; the schedule continues.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron. Runs never overlap: a tick that fires while
// the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    Job
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	runs    int
	wg      sync.WaitGroup
}

// New creates a Scheduler for spec, a cron expression or "@every <duration>".
func New(spec string, job Job, logger zerolog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		job:    job,
		logger: logger,
	}, nil
}

// Start registers the job and starts the scheduler. One run is started
// immediately so the first results do not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() { s.fire(ctx) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("Scheduler started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fire(ctx)
	}()
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop halts the schedule and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Int("runs", s.Runs()).Msg("Scheduler stopped")
}

// Runs reports how many runs have started.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, tick skipped")
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

	s.logger.Info().Int("run", n).Msg("Scheduled run started")
	if err := s.job(ctx); err != nil {
		s.logger.Error().Err(err).Int("run", n).Msg("Scheduled run failed")
		return
	}
	s.logger.Info().Int("run", n).Msg("Scheduled run complete")
}
