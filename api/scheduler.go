/*
scheduler.go - Automated planned-change scheduler

PURPOSE:
  Periodically applies planned changes whose effective date has arrived and
  then recalculates every employee, so forecasts follow the roster without
  someone pressing "apply".

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on start
  - A bad planned change is logged and left pending; the sweep goes on
  - The engine stays synchronous; this is the only background worker

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: false)

USAGE:
  scheduler := NewPlannedChangeScheduler(handler.Lifecycle, handler.Recalc, logger)
  scheduler.Enabled = true
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ApplyDuePlannedChanges endpoint (manual trigger)
  - forecast/lifecycle.go: Lifecycle.ApplyDue
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/headcount-forecast/forecast"
	"go.uber.org/zap"
)

// PlannedChangeScheduler applies due planned changes on a ticker.
type PlannedChangeScheduler struct {
	Lifecycle     *forecast.Lifecycle
	Recalc        *forecast.Recalculator
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	now    func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPlannedChangeScheduler creates a disabled scheduler with a one-hour interval.
func NewPlannedChangeScheduler(lc *forecast.Lifecycle, recalc *forecast.Recalculator, logger *zap.Logger) *PlannedChangeScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlannedChangeScheduler{
		Lifecycle:     lc,
		Recalc:        recalc,
		CheckInterval: time.Hour,
		logger:        logger.Named("scheduler"),
		now:           time.Now,
	}
}

// Start begins the scheduler.
func (s *PlannedChangeScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *PlannedChangeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.logger.Info("stopped")
}

func (s *PlannedChangeScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// RunOnce applies every change due today and recalculates all employees.
func (s *PlannedChangeScheduler) RunOnce(ctx context.Context) (*forecast.ApplyReport, *forecast.Run, error) {
	asOf := forecast.DateOf(s.now())

	report, err := s.Lifecycle.ApplyDue(ctx, asOf)
	if err != nil {
		s.logger.Error("apply due changes failed", zap.String("as_of", asOf.String()), zap.Error(err))
		return report, nil, err
	}
	for _, f := range report.Failures {
		s.logger.Warn("planned change left pending",
			zap.Int64("change_id", f.ID), zap.String("kind", string(f.Kind)), zap.String("message", f.Message))
	}

	run, err := s.Recalc.Recalculate(ctx, forecast.AllEmployees())
	if err != nil {
		s.logger.Error("recalculation failed", zap.Error(err))
		return report, nil, err
	}

	s.logger.Info("sweep complete",
		zap.String("as_of", asOf.String()),
		zap.Int("applied", len(report.Applied)),
		zap.Int("failed", len(report.Failures)),
		zap.String("run_id", run.ID))
	return report, run, nil
}
