// Package scheduler runs the periodic index reconciliation and its on-demand trigger.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	indexuc "github.com/kailas-cloud/talentdex/internal/usecase/index"
)

// Reconciler re-synchronizes the index with the profile store (ISP).
type Reconciler interface {
	Reconcile(ctx context.Context) (indexuc.ReconcileReport, error)
}

// Scheduler wraps robfig/cron. Cron ticks and manual triggers share one
// in-flight guard, so at most one reconciliation runs at a time.
type Scheduler struct {
	cron    *cron.Cron
	job     Reconciler
	logger  *zap.Logger
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	base    context.Context
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a Scheduler. An empty spec disables the periodic run; Trigger still works.
func New(job Reconciler, spec string, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		job:     job,
		logger:  logger,
		spec:    spec,
		timeout: timeout,
		base:    context.Background(),
	}
}

// Start registers the reconcile job and starts the cron loop. Runs inherit ctx values
// but are bounded by the configured timeout.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.base = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if s.spec == "" {
		s.logger.Info("reconcile schedule disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.run("schedule") }); err != nil {
		return fmt.Errorf("cron.AddFunc %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("reconcile schedule started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for an in-flight run.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("reconcile schedule stopped")
}

// Trigger starts a reconciliation in the background. Returns false when one is already running.
func (s *Scheduler) Trigger() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.execute("manual")
	}()
	return true
}

// Running reports whether a reconciliation is in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

func (s *Scheduler) run(source string) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("reconcile skipped, previous run still active", zap.String("source", source))
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.running.Store(false)
	s.execute(source)
}

func (s *Scheduler) execute(source string) {
	s.mu.Lock()
	base := s.base
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.job.Reconcile(ctx)
	fields := []zap.Field{
		zap.String("source", source),
		zap.Int("indexed", report.Indexed),
		zap.Int("removed", report.Removed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.logger.Error("reconcile failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("reconcile complete", fields...)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
