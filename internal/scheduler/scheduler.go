// Package scheduler runs the ledger's maintenance checks on a cron spec.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "cardledger/internal/log"
	"cardledger/internal/services"

	"github.com/robfig/cron/v3"
)

// Checker evaluates one maintenance check and reports whether it fired.
type Checker interface {
	RunCheck(ctx context.Context, kind services.CheckKind) (bool, error)
}

// Scheduler triggers the rollover and backup checks.
type Scheduler struct {
	engine  *cron.Cron
	checker Checker
	logger  *applog.Logger
	kinds   []services.CheckKind
	timeout time.Duration
}

type Option func(*Scheduler)

// WithLocation evaluates the cron expression in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.engine = cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	}
}

// WithTimeout bounds a single run of all checks.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New registers the checks under spec, a standard five-field cron
// expression. The scheduler is idle until Start.
func New(checker Checker, spec string, logger *applog.Logger, opts ...Option) (*Scheduler, error) {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	s := &Scheduler{
		checker: checker,
		logger:  logger.WithComponent(applog.ComponentScheduler),
		kinds:   []services.CheckKind{services.CheckRollover, services.CheckBackup},
		timeout: time.Minute,
	}
	s.engine = cron.New(cron.WithLocation(time.Local), cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	for _, o := range opts {
		o(s)
	}
	if _, err := s.engine.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule maintenance checks %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Maintenance checks failed", applog.FieldError, err)
	}
}

// RunOnce evaluates every check now and returns the ones that fired. A
// failing check does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) ([]services.CheckKind, error) {
	var fired []services.CheckKind
	var errs []error
	for _, kind := range s.kinds {
		due, err := s.checker.RunCheck(ctx, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s check: %w", kind, err))
			continue
		}
		if due {
			fired = append(fired, kind)
		}
		s.logger.DebugContext(ctx, "Maintenance check evaluated", applog.FieldJob, string(kind), "due", due)
	}
	return fired, errors.Join(errs...)
}

// Start runs the cron engine in its own goroutine.
func (s *Scheduler) Start() {
	s.engine.Start()
	s.logger.InfoContext(context.Background(), "Maintenance scheduler started", "entries", len(s.engine.Entries()))
}

// Stop prevents new runs and waits for a running one, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.engine.Stop()
	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "Maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the checks run next. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.engine.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.DebugContext(context.Background(), msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.ErrorContext(context.Background(), msg, append(keysAndValues, applog.FieldError, err)...)
}
