package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"inspectbot/internal/crawler"
	"inspectbot/internal/models"
)

// Runner performs one acquisition pass.
type Runner interface {
	Run(ctx context.Context) (*models.CrawlSummary, error)
}

// SchedulerOptions configures a CrawlScheduler.
type SchedulerOptions struct {
	// Interval between passes when no daily time is set.
	Interval time.Duration
	// DailyAt, when set, runs passes at this local wall-clock time instead.
	DailyAt *ClockTime
	// RunOnStart runs a pass as soon as the scheduler starts.
	RunOnStart bool
	Logger     *zap.Logger
}

// ClockTime is an hour and minute of the day.
type ClockTime struct {
	Hour, Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// CrawlScheduler runs the acquisition pipeline in the background. Only one
// loop runs per scheduler.
type CrawlScheduler struct {
	runner     Runner
	interval   time.Duration
	dailyAt    *ClockTime
	runOnStart bool
	logger     *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCrawlScheduler creates a scheduler for runner.
func NewCrawlScheduler(runner Runner, opts SchedulerOptions) *CrawlScheduler {
	s := &CrawlScheduler{
		runner:     runner,
		interval:   opts.Interval,
		dailyAt:    opts.DailyAt,
		runOnStart: opts.RunOnStart,
		logger:     opts.Logger,
		now:        time.Now,
		after:      time.After,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.interval <= 0 {
		s.interval = 24 * time.Hour
	}
	return s
}

// Start launches the background loop. A second Start while the loop runs is
// ignored.
func (s *CrawlScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		s.logger.Warn("crawl scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop interrupts the current wait and waits up to timeout for the loop to
// exit. An in-flight pass is not interrupted. It reports whether the loop
// exited in time.
func (s *CrawlScheduler) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return true
	}
	cancel()

	select {
	case <-done:
		s.logger.Info("crawl scheduler stopped")
		return true
	case <-time.After(timeout):
		s.logger.Warn("crawl scheduler did not stop in time", zap.Duration("timeout", timeout))
		return false
	}
}

func (s *CrawlScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.dailyAt != nil {
		s.logger.Info("crawl scheduler started", zap.Stringer("daily_at", s.dailyAt))
	} else {
		s.logger.Info("crawl scheduler started", zap.Duration("interval", s.interval))
	}

	if s.runOnStart {
		s.runOnce(ctx)
	}

	for {
		wait := s.nextWait(s.now())
		s.logger.Info("next crawl scheduled", zap.Time("at", s.now().Add(wait)))

		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
			s.runOnce(ctx)
		}
	}
}

// nextWait returns how long to wait from now until the next pass.
func (s *CrawlScheduler) nextWait(now time.Time) time.Duration {
	if s.dailyAt == nil {
		return s.interval
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), s.dailyAt.Hour, s.dailyAt.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// runOnce runs one pass detached from the loop's cancellation. Panics and
// errors are logged and never end the loop.
func (s *CrawlScheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("crawl pass panicked", zap.Any("panic", r))
		}
	}()

	summary, err := s.runner.Run(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, crawler.ErrAlreadyRunning):
		s.logger.Info("crawl skipped, a pass is already running")
	case err != nil:
		s.logger.Error("crawl pass failed", zap.Error(err))
	case summary != nil:
		s.logger.Info("scheduled crawl finished", zap.String("status", summary.Status), zap.Int("total", summary.Total()))
	}
}
