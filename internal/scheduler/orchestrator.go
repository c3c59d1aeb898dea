package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/scoring"
)

// BoardRunner produces a scored board
type BoardRunner interface {
	Run(ctx context.Context) (*scoring.Report, error)
}

// BoardPublisher delivers a scored board downstream
type BoardPublisher interface {
	PublishBoard(ctx context.Context, report *scoring.Report) (string, error)
}

// Orchestrator runs the scoring pipeline once a day and keeps the latest board
type Orchestrator struct {
	runner    BoardRunner
	publisher BoardPublisher
	config    *Config
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	latest  *scoring.Report
	lastRun time.Time
	lastErr error
	cancel  context.CancelFunc
}

// Config holds scheduler configuration
type Config struct {
	DailyRunHour int           // Default: 10 (10 AM, after the board posts)
	RunOnStart   bool          // Default: true
	MaxRetries   int           // Default: 3
	RetryDelay   time.Duration // Default: 5m
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		DailyRunHour: 10,
		RunOnStart:   true,
		MaxRetries:   3,
		RetryDelay:   5 * time.Minute,
	}
}

// NewOrchestrator creates a scheduler. publisher may be nil when no stream is configured.
func NewOrchestrator(runner BoardRunner, publisher BoardPublisher, config *Config, logger *zap.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runner:    runner,
		publisher: publisher,
		config:    config,
		logger:    logger.Named("scheduler"),
		now:       time.Now,
	}
}

// Start runs the daily schedule until ctx is cancelled or Stop is called
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	o.logger.Info("scheduler started",
		zap.Int("daily_run_hour", o.config.DailyRunHour),
		zap.Bool("run_on_start", o.config.RunOnStart))

	if o.config.RunOnStart {
		o.runWithRetry(ctx)
	}

	for {
		next := nextRun(o.now(), o.config.DailyRunHour)
		wait := next.Sub(o.now())
		o.logger.Info("next scoring run", zap.Time("at", next), zap.Duration("in", wait.Round(time.Second)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Info("scheduler stopped")
			return
		case <-timer.C:
			o.runWithRetry(ctx)
		}
	}
}

// Stop cancels a running Start
func (o *Orchestrator) Stop() {
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// RunOnce scores and publishes one board, retrying whole-run failures
func (o *Orchestrator) RunOnce(ctx context.Context) (*scoring.Report, error) {
	var (
		report *scoring.Report
		err    error
	)
	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		report, err = o.runner.Run(ctx)
		if err == nil {
			break
		}

		o.logger.Warn("scoring run failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", o.config.MaxRetries),
			zap.Error(err))

		if attempt < o.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.config.RetryDelay):
			}
		}
	}

	o.mu.Lock()
	o.lastRun = o.now()
	o.lastErr = err
	if err == nil {
		o.latest = report
	}
	o.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("scoring run: %w", err)
	}

	if o.publisher != nil {
		if _, err := o.publisher.PublishBoard(ctx, report); err != nil {
			// the board is still served locally
			o.logger.Error("failed to publish board", zap.Error(err))
		}
	}
	return report, nil
}

func (o *Orchestrator) runWithRetry(ctx context.Context) {
	start := o.now()
	report, err := o.RunOnce(ctx)
	if err != nil {
		o.logger.Error("all scoring attempts failed", zap.Error(err))
		return
	}
	o.logger.Info("scoring run complete",
		zap.Int("rows", len(report.Rows)),
		zap.Duration("took", o.now().Sub(start).Round(time.Millisecond)))
}

// Latest returns the most recent successful board, or nil before the first run
func (o *Orchestrator) Latest() *scoring.Report {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := map[string]interface{}{
		"daily_run_hour": o.config.DailyRunHour,
		"max_retries":    o.config.MaxRetries,
		"has_board":      o.latest != nil,
	}
	if !o.lastRun.IsZero() {
		status["last_run"] = o.lastRun.Format(time.RFC3339)
	}
	if o.lastErr != nil {
		status["last_error"] = o.lastErr.Error()
	}
	return status
}

// nextRun returns the next occurrence of hour:00 strictly after now
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
