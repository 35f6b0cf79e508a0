package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
)

// RunStatus represents the outcome of one warm-up run
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusSuccess  RunStatus = "SUCCESS"
	RunStatusDegraded RunStatus = "DEGRADED"
	RunStatusFailed   RunStatus = "FAILED"
)

// SummaryComputer computes a funnel summary for a period code
type SummaryComputer interface {
	ComputeFunnelSummary(ctx context.Context, code string) (report.FunnelSummary, error)
}

// WarmerConfig holds cache warmer configuration
type WarmerConfig struct {
	Enabled bool
	// Interval between two warm-up runs
	Interval time.Duration
	// JobTimeout bounds a whole run across all period codes
	JobTimeout time.Duration
	// RunOnStart triggers a run as soon as the warmer starts
	RunOnStart bool
}

// DefaultWarmerConfig returns default warmer configuration
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		Enabled:    true,
		Interval:   10 * time.Minute,
		JobTimeout: 2 * time.Minute,
		RunOnStart: true,
	}
}

// Run describes one warm-up pass
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Periods     int        `json:"periods"`
	Degraded    []string   `json:"degraded,omitempty"`
	TokenError  string     `json:"token_error,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Status is a snapshot of the warmer state
type Status struct {
	Enabled   bool          `json:"enabled"`
	Running   bool          `json:"running"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	LastRun   *Run          `json:"last_run,omitempty"`
	NextRunAt *time.Time    `json:"next_run_at,omitempty"`
}

// CacheWarmer periodically refreshes the access token and recomputes the
// funnel summary of every period code so provider payloads stay cached
type CacheWarmer struct {
	config    WarmerConfig
	summaries SummaryComputer
	tokens    integration.TokenProvider
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	runMu     sync.Mutex
	isRunning bool

	runs      int64
	lastRun   *Run
	nextRunAt *time.Time
}

// NewCacheWarmer creates a new cache warmer. tokens may be nil when the ad
// platform is not configured.
func NewCacheWarmer(config WarmerConfig, summaries SummaryComputer, tokens integration.TokenProvider, logger *zap.Logger) (*CacheWarmer, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrWarmerConfig, config.Interval)
	}
	if summaries == nil {
		return nil, fmt.Errorf("%w: summary computer is required", ErrWarmerConfig)
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultWarmerConfig().JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{
		config:    config,
		summaries: summaries,
		tokens:    tokens,
		logger:    logger,
	}, nil
}

// Start starts the warm-up loop
func (w *CacheWarmer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.scheduleNext(time.Now())

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("Cache warmer started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("job_timeout", w.config.JobTimeout),
		zap.Bool("run_on_start", w.config.RunOnStart),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight run to finish
func (w *CacheWarmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.nextRunAt = nil
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Cache warmer stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Cache warmer stop timed out")
		return ctx.Err()
	}
}

// TriggerRun starts an out-of-schedule run in the background
func (w *CacheWarmer) TriggerRun(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return ErrWarmerStopped
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.RunOnce(context.WithoutCancel(ctx))
	}()
	return nil
}

func (w *CacheWarmer) loop(ctx context.Context) {
	defer w.wg.Done()

	if w.config.RunOnStart {
		w.RunOnce(ctx)
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.RunOnce(ctx)
			w.scheduleNext(now)
		}
	}
}

// RunOnce refreshes the token and warms every period code. A run that
// overlaps another one is skipped and returns nil.
func (w *CacheWarmer) RunOnce(ctx context.Context) *Run {
	if !w.runMu.TryLock() {
		w.logger.Debug("Cache warm-up already in progress, skipping")
		return nil
	}
	defer w.runMu.Unlock()

	run := &Run{
		ID:        uuid.New(),
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	logger := w.logger.With(zap.String("run_id", run.ID.String()))
	logger.Debug("Cache warm-up started")

	ctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	if w.tokens != nil {
		if _, err := w.tokens.EnsureValidToken(ctx); err != nil {
			run.TokenError = err.Error()
			logger.Warn("Token refresh during warm-up failed", zap.Error(err))
		}
	}

	degraded := make(map[string]struct{})
	for _, code := range report.AllPeriodCodes() {
		summary, err := w.summaries.ComputeFunnelSummary(ctx, string(code))
		if err != nil {
			run.Error = err.Error()
			logger.Error("Cache warm-up failed",
				zap.String("period", string(code)),
				zap.Error(err),
			)
			break
		}
		run.Periods++
		for source, status := range summary.Sources {
			if status.State == report.SourceStateDegraded {
				degraded[string(source)] = struct{}{}
			}
		}
	}

	for source := range degraded {
		run.Degraded = append(run.Degraded, source)
	}
	sort.Strings(run.Degraded)

	completed := time.Now()
	run.CompletedAt = &completed
	switch {
	case run.Error != "":
		run.Status = RunStatusFailed
	case len(run.Degraded) > 0 || run.TokenError != "":
		run.Status = RunStatusDegraded
	default:
		run.Status = RunStatusSuccess
	}

	w.mu.Lock()
	w.runs++
	w.lastRun = run
	w.mu.Unlock()

	logger.Info("Cache warm-up finished",
		zap.String("status", string(run.Status)),
		zap.Int("periods", run.Periods),
		zap.Strings("degraded", run.Degraded),
		zap.Duration("elapsed", completed.Sub(run.StartedAt)),
	)
	return run
}

func (w *CacheWarmer) scheduleNext(from time.Time) {
	next := from.Add(w.config.Interval)
	w.mu.Lock()
	if w.isRunning {
		w.nextRunAt = &next
	}
	w.mu.Unlock()
}

// Status returns the current state of the warmer
func (w *CacheWarmer) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := Status{
		Enabled:  w.config.Enabled,
		Running:  w.isRunning,
		Interval: w.config.Interval,
		Runs:     w.runs,
	}
	if w.lastRun != nil {
		run := *w.lastRun
		status.LastRun = &run
	}
	if w.nextRunAt != nil {
		next := *w.nextRunAt
		status.NextRunAt = &next
	}
	return status
}
