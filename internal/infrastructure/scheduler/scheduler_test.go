package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
)

type fakeSummaries struct {
	mu       sync.Mutex
	codes    []string
	err      error
	degraded bool
}

func (f *fakeSummaries) ComputeFunnelSummary(ctx context.Context, code string) (report.FunnelSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	if f.err != nil {
		return report.FunnelSummary{}, f.err
	}
	summary := report.NewFunnelSummary(report.PeriodRange{Code: report.PeriodCode(code)}, time.Now())
	if f.degraded {
		summary.Sources[integration.SourceAds] = report.SourceStatus{State: report.SourceStateDegraded, Error: "boom"}
	}
	summary.Sources[integration.SourceErp] = report.SourceStatus{State: report.SourceStateUnconfigured}
	return summary, nil
}

func (f *fakeSummaries) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

type fakeTokens struct {
	calls int32
	err   error
}

func (f *fakeTokens) EnsureValidToken(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return "token", f.err
}

func newTestWarmer(t *testing.T, cfg WarmerConfig, summaries SummaryComputer, tokens integration.TokenProvider) *CacheWarmer {
	t.Helper()
	w, err := NewCacheWarmer(cfg, summaries, tokens, zap.NewNop())
	require.NoError(t, err)
	return w
}

func TestNewCacheWarmer_InvalidConfig(t *testing.T) {
	_, err := NewCacheWarmer(WarmerConfig{Interval: 0}, &fakeSummaries{}, nil, nil)
	assert.ErrorIs(t, err, ErrWarmerConfig)

	_, err = NewCacheWarmer(WarmerConfig{Interval: time.Minute}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrWarmerConfig)
}

func TestDefaultWarmerConfig(t *testing.T) {
	cfg := DefaultWarmerConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
	assert.True(t, cfg.RunOnStart)
}

func TestCacheWarmer_RunOnceWarmsEveryPeriod(t *testing.T) {
	summaries := &fakeSummaries{}
	tokens := &fakeTokens{}
	w := newTestWarmer(t, DefaultWarmerConfig(), summaries, tokens)

	run := w.RunOnce(context.Background())
	require.NotNil(t, run)

	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.Equal(t, 4, run.Periods)
	assert.Empty(t, run.Degraded)
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, []string{"7d", "30d", "90d", "ytd"}, summaries.calls())
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.calls))

	status := w.Status()
	assert.Equal(t, int64(1), status.Runs)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, run.ID, status.LastRun.ID)
}

func TestCacheWarmer_TokenFailureDoesNotStopWarmUp(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	summaries := &fakeSummaries{degraded: true}
	tokens := &fakeTokens{err: integration.ErrTokenUnavailable}
	w, err := NewCacheWarmer(DefaultWarmerConfig(), summaries, tokens, zap.New(core))
	require.NoError(t, err)

	run := w.RunOnce(context.Background())
	require.NotNil(t, run)

	assert.Equal(t, RunStatusDegraded, run.Status)
	assert.Equal(t, 4, run.Periods)
	assert.Equal(t, []string{"vk"}, run.Degraded)
	assert.Contains(t, run.TokenError, "token unavailable")
	assert.Equal(t, 1, recorded.FilterMessage("Token refresh during warm-up failed").Len())
}

func TestCacheWarmer_ComputeErrorFailsRun(t *testing.T) {
	summaries := &fakeSummaries{err: errors.New("context deadline exceeded")}
	w := newTestWarmer(t, DefaultWarmerConfig(), summaries, nil)

	run := w.RunOnce(context.Background())
	require.NotNil(t, run)

	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Zero(t, run.Periods)
	assert.Len(t, summaries.calls(), 1)
}

func TestCacheWarmer_StartStop(t *testing.T) {
	summaries := &fakeSummaries{}
	cfg := WarmerConfig{Enabled: true, Interval: 20 * time.Millisecond, JobTimeout: time.Second, RunOnStart: true}
	w := newTestWarmer(t, cfg, summaries, nil)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Status().Running)
	assert.NotNil(t, w.Status().NextRunAt)

	assert.Eventually(t, func() bool {
		return w.Status().Runs >= 2
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	require.NoError(t, w.Stop(ctx))

	status := w.Status()
	assert.False(t, status.Running)
	assert.Nil(t, status.NextRunAt)

	// no further runs once stopped
	runs := status.Runs
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, runs, w.Status().Runs)
}

func TestCacheWarmer_TriggerRun(t *testing.T) {
	summaries := &fakeSummaries{}
	cfg := WarmerConfig{Enabled: true, Interval: time.Hour, JobTimeout: time.Second}
	w := newTestWarmer(t, cfg, summaries, nil)

	assert.ErrorIs(t, w.TriggerRun(context.Background()), ErrWarmerStopped)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.TriggerRun(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return w.Status().Runs == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, summaries.calls(), 4)
}
