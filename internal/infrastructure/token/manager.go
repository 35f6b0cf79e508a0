// Package token keeps the ad platform OAuth credential alive.
//
// The Manager serves the cached access token while it has more than
// RefreshThreshold left, refreshes it through a TokenRefresher otherwise,
// and persists every refreshed credential to a TokenStore so a restart
// resumes without interactive re-authentication.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshThreshold is the remaining lifetime below which a refresh is attempted
	RefreshThreshold = 30 * time.Minute
	// ExpirySafetyMargin is subtracted from the provider-reported lifetime
	ExpirySafetyMargin = 5 * time.Minute
	// DefaultTokenLifetime is assumed when the provider omits expires_in
	DefaultTokenLifetime = 24 * time.Hour
)

// RefreshObserver receives refresh outcomes, typically for metrics
type RefreshObserver interface {
	ObserveTokenRefresh(outcome string)
}

// Status describes the credential without exposing secrets
type Status struct {
	Configured   bool      `json:"configured"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	NeedsRefresh bool      `json:"needs_refresh"`
	LastRefresh  time.Time `json:"last_refresh,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Manager owns the single OAuth credential of the process
type Manager struct {
	store     integration.TokenStore
	refresher integration.TokenRefresher
	observer  RefreshObserver
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	token       integration.TokenData
	configured  bool
	lastRefresh time.Time
	lastError   string

	flight singleflight.Group
}

// ManagerOption is a functional option for configuring the Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger for the manager
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRefreshObserver registers an observer for refresh outcomes
func WithRefreshObserver(observer RefreshObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = observer
	}
}

// NewManager creates a manager in the unconfigured state. Call Start to load the stored credential.
func NewManager(store integration.TokenStore, refresher integration.TokenRefresher, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		refresher: refresher,
		logger:    zap.NewNop(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start loads the persisted credential. An empty store leaves the manager unconfigured.
func (m *Manager) Start(ctx context.Context) error {
	token, err := m.store.Load(ctx)
	if errors.Is(err, integration.ErrTokenNotFound) {
		m.logger.Warn("No stored ad platform token, ads source stays unconfigured")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	m.install(token)
	m.logger.Info("Loaded ad platform token",
		zap.Time("expires_at", token.ExpiresAt))
	return nil
}

// Seed installs token when nothing was loaded from the store, and persists it
func (m *Manager) Seed(ctx context.Context, token integration.TokenData) error {
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil
	}

	m.mu.RLock()
	configured := m.configured
	m.mu.RUnlock()
	if configured {
		return nil
	}

	m.install(token)
	if err := m.store.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to persist seeded token: %w", err)
	}
	m.logger.Info("Seeded ad platform token from configuration")
	return nil
}

// EnsureValidToken returns an access token, refreshing it first when it expires within RefreshThreshold.
// A failed refresh returns the previous token. Concurrent callers share one refresh.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	token, configured := m.token, m.configured
	m.mu.RUnlock()

	if !configured {
		return "", integration.ErrTokenUnavailable
	}
	if token.AccessToken != "" && token.TTL(m.now()) > RefreshThreshold {
		return token.AccessToken, nil
	}

	// the refresh outlives a cancelled caller so that waiting callers still get its result
	refreshCtx := context.WithoutCancel(ctx)
	v, err, _ := m.flight.Do("refresh", func() (interface{}, error) {
		return m.refresh(refreshCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refresh performs one refresh_token exchange and persists the result
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	current := m.token
	m.mu.RUnlock()

	// another flight may have completed between the caller's check and this one
	if current.AccessToken != "" && current.TTL(m.now()) > RefreshThreshold {
		return current.AccessToken, nil
	}

	if current.RefreshToken == "" {
		err := errors.New("no refresh token")
		m.recordFailure(err)
		return m.fallback(current, err)
	}

	result, err := m.refresher.Refresh(ctx, current.RefreshToken)
	if err == nil && result.AccessToken == "" {
		err = fmt.Errorf("%w: empty access token", integration.ErrInvalidResponse)
	}
	if err != nil {
		m.recordFailure(err)
		m.logger.Warn("Token refresh failed, keeping previous token",
			zap.Time("expires_at", current.ExpiresAt),
			zap.Error(err))
		return m.fallback(current, err)
	}

	lifetime := result.ExpiresIn
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	now := m.now()
	next := integration.TokenData{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    now.Add(lifetime - ExpirySafetyMargin),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}

	m.mu.Lock()
	m.token = next
	m.lastRefresh = now
	m.lastError = ""
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ObserveTokenRefresh("success")
	}

	if err := m.store.Save(ctx, next); err != nil {
		m.logger.Error("Failed to persist refreshed token", zap.Error(err))
	}

	m.logger.Info("Refreshed ad platform token", zap.Time("expires_at", next.ExpiresAt))
	return next.AccessToken, nil
}

// fallback returns the previous access token, or ErrTokenUnavailable when there is none
func (m *Manager) fallback(current integration.TokenData, cause error) (string, error) {
	if current.AccessToken == "" {
		return "", fmt.Errorf("%w: %v", integration.ErrTokenUnavailable, cause)
	}
	return current.AccessToken, nil
}

func (m *Manager) recordFailure(err error) {
	m.mu.Lock()
	m.lastError = err.Error()
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ObserveTokenRefresh("failure")
	}
}

func (m *Manager) install(token integration.TokenData) {
	m.mu.Lock()
	m.token = token
	m.configured = true
	m.mu.Unlock()
}

// Status reports the credential state
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.configured {
		return Status{}
	}
	return Status{
		Configured:   true,
		ExpiresAt:    m.token.ExpiresAt,
		NeedsRefresh: m.token.TTL(m.now()) <= RefreshThreshold,
		LastRefresh:  m.lastRefresh,
		LastError:    m.lastError,
	}
}

// Ensure Manager implements TokenProvider
var _ integration.TokenProvider = (*Manager)(nil)
