package integration

import (
	"context"
	"time"
)

// TokenData is the OAuth credential pair for the single upstream account
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsZero returns true when no access token is present
func (t TokenData) IsZero() bool {
	return t.AccessToken == ""
}

// TTL returns how long the access token remains valid at now.
// Negative values mean the token already expired.
func (t TokenData) TTL(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// TokenStore persists TokenData across process restarts
type TokenStore interface {
	// Load returns ErrTokenNotFound when nothing has been stored yet
	Load(ctx context.Context) (TokenData, error)
	Save(ctx context.Context, token TokenData) error
}

// TokenRefresher exchanges a refresh token for a new credential.
// ExpiresIn is the lifetime reported by the provider.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (RefreshResult, error)
}

// RefreshResult is the provider answer to a refresh_token grant
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}
