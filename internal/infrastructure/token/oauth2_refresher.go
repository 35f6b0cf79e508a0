package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/config"
	"golang.org/x/oauth2"
)

// OAuth2Refresher performs the refresh_token grant against the provider token endpoint
type OAuth2Refresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewOAuth2Refresher creates a refresher. Client credentials are sent in the request body.
func NewOAuth2Refresher(cfg config.TokenConfig, httpClient *http.Client) *OAuth2Refresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuth2Refresher{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// Refresh exchanges refreshToken for a new credential.
// A rejected grant maps to ErrTokenUnavailable, anything else to ErrUpstreamUnavailable.
func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (integration.RefreshResult, error) {
	if refreshToken == "" {
		return integration.RefreshResult{}, fmt.Errorf("%w: empty refresh token", integration.ErrTokenUnavailable)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			switch retrieveErr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				return integration.RefreshResult{}, fmt.Errorf("%w: %v", integration.ErrTokenUnavailable, err)
			}
		}
		return integration.RefreshResult{}, fmt.Errorf("%w: %v", integration.ErrUpstreamUnavailable, err)
	}

	var expiresIn time.Duration
	if !tok.Expiry.IsZero() {
		expiresIn = time.Until(tok.Expiry).Round(time.Second)
	}

	return integration.RefreshResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

var _ integration.TokenRefresher = (*OAuth2Refresher)(nil)
