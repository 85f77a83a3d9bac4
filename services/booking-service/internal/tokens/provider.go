// Package tokens keeps users' calendar access tokens fresh.
package tokens

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"golang.org/x/oauth2"
)

const (
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// refreshBefore is how close to expiry a stored token is still handed out.
	refreshBefore = 5 * time.Minute
)

type CredentialStore interface {
	GetCredentials(ctx context.Context, userID string) (model.Credentials, error)
	SaveCredentials(ctx context.Context, c model.Credentials) error
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type Provider struct {
	store  CredentialStore
	oauth  *oauth2.Config
	logger *slog.Logger
	now    func() time.Time
}

func NewProvider(store CredentialStore, cfg OAuthConfig, logger *slog.Logger) *Provider {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		store: store,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logger: logger,
		now:    time.Now,
	}
}

// GetValidAccessToken returns the user's access token, refreshing it when it
// expires within five minutes. It returns "" without error when the user has
// no credentials or the refresh is rejected.
func (p *Provider) GetValidAccessToken(ctx context.Context, userID string) (string, error) {
	creds, err := p.store.GetCredentials(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if !creds.Expiry.IsZero() && creds.Expiry.After(p.now().Add(refreshBefore)) {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		return "", nil
	}

	// An empty access token forces the source to hit the token endpoint.
	tok, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		p.logger.Warn("access token refresh failed", "user_id", userID, "err", err)
		return "", nil
	}

	refreshed := model.Credentials{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if err := p.store.SaveCredentials(ctx, refreshed); err != nil {
		p.logger.Warn("persist refreshed token failed", "user_id", userID, "err", err)
	}
	return tok.AccessToken, nil
}
