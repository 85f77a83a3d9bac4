package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

func (s *Store) GetCredentials(ctx context.Context, userID string) (model.Credentials, error) {
	var c model.Credentials
	var expiry *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT user_id::text, access_token, refresh_token, expires_at
		FROM user_tokens
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expiry)
	if err != nil {
		return model.Credentials{}, notFound(err, "credentials for user", userID)
	}
	if expiry != nil {
		c.Expiry = *expiry
	}
	return c, nil
}

// SaveCredentials upserts a user's tokens. An empty refresh token keeps the
// stored one, since providers only rotate it occasionally.
func (s *Store) SaveCredentials(ctx context.Context, c model.Credentials) error {
	var expiry *time.Time
	if !c.Expiry.IsZero() {
		e := c.Expiry.UTC()
		expiry = &e
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN user_tokens.refresh_token ELSE EXCLUDED.refresh_token END,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, c.UserID, c.AccessToken, c.RefreshToken, expiry)
	return err
}
