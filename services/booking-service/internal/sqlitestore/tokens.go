package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

func (s *Store) GetCredentials(ctx context.Context, userID string) (model.Credentials, error) {
	var c model.Credentials
	var expiry sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expires_at FROM user_tokens WHERE user_id = ?
	`, userID).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expiry)
	if err != nil {
		return model.Credentials{}, notFound(err, "credentials for user", userID)
	}
	if t := fromNullUnix(expiry); t != nil {
		c.Expiry = *t
	}
	return c, nil
}

func (s *Store) SaveCredentials(ctx context.Context, c model.Credentials) error {
	var expiry sql.NullInt64
	if !c.Expiry.IsZero() {
		expiry = sql.NullInt64{Int64: unix(c.Expiry), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?5)
		ON CONFLICT (user_id) DO UPDATE
		SET access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN user_tokens.refresh_token ELSE excluded.refresh_token END,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, c.UserID, c.AccessToken, c.RefreshToken, expiry, unix(s.now()))
	return err
}
