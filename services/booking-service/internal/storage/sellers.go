package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

const sellerColumns = `
	s.id::text, s.user_id::text, s.title, s.description, s.timezone, s.is_active, u.name, u.email, s.created_at`

func scanSeller(row pgx.Row) (model.Seller, error) {
	var s model.Seller
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Timezone, &s.IsActive, &s.Name, &s.Email, &s.CreatedAt)
	return s, err
}

func (s *Store) GetSeller(ctx context.Context, sellerID string) (model.Seller, error) {
	seller, err := scanSeller(s.pool.QueryRow(ctx, `
		SELECT `+sellerColumns+`
		FROM sellers s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`, sellerID))
	if err != nil {
		return model.Seller{}, notFound(err, "seller", sellerID)
	}
	return seller, nil
}

func (s *Store) GetSellerByUserID(ctx context.Context, userID string) (model.Seller, error) {
	seller, err := scanSeller(s.pool.QueryRow(ctx, `
		SELECT `+sellerColumns+`
		FROM sellers s
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1
	`, userID))
	if err != nil {
		return model.Seller{}, notFound(err, "seller profile for user", userID)
	}
	return seller, nil
}

// UpsertSellerForUser creates the user's seller profile on first use and
// otherwise updates its timezone. An empty timezone leaves it unchanged.
func (s *Store) UpsertSellerForUser(ctx context.Context, userID, timezone string) (model.Seller, error) {
	timezone = strings.TrimSpace(timezone)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sellers (id, user_id, timezone)
		VALUES ($1, $2, COALESCE(NULLIF($3, ''), 'UTC'))
		ON CONFLICT (user_id) DO UPDATE
		SET timezone = CASE WHEN $3 = '' THEN sellers.timezone ELSE EXCLUDED.timezone END,
			updated_at = now()
	`, uuid.NewString(), userID, timezone)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Seller{}, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
		}
		return model.Seller{}, notFound(err, "user", userID)
	}
	return s.GetSellerByUserID(ctx, userID)
}

func (s *Store) ListActiveSellers(ctx context.Context) ([]model.Seller, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sellerColumns+`
		FROM sellers s
		JOIN users u ON u.id = s.user_id
		WHERE s.is_active
		ORDER BY s.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Seller, error) {
		return scanSeller(row)
	})
}

func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, name, email FROM users WHERE id = $1
	`, userID).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		return model.User{}, notFound(err, "user", userID)
	}
	return u, nil
}

// UpsertUser records the identity asserted by the access token.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name = '' THEN users.name ELSE EXCLUDED.name END,
			email = EXCLUDED.email
	`, u.ID, u.Name, u.Email)
	if isInvalidText(err) {
		return fmt.Errorf("%w: user id %q is not a uuid", model.ErrValidation, u.ID)
	}
	return err
}

// SetSellerProfile updates the public title and description of a seller.
func (s *Store) SetSellerProfile(ctx context.Context, sellerID, title, description string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sellers SET title = $2, description = $3, updated_at = now() WHERE id = $1
	`, sellerID, title, description)
	if err != nil {
		return notFound(err, "seller", sellerID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: seller %s", model.ErrNotFound, sellerID)
	}
	return nil
}
