package sqlitestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

const sellerColumns = `
	s.id, s.user_id, s.title, s.description, s.timezone, s.is_active, u.name, u.email, s.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeller(row rowScanner) (model.Seller, error) {
	var s model.Seller
	var createdAt int64
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Timezone, &s.IsActive, &s.Name, &s.Email, &createdAt)
	s.CreatedAt = fromUnix(createdAt)
	return s, err
}

func (s *Store) GetSeller(ctx context.Context, sellerID string) (model.Seller, error) {
	seller, err := scanSeller(s.db.QueryRowContext(ctx, `
		SELECT `+sellerColumns+`
		FROM sellers s JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`, sellerID))
	if err != nil {
		return model.Seller{}, notFound(err, "seller", sellerID)
	}
	return seller, nil
}

func (s *Store) GetSellerByUserID(ctx context.Context, userID string) (model.Seller, error) {
	seller, err := scanSeller(s.db.QueryRowContext(ctx, `
		SELECT `+sellerColumns+`
		FROM sellers s JOIN users u ON u.id = s.user_id
		WHERE s.user_id = ?
	`, userID))
	if err != nil {
		return model.Seller{}, notFound(err, "seller profile for user", userID)
	}
	return seller, nil
}

func (s *Store) UpsertSellerForUser(ctx context.Context, userID, timezone string) (model.Seller, error) {
	now := unix(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sellers (id, user_id, timezone, created_at, updated_at)
		VALUES (?1, ?2, COALESCE(NULLIF(?3, ''), 'UTC'), ?4, ?4)
		ON CONFLICT (user_id) DO UPDATE
		SET timezone = CASE WHEN ?3 = '' THEN sellers.timezone ELSE excluded.timezone END,
			updated_at = ?4
	`, uuid.NewString(), userID, strings.TrimSpace(timezone), now)
	if err != nil {
		if isForeignKey(err) {
			return model.Seller{}, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
		}
		return model.Seller{}, err
	}
	return s.GetSellerByUserID(ctx, userID)
}

func (s *Store) ListActiveSellers(ctx context.Context) ([]model.Seller, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sellerColumns+`
		FROM sellers s JOIN users u ON u.id = s.user_id
		WHERE s.is_active = 1
		ORDER BY s.created_at ASC, s.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sellers := []model.Seller{}
	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		sellers = append(sellers, seller)
	}
	return sellers, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		return model.User{}, notFound(err, "user", userID)
	}
	return u, nil
}

func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, created_at)
		VALUES (?1, ?2, ?3, ?4)
		ON CONFLICT (id) DO UPDATE
		SET name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END,
			email = excluded.email
	`, u.ID, u.Name, u.Email, unix(s.now()))
	return err
}

// SetSellerProfile updates the public title and description of a seller.
func (s *Store) SetSellerProfile(ctx context.Context, sellerID, title, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sellers SET title = ?, description = ?, updated_at = ? WHERE id = ?
	`, title, description, unix(s.now()), sellerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: seller %s", model.ErrNotFound, sellerID)
	}
	return nil
}
