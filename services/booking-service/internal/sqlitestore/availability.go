package sqlitestore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

// ReplaceWeeklyRules deletes and reinserts the seller's rules in one transaction.
func (s *Store) ReplaceWeeklyRules(ctx context.Context, sellerID string, rules []model.WeeklyRule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM sellers WHERE id = ?`, sellerID).Scan(&id); err != nil {
		return notFound(err, "seller", sellerID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seller_availability WHERE seller_id = ?`, sellerID); err != nil {
		return err
	}
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO seller_availability (id, seller_id, day_of_week, start_minute, end_minute, is_available)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), sellerID, int(r.DayOfWeek), r.StartMinute, r.EndMinute, r.Enabled); err != nil {
			return fmt.Errorf("insert availability: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RulesForDay(ctx context.Context, sellerID string, day time.Weekday) ([]model.WeeklyRule, error) {
	if err := s.sellerExists(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, `
		SELECT id, seller_id, day_of_week, start_minute, end_minute, is_available
		FROM seller_availability
		WHERE seller_id = ? AND day_of_week = ? AND is_available = 1
		ORDER BY start_minute ASC
	`, sellerID, int(day))
}

func (s *Store) WeeklyRules(ctx context.Context, sellerID string) ([]model.WeeklyRule, error) {
	if err := s.sellerExists(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, `
		SELECT id, seller_id, day_of_week, start_minute, end_minute, is_available
		FROM seller_availability
		WHERE seller_id = ?
		ORDER BY day_of_week ASC, start_minute ASC
	`, sellerID)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]model.WeeklyRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.WeeklyRule{}
	for rows.Next() {
		var r model.WeeklyRule
		var day int
		if err := rows.Scan(&r.ID, &r.SellerID, &day, &r.StartMinute, &r.EndMinute, &r.Enabled); err != nil {
			return nil, err
		}
		r.DayOfWeek = time.Weekday(day)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) sellerExists(ctx context.Context, sellerID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sellers WHERE id = ?`, sellerID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: seller %s", model.ErrNotFound, sellerID)
	}
	return nil
}
