package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

// ReplaceWeeklyRules swaps the seller's whole weekly schedule in one
// transaction. The seller row is locked so concurrent replacements serialize
// and readers see either the old or the new set.
func (s *Store) ReplaceWeeklyRules(ctx context.Context, sellerID string, rules []model.WeeklyRule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	if err := tx.QueryRow(ctx, `SELECT id::text FROM sellers WHERE id = $1 FOR UPDATE`, sellerID).Scan(&locked); err != nil {
		return notFound(err, "seller", sellerID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM seller_availability WHERE seller_id = $1`, sellerID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, r := range rules {
		batch.Queue(`
			INSERT INTO seller_availability (id, seller_id, day_of_week, start_minute, end_minute, is_available)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), sellerID, int(r.DayOfWeek), r.StartMinute, r.EndMinute, r.Enabled)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert availability: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// RulesForDay returns the enabled blocks of one weekday, earliest first.
func (s *Store) RulesForDay(ctx context.Context, sellerID string, day time.Weekday) ([]model.WeeklyRule, error) {
	if err := s.sellerExists(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, `
		SELECT id::text, seller_id::text, day_of_week, start_minute, end_minute, is_available
		FROM seller_availability
		WHERE seller_id = $1 AND day_of_week = $2 AND is_available
		ORDER BY start_minute ASC
	`, sellerID, int(day))
}

// WeeklyRules returns every stored rule including disabled day markers.
func (s *Store) WeeklyRules(ctx context.Context, sellerID string) ([]model.WeeklyRule, error) {
	if err := s.sellerExists(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, `
		SELECT id::text, seller_id::text, day_of_week, start_minute, end_minute, is_available
		FROM seller_availability
		WHERE seller_id = $1
		ORDER BY day_of_week ASC, start_minute ASC
	`, sellerID)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]model.WeeklyRule, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WeeklyRule, error) {
		var r model.WeeklyRule
		var day int
		err := row.Scan(&r.ID, &r.SellerID, &day, &r.StartMinute, &r.EndMinute, &r.Enabled)
		r.DayOfWeek = time.Weekday(day)
		return r, err
	})
}

func (s *Store) sellerExists(ctx context.Context, sellerID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sellers WHERE id = $1)`, sellerID).Scan(&exists)
	if err != nil {
		return notFound(err, "seller", sellerID)
	}
	if !exists {
		return fmt.Errorf("%w: seller %s", model.ErrNotFound, sellerID)
	}
	return nil
}
