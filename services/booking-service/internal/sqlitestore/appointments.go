package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

const appointmentColumns = `
	id, seller_id, buyer_id, start_at, end_at, timezone, status, title, notes,
	COALESCE(seller_event_id, ''), COALESCE(buyer_event_id, ''), COALESCE(meeting_link, ''),
	cancelled_at, created_at, updated_at`

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	var status string
	var start, end, created, updated int64
	var cancelled sql.NullInt64
	err := row.Scan(&a.ID, &a.SellerID, &a.BuyerID, &start, &end, &a.Timezone, &status, &a.Title, &a.Notes,
		&a.SellerEventRef, &a.BuyerEventRef, &a.MeetingLink, &cancelled, &created, &updated)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.AppointmentStatus(status)
	a.StartTime = fromUnix(start)
	a.EndTime = fromUnix(end)
	a.CancelledAt = fromNullUnix(cancelled)
	a.CreatedAt = fromUnix(created)
	a.UpdatedAt = fromUnix(updated)
	return a, nil
}

func (s *Store) CreateConfirmed(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	now := s.now().UTC().Truncate(time.Second)
	appt.ID = uuid.NewString()
	appt.Status = model.StatusConfirmed
	appt.StartTime = appt.StartTime.UTC()
	appt.EndTime = appt.EndTime.UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, seller_id, buyer_id, start_at, end_at, timezone, title, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, appt.ID, appt.SellerID, appt.BuyerID, unix(appt.StartTime), unix(appt.EndTime), appt.Timezone,
		appt.Title, appt.Notes, string(appt.Status), unix(now), unix(now))
	switch {
	case isOverlap(err):
		return model.Appointment{}, fmt.Errorf("%w: seller %s is already booked at %s",
			model.ErrSlotUnavailable, appt.SellerID, appt.StartTime.Format(time.RFC3339))
	case isForeignKey(err):
		return model.Appointment{}, fmt.Errorf("%w: seller or buyer", model.ErrNotFound)
	case err != nil:
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(s.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = ?
	`, id))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", id)
	}
	return appt, nil
}

func (s *Store) Cancel(ctx context.Context, id string) (model.Appointment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	appt, err := scanAppointment(tx.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = ?
	`, id))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", id)
	}
	if appt.Status == model.StatusCancelled {
		return model.Appointment{}, fmt.Errorf("%w: %s", model.ErrAlreadyCancelled, id)
	}

	now := s.now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx, `
		UPDATE appointments SET status = 'cancelled', cancelled_at = ?, updated_at = ? WHERE id = ?
	`, unix(now), unix(now), id); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &now
	appt.UpdatedAt = now
	return appt, nil
}

// ConfirmedForSellerOnDate returns confirmed appointments intersecting the
// seller's local day of date in loc.
func (s *Store) ConfirmedForSellerOnDate(ctx context.Context, sellerID string, date timeofday.Date, loc *time.Location) ([]model.Appointment, error) {
	dayStart, dayEnd := date.Bounds(loc)
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE seller_id = ? AND status = 'confirmed' AND start_at < ? AND end_at > ?
		ORDER BY start_at ASC
	`, sellerID, unix(dayEnd), unix(dayStart))
}

func (s *Store) SetCalendarRefs(ctx context.Context, id string, refs model.CalendarRefs) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments
		SET seller_event_id = ?, buyer_event_id = ?, meeting_link = ?, updated_at = ?
		WHERE id = ?
	`, nullString(refs.SellerEventRef), nullString(refs.BuyerEventRef), nullString(refs.MeetingLink), unix(s.now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE buyer_id = ?1 OR seller_id IN (SELECT id FROM sellers WHERE user_id = ?1)
		ORDER BY start_at DESC
		LIMIT ?2
	`, userID, limit)
}

func (s *Store) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
