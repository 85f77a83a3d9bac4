package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

const appointmentColumns = `
	a.id::text, a.seller_id::text, a.buyer_id::text, a.start_at, a.end_at, a.timezone, a.status,
	a.title, a.notes, COALESCE(a.seller_event_id, ''), COALESCE(a.buyer_event_id, ''),
	COALESCE(a.meeting_link, ''), a.cancelled_at, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(
		&a.ID,
		&a.SellerID,
		&a.BuyerID,
		&a.StartTime,
		&a.EndTime,
		&a.Timezone,
		&status,
		&a.Title,
		&a.Notes,
		&a.SellerEventRef,
		&a.BuyerEventRef,
		&a.MeetingLink,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	a.Status = model.AppointmentStatus(status)
	return a, err
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
}

// CreateConfirmed inserts appt as confirmed and queues the booked event in the
// same transaction. The appointments_no_overlap constraint rejects an interval
// that overlaps another confirmed appointment of the seller.
func (s *Store) CreateConfirmed(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	appt.ID = uuid.NewString()
	appt.Status = model.StatusConfirmed

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, seller_id, buyer_id, start_at, end_at, timezone, title, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, appt.ID, appt.SellerID, appt.BuyerID, appt.StartTime.UTC(), appt.EndTime.UTC(), appt.Timezone,
		appt.Title, appt.Notes, string(appt.Status)).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		switch {
		case IsConflict(err):
			return model.Appointment{}, fmt.Errorf("%w: seller %s is already booked at %s",
				model.ErrSlotUnavailable, appt.SellerID, appt.StartTime.UTC().Format(time.RFC3339))
		case isForeignKeyViolation(err), isInvalidText(err):
			return model.Appointment{}, fmt.Errorf("%w: seller or buyer", model.ErrNotFound)
		}
		return model.Appointment{}, err
	}

	if err := s.insertEvent(ctx, tx, outbox.EventAppointmentBooked, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		if IsConflict(err) {
			return model.Appointment{}, fmt.Errorf("%w: seller %s", model.ErrSlotUnavailable, appt.SellerID)
		}
		return model.Appointment{}, err
	}
	appt.StartTime = appt.StartTime.UTC()
	appt.EndTime = appt.EndTime.UTC()
	return appt, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", id)
	}
	return appt, nil
}

// Cancel flips a non-cancelled appointment to cancelled under a row lock.
// Cancelled rows are kept.
func (s *Store) Cancel(ctx context.Context, id string) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", id)
	}
	if appt.Status == model.StatusCancelled {
		return model.Appointment{}, fmt.Errorf("%w: %s", model.ErrAlreadyCancelled, id)
	}

	var cancelledAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			updated_at = now()
		WHERE id = $1
		RETURNING cancelled_at, updated_at
	`, id).Scan(&cancelledAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &cancelledAt

	if err := s.insertEvent(ctx, tx, outbox.EventAppointmentCancelled, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// ConfirmedForSellerOnDate returns confirmed appointments that intersect the
// seller's local day [date 00:00, date+1 00:00) in loc, including one that
// started the evening before and runs past midnight.
func (s *Store) ConfirmedForSellerOnDate(ctx context.Context, sellerID string, date timeofday.Date, loc *time.Location) ([]model.Appointment, error) {
	dayStart, dayEnd := date.Bounds(loc)
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.seller_id = $1
			AND a.status = 'confirmed'
			AND a.start_at < $3
			AND a.end_at > $2
		ORDER BY a.start_at ASC
	`, sellerID, dayStart, dayEnd)
	if err != nil {
		return nil, notFound(err, "seller", sellerID)
	}
	return collectAppointments(rows)
}

func (s *Store) SetCalendarRefs(ctx context.Context, id string, refs model.CalendarRefs) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET seller_event_id = NULLIF($2, ''),
			buyer_event_id = NULLIF($3, ''),
			meeting_link = NULLIF($4, ''),
			updated_at = now()
		WHERE id = $1
	`, id, refs.SellerEventRef, refs.BuyerEventRef, refs.MeetingLink)
	if err != nil {
		return notFound(err, "appointment", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	return nil
}

// ListForUser returns appointments where userID is the buyer or owns the
// seller profile, most recent first.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN sellers s ON s.id = a.seller_id
		WHERE a.buyer_id = $1 OR s.user_id = $1
		ORDER BY a.start_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		if isInvalidText(err) {
			return []model.Appointment{}, nil
		}
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *Store) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment) error {
	if s.outbox == nil {
		return nil
	}
	evt, err := outbox.AppointmentEvent(eventType, appt)
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, evt)
}
