// Package booking coordinates slot lookup, booking and cancellation on top of
// the stores, the slot resolver and the external calendar.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	otelx "github.com/md-rashed-zaman/sellerbook/libs/otel"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otelx.Tracer("github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/booking")

type Config struct {
	// Duration is the fixed appointment length.
	Duration time.Duration
	// Interval is the step between candidate slot starts.
	Interval time.Duration
	// CalendarTimeout bounds each calendar call.
	CalendarTimeout time.Duration
	Now             func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Duration:        60 * time.Minute,
		Interval:        30 * time.Minute,
		CalendarTimeout: 5 * time.Second,
		Now:             time.Now,
	}
}

type Coordinator struct {
	store    Store
	calendar calendar.Port
	logger   *slog.Logger
	cfg      Config
}

func New(store Store, cal calendar.Port, logger *slog.Logger, cfg Config) *Coordinator {
	def := DefaultConfig()
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.CalendarTimeout <= 0 {
		cfg.CalendarTimeout = def.CalendarTimeout
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if cal == nil {
		cal = calendar.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, calendar: cal, logger: logger, cfg: cfg}
}

func (c *Coordinator) durationMinutes() int { return int(c.cfg.Duration / time.Minute) }

func (c *Coordinator) intervalMinutes() int { return int(c.cfg.Interval / time.Minute) }

// AvailableSlots lists the free slots of a seller's local calendar day.
func (c *Coordinator) AvailableSlots(ctx context.Context, sellerID string, date timeofday.Date) (SlotsResult, error) {
	ctx, span := tracer.Start(ctx, "booking.AvailableSlots", trace.WithAttributes(
		attribute.String("seller.id", sellerID),
		attribute.String("date", date.String()),
	))
	defer span.End()

	seller, err := c.store.GetSeller(ctx, sellerID)
	if err != nil {
		return SlotsResult{}, recordErr(span, err)
	}
	loc, err := timeofday.LoadLocation(seller.Timezone)
	if err != nil {
		return SlotsResult{}, recordErr(span, err)
	}
	slots, err := c.resolve(ctx, seller.ID, date, loc)
	if err != nil {
		return SlotsResult{}, recordErr(span, err)
	}
	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	return SlotsResult{SellerID: seller.ID, Date: date, Timezone: loc.String(), Slots: slots}, nil
}

func (c *Coordinator) resolve(ctx context.Context, sellerID string, date timeofday.Date, loc *time.Location) ([]availability.Slot, error) {
	rules, err := c.store.RulesForDay(ctx, sellerID, date.Weekday())
	if err != nil {
		return nil, err
	}
	blocks := availability.BlocksFromRules(rules)
	if len(blocks) == 0 {
		return []availability.Slot{}, nil
	}

	appts, err := c.store.ConfirmedForSellerOnDate(ctx, sellerID, date, loc)
	if err != nil {
		return nil, err
	}
	intervals := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		intervals = append(intervals, availability.Interval{Start: a.StartTime, End: a.EndTime})
	}

	return availability.Resolve(availability.Request{
		Blocks:   blocks,
		Booked:   availability.BookedFromInstants(date, loc, intervals),
		Duration: c.durationMinutes(),
		Interval: c.intervalMinutes(),
		Now:      c.cfg.Now(),
		Date:     date,
		Location: loc,
	})
}

// RequestBooking books the slot if it is still free in a fresh resolution.
// Once the appointment is being persisted the request no longer follows
// client cancellation. Calendar failures never fail the booking.
func (c *Coordinator) RequestBooking(ctx context.Context, req BookingRequest) (BookingResult, error) {
	ctx, span := tracer.Start(ctx, "booking.RequestBooking", trace.WithAttributes(
		attribute.String("seller.id", req.SellerID),
		attribute.String("date", req.Date),
		attribute.String("slot.start", req.SlotStart),
	))
	defer span.End()

	in, err := req.validate()
	if err != nil {
		return BookingResult{}, recordErr(span, err)
	}
	seller, err := c.store.GetSeller(ctx, req.SellerID)
	if err != nil {
		return BookingResult{}, recordErr(span, err)
	}
	if !seller.IsActive {
		return BookingResult{}, recordErr(span, fmt.Errorf("%w: seller %s is not accepting bookings", model.ErrNotFound, seller.ID))
	}
	loc, err := timeofday.LoadLocation(seller.Timezone)
	if err != nil {
		return BookingResult{}, recordErr(span, err)
	}
	buyer, err := c.store.GetUser(ctx, req.BuyerID)
	if err != nil {
		return BookingResult{}, recordErr(span, err)
	}

	slots, err := c.resolve(ctx, seller.ID, in.date, loc)
	if err != nil {
		return BookingResult{}, recordErr(span, err)
	}
	if !availability.Contains(slots, in.start) {
		return BookingResult{}, recordErr(span, fmt.Errorf("%w: %s %s is not an available slot",
			model.ErrSlotUnavailable, in.date, timeofday.Format(in.start)))
	}

	ctx = context.WithoutCancel(ctx)
	start := in.date.At(loc, in.start)
	appt, err := c.store.CreateConfirmed(ctx, model.Appointment{
		SellerID:  seller.ID,
		BuyerID:   buyer.ID,
		StartTime: start,
		EndTime:   start.Add(c.cfg.Duration),
		Timezone:  loc.String(),
		Title:     seller.Title,
		Notes:     req.Notes,
	})
	if err != nil {
		return BookingResult{}, recordErr(span, err)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))
	c.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"seller_id", seller.ID,
		"buyer_id", buyer.ID,
		"start", appt.StartTime,
	)

	result := BookingResult{Appointment: appt}
	c.createCalendarEvent(ctx, &result, seller, buyer)
	return result, nil
}

func (c *Coordinator) createCalendarEvent(ctx context.Context, result *BookingResult, seller model.Seller, buyer model.User) {
	calCtx, cancel := context.WithTimeout(ctx, c.cfg.CalendarTimeout)
	defer cancel()

	appt := result.Appointment
	ref, err := c.calendar.CreateEvent(calCtx, seller.UserID, calendar.NewBookingEvent(appt, seller, buyer))
	if err != nil {
		c.logCalendarFailure("calendar event not created", err, appt.ID, "seller")
		return
	}

	refs := model.CalendarRefs{SellerEventRef: ref.EventID, MeetingLink: ref.MeetLink}
	if !refs.Empty() {
		if err := c.store.SetCalendarRefs(ctx, appt.ID, refs); err != nil {
			c.logger.Warn("store calendar refs failed", "appointment_id", appt.ID, "err", err)
		}
	}
	result.Appointment.CalendarRefs = refs
	result.CalendarEventCreated = true
	result.EventLink = ref.EventLink
	result.MeetLink = ref.MeetLink
}

// CancelBooking cancels an appointment on behalf of its buyer or the seller's
// owning user, then removes both calendar sides independently.
func (c *Coordinator) CancelBooking(ctx context.Context, req CancelRequest) (CancellationResult, error) {
	ctx, span := tracer.Start(ctx, "booking.CancelBooking", trace.WithAttributes(
		attribute.String("appointment.id", req.AppointmentID),
	))
	defer span.End()

	if err := req.validate(); err != nil {
		return CancellationResult{}, recordErr(span, err)
	}
	appt, err := c.store.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return CancellationResult{}, recordErr(span, err)
	}
	seller, err := c.store.GetSeller(ctx, appt.SellerID)
	if err != nil {
		return CancellationResult{}, recordErr(span, err)
	}
	if req.ActingUserID != appt.BuyerID && req.ActingUserID != seller.UserID {
		return CancellationResult{}, recordErr(span, fmt.Errorf("%w: user may not cancel appointment %s", model.ErrForbidden, appt.ID))
	}
	switch appt.Status {
	case model.StatusCancelled:
		return CancellationResult{}, recordErr(span, fmt.Errorf("%w: %s", model.ErrAlreadyCancelled, appt.ID))
	case model.StatusCompleted:
		return CancellationResult{}, recordErr(span, fmt.Errorf("%w: appointment %s is already completed", model.ErrValidation, appt.ID))
	}

	ctx = context.WithoutCancel(ctx)
	cancelled, err := c.store.Cancel(ctx, appt.ID)
	if err != nil {
		return CancellationResult{}, recordErr(span, err)
	}
	c.logger.Info("appointment cancelled", "appointment_id", appt.ID, "by_user_id", req.ActingUserID)

	result := CancellationResult{Appointment: cancelled}
	if ref := appt.SellerEventRef; ref != "" {
		result.SellerEventDeleted = c.deleteCalendarEvent(ctx, seller.UserID, ref, appt.ID, "seller")
	}
	if ref := appt.BuyerEventRef; ref != "" {
		result.BuyerEventDeleted = c.deleteCalendarEvent(ctx, appt.BuyerID, ref, appt.ID, "buyer")
	}
	return result, nil
}

func (c *Coordinator) deleteCalendarEvent(ctx context.Context, ownerUserID, eventID, appointmentID, side string) bool {
	calCtx, cancel := context.WithTimeout(ctx, c.cfg.CalendarTimeout)
	defer cancel()
	if err := c.calendar.DeleteEvent(calCtx, ownerUserID, eventID); err != nil {
		c.logCalendarFailure("calendar event not deleted", err, appointmentID, side)
		return false
	}
	return true
}

func (c *Coordinator) logCalendarFailure(msg string, err error, appointmentID, side string) {
	level := slog.LevelWarn
	if errors.Is(err, calendar.ErrNoCalendarAccess) {
		level = slog.LevelInfo
	}
	c.logger.Log(context.Background(), level, msg, "appointment_id", appointmentID, "side", side, "err", err)
}

// ListAppointments returns the user's appointments as buyer and as seller,
// most recent first.
func (c *Coordinator) ListAppointments(ctx context.Context, userID string) ([]AppointmentView, error) {
	ctx, span := tracer.Start(ctx, "booking.ListAppointments")
	defer span.End()

	appts, err := c.store.ListForUser(ctx, userID, 100)
	if err != nil {
		return nil, recordErr(span, err)
	}

	sellers := map[string]model.Seller{}
	users := map[string]model.User{}
	views := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		seller, ok := sellers[a.SellerID]
		if !ok {
			if seller, err = c.store.GetSeller(ctx, a.SellerID); err != nil {
				return nil, recordErr(span, err)
			}
			sellers[a.SellerID] = seller
		}

		view := AppointmentView{Appointment: a}
		if a.BuyerID == userID {
			view.Role = RoleBuyer
			view.OtherParty = Party{Name: seller.Name, Email: seller.Email, Title: seller.Title}
		} else {
			buyer, ok := users[a.BuyerID]
			if !ok {
				if buyer, err = c.store.GetUser(ctx, a.BuyerID); err != nil {
					return nil, recordErr(span, err)
				}
				users[a.BuyerID] = buyer
			}
			view.Role = RoleSeller
			view.OtherParty = Party{Name: buyer.Name, Email: buyer.Email}
		}
		views = append(views, view)
	}
	return views, nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
