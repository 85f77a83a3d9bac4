package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

type SellerDirectory interface {
	GetSeller(ctx context.Context, sellerID string) (model.Seller, error)
	GetSellerByUserID(ctx context.Context, userID string) (model.Seller, error)
	UpsertSellerForUser(ctx context.Context, userID, timezone string) (model.Seller, error)
	SetSellerProfile(ctx context.Context, sellerID, title, description string) error
	ListActiveSellers(ctx context.Context) ([]model.Seller, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
}

type AvailabilityStore interface {
	ReplaceWeeklyRules(ctx context.Context, sellerID string, rules []model.WeeklyRule) error
	RulesForDay(ctx context.Context, sellerID string, day time.Weekday) ([]model.WeeklyRule, error)
	WeeklyRules(ctx context.Context, sellerID string) ([]model.WeeklyRule, error)
}

type AppointmentStore interface {
	CreateConfirmed(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	Cancel(ctx context.Context, id string) (model.Appointment, error)
	ConfirmedForSellerOnDate(ctx context.Context, sellerID string, date timeofday.Date, loc *time.Location) ([]model.Appointment, error)
	SetCalendarRefs(ctx context.Context, id string, refs model.CalendarRefs) error
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error)
}

// Store is satisfied by both the Postgres and the SQLite store.
type Store interface {
	SellerDirectory
	AvailabilityStore
	AppointmentStore
}
