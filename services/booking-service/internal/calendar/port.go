// Package calendar creates and removes booking events in an external calendar.
//
// Calendar work is best effort: callers bound every call with a timeout and
// never fail a booking because of it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

// ErrNoCalendarAccess means the owner has no usable credentials.
var ErrNoCalendarAccess = errors.New("no calendar access")

type Attendee struct {
	Email string
	Name  string
}

type BookingEvent struct {
	AppointmentID string
	Title         string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	Timezone      string
	Attendees     []Attendee
}

type EventRef struct {
	EventID   string
	EventLink string
	MeetLink  string
}

// Port is implemented by calendar providers. ownerUserID selects whose
// calendar and credentials are used.
type Port interface {
	CreateEvent(ctx context.Context, ownerUserID string, ev BookingEvent) (EventRef, error)
	DeleteEvent(ctx context.Context, ownerUserID, eventID string) error
}

// NewBookingEvent builds the single event shared by seller and buyer. The
// buyer is invited as an attendee of the seller's event.
func NewBookingEvent(appt model.Appointment, seller model.Seller, buyer model.User) BookingEvent {
	title := orDefault(seller.Title, "Consultation")
	sellerName := orDefault(seller.Name, "Unknown")
	buyerName := orDefault(buyer.Name, "Unknown")

	var b strings.Builder
	b.WriteString("Appointment Details:\n")
	fmt.Fprintf(&b, "• Service: %s\n", title)
	fmt.Fprintf(&b, "• Provider: %s\n", sellerName)
	fmt.Fprintf(&b, "• Client: %s\n", buyerName)
	fmt.Fprintf(&b, "• Duration: %d minutes\n", int(appt.EndTime.Sub(appt.StartTime).Minutes()))
	if appt.Notes != "" {
		fmt.Fprintf(&b, "• Notes: %s\n", appt.Notes)
	}
	fmt.Fprintf(&b, "\nBooking ID: %s\n\nThis appointment was booked through the booking system.", appt.ID)

	return BookingEvent{
		AppointmentID: appt.ID,
		Title:         title + " - Appointment",
		Description:   b.String(),
		Location:      title,
		Start:         appt.StartTime,
		End:           appt.EndTime,
		Timezone:      orDefault(appt.Timezone, "UTC"),
		Attendees: []Attendee{
			{Email: seller.Email, Name: sellerName},
			{Email: buyer.Email, Name: buyerName},
		},
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Noop is used when calendar integration is disabled.
type Noop struct{}

func (Noop) CreateEvent(context.Context, string, BookingEvent) (EventRef, error) {
	return EventRef{}, fmt.Errorf("%w: integration disabled", ErrNoCalendarAccess)
}

func (Noop) DeleteEvent(context.Context, string, string) error {
	return fmt.Errorf("%w: integration disabled", ErrNoCalendarAccess)
}
