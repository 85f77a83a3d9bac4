package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Appointment instants are absolute (stored in UTC). Timezone is the seller's
// zone at booking time and is only used for display.
type Appointment struct {
	ID        string
	SellerID  string
	BuyerID   string
	StartTime time.Time
	EndTime   time.Time
	Timezone  string
	Status    AppointmentStatus
	Title     string
	Notes     string
	CalendarRefs
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CalendarRefs point at the external calendar event created for a booking.
type CalendarRefs struct {
	SellerEventRef string
	BuyerEventRef  string
	MeetingLink    string
}

func (r CalendarRefs) Empty() bool {
	return r.SellerEventRef == "" && r.BuyerEventRef == "" && r.MeetingLink == ""
}
