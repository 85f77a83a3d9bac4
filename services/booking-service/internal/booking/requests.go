package booking

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

const maxNotesLen = 2000

// BookingRequest asks for the slot starting at SlotStart ("HH:MM", seller
// local time) on Date ("YYYY-MM-DD", seller local calendar).
type BookingRequest struct {
	SellerID  string
	BuyerID   string
	Date      string
	SlotStart string
	Notes     string
}

type bookingInput struct {
	date  timeofday.Date
	start int
}

func (r BookingRequest) validate() (bookingInput, error) {
	if strings.TrimSpace(r.SellerID) == "" || strings.TrimSpace(r.BuyerID) == "" {
		return bookingInput{}, fmt.Errorf("%w: seller and buyer are required", model.ErrValidation)
	}
	if strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.SlotStart) == "" {
		return bookingInput{}, fmt.Errorf("%w: date and time slot are required", model.ErrValidation)
	}
	date, err := timeofday.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return bookingInput{}, err
	}
	start, err := timeofday.Parse(strings.TrimSpace(r.SlotStart))
	if err != nil {
		return bookingInput{}, err
	}
	if len(r.Notes) > maxNotesLen {
		return bookingInput{}, fmt.Errorf("%w: notes exceed %d characters", model.ErrValidation, maxNotesLen)
	}
	return bookingInput{date: date, start: start}, nil
}

type BookingResult struct {
	Appointment          model.Appointment
	CalendarEventCreated bool
	EventLink            string
	MeetLink             string
}

// BuyerInvited reports whether the buyer got an invite through the seller's
// calendar event.
func (r BookingResult) BuyerInvited() bool {
	return r.Appointment.SellerEventRef != ""
}

type CancelRequest struct {
	AppointmentID string
	ActingUserID  string
}

func (r CancelRequest) validate() error {
	if strings.TrimSpace(r.AppointmentID) == "" {
		return fmt.Errorf("%w: appointment id is required", model.ErrValidation)
	}
	if strings.TrimSpace(r.ActingUserID) == "" {
		return fmt.Errorf("%w: acting user is required", model.ErrValidation)
	}
	return nil
}

type CancellationResult struct {
	Appointment        model.Appointment
	SellerEventDeleted bool
	BuyerEventDeleted  bool
}

// CalendarCancelled reports whether any calendar side was cleaned up.
func (r CancellationResult) CalendarCancelled() bool {
	return r.SellerEventDeleted || r.BuyerEventDeleted
}

type SlotsResult struct {
	SellerID string
	Date     timeofday.Date
	Timezone string
	Slots    []availability.Slot
}

// TimeBlock is one open block rendered as local "HH:MM".
type TimeBlock struct {
	Start string
	End   string
}

// DaySchedule is one weekday of the seller's weekly schedule editor.
type DaySchedule struct {
	DayOfWeek int
	Available bool
	Blocks    []TimeBlock
}

type Schedule struct {
	SellerID    string
	Timezone    string
	Title       string
	Description string
	Days        []DaySchedule
}

// ScheduleUpdate replaces the acting user's weekly schedule. Nil Title or
// Description leaves the stored value untouched; an empty Timezone keeps the
// current zone.
type ScheduleUpdate struct {
	Timezone    string
	Title       *string
	Description *string
	Days        []DaySchedule
}

// rules converts the editor shape into stored rules. A day that is switched
// off or has no blocks becomes one disabled placeholder rule.
func (u ScheduleUpdate) rules() ([]model.WeeklyRule, error) {
	var out []model.WeeklyRule
	seen := map[int]bool{}
	for _, day := range u.Days {
		if day.DayOfWeek < 0 || day.DayOfWeek > 6 {
			return nil, fmt.Errorf("%w: day_of_week %d out of range", model.ErrValidation, day.DayOfWeek)
		}
		if seen[day.DayOfWeek] {
			return nil, fmt.Errorf("%w: day_of_week %d listed twice", model.ErrValidation, day.DayOfWeek)
		}
		seen[day.DayOfWeek] = true

		if !day.Available || len(day.Blocks) == 0 {
			out = append(out, model.WeeklyRule{DayOfWeek: weekday(day.DayOfWeek)})
			continue
		}
		for _, b := range day.Blocks {
			start, err := timeofday.Parse(b.Start)
			if err != nil {
				return nil, err
			}
			end, err := timeofday.ParseBoundary(b.End)
			if err != nil {
				return nil, err
			}
			r := model.WeeklyRule{DayOfWeek: weekday(day.DayOfWeek), StartMinute: start, EndMinute: end, Enabled: true}
			if err := r.Validate(); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// SellerSummary is a directory entry with the seller's weekly availability.
type SellerSummary struct {
	Seller       model.Seller
	Availability []DaySchedule
}

type AppointmentRole string

const (
	RoleBuyer  AppointmentRole = "buyer"
	RoleSeller AppointmentRole = "seller"
)

type Party struct {
	Name  string
	Email string
	Title string
}

// AppointmentView is an appointment as seen by one participant.
type AppointmentView struct {
	Appointment model.Appointment
	Role        AppointmentRole
	OtherParty  Party
}
