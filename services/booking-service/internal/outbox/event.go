package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

// Topics; the Kafka topic name equals EventType.
const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"

	AggregateAppointment = "appointment"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID string     `json:"appointment_id"`
	SellerID      string     `json:"seller_id"`
	BuyerID       string     `json:"buyer_id"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         time.Time  `json:"end_at"`
	Timezone      string     `json:"timezone"`
	Status        string     `json:"status"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// AppointmentEvent builds the booked/cancelled event for appt.
func AppointmentEvent(eventType string, appt model.Appointment) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID: appt.ID,
		SellerID:      appt.SellerID,
		BuyerID:       appt.BuyerID,
		StartAt:       appt.StartTime.UTC(),
		EndAt:         appt.EndTime.UTC(),
		Timezone:      appt.Timezone,
		Status:        string(appt.Status),
		CancelledAt:   appt.CancelledAt,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
