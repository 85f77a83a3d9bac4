// Package handlers exposes the booking core over HTTP.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/sellerbook/libs/httpx"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

// Service is the booking core as seen by the HTTP layer.
type Service interface {
	Sellers(ctx context.Context) ([]booking.SellerSummary, error)
	Seller(ctx context.Context, sellerID string) (booking.SellerSummary, error)
	AvailableSlots(ctx context.Context, sellerID string, date timeofday.Date) (booking.SlotsResult, error)
	RequestBooking(ctx context.Context, req booking.BookingRequest) (booking.BookingResult, error)
	CancelBooking(ctx context.Context, req booking.CancelRequest) (booking.CancellationResult, error)
	ListAppointments(ctx context.Context, userID string) ([]booking.AppointmentView, error)
	WeeklySchedule(ctx context.Context, userID string) (booking.Schedule, error)
	UpdateWeeklySchedule(ctx context.Context, userID string, upd booking.ScheduleUpdate) (booking.Schedule, error)
}

type Handler struct {
	svc      Service
	auth     *Authenticator
	logger   *slog.Logger
	publicMW []func(http.Handler) http.Handler
}

func New(svc Service, authn *Authenticator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, auth: authn, logger: logger}
}

// WithPublicMiddleware wraps the anonymous routes, e.g. with a rate limiter.
func (h *Handler) WithPublicMiddleware(m ...httpx.Middleware) *Handler {
	for _, mw := range m {
		h.publicMW = append(h.publicMW, mw)
	}
	return h
}

// Routes returns the API router, meant to be mounted under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(h.publicMW...)
		r.Get("/sellers", h.listSellers)
		r.Get("/sellers/{sellerID}", h.getSeller)
		r.Get("/sellers/{sellerID}/availability", h.sellerAvailability)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Require)
		r.Get("/me/seller/availability", h.mySchedule)
		r.Put("/me/seller/availability", h.replaceMySchedule)
		r.Post("/appointments", h.createAppointment)
		r.Get("/appointments", h.listAppointments)
		r.Post("/appointments/{appointmentID}/cancel", h.cancelAppointment)
	})
	return r
}

type timeSlotJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type dayJSON struct {
	DayOfWeek   int            `json:"day_of_week"`
	IsAvailable bool           `json:"is_available"`
	TimeSlots   []timeSlotJSON `json:"time_slots"`
}

func toDaysJSON(days []booking.DaySchedule) []dayJSON {
	out := make([]dayJSON, 0, len(days))
	for _, d := range days {
		slots := make([]timeSlotJSON, 0, len(d.Blocks))
		for _, b := range d.Blocks {
			slots = append(slots, timeSlotJSON{Start: b.Start, End: b.End})
		}
		out = append(out, dayJSON{DayOfWeek: d.DayOfWeek, IsAvailable: d.Available, TimeSlots: slots})
	}
	return out
}

func fromDaysJSON(days []dayJSON) []booking.DaySchedule {
	out := make([]booking.DaySchedule, 0, len(days))
	for _, d := range days {
		blocks := make([]booking.TimeBlock, 0, len(d.TimeSlots))
		for _, s := range d.TimeSlots {
			blocks = append(blocks, booking.TimeBlock{Start: strings.TrimSpace(s.Start), End: strings.TrimSpace(s.End)})
		}
		out = append(out, booking.DaySchedule{DayOfWeek: d.DayOfWeek, Available: d.IsAvailable, Blocks: blocks})
	}
	return out
}

type sellerJSON struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Timezone     string    `json:"timezone"`
	IsActive     bool      `json:"is_active"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Availability []dayJSON `json:"availability"`
}

func toSellerJSON(s booking.SellerSummary) sellerJSON {
	tz := s.Seller.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return sellerJSON{
		ID:           s.Seller.ID,
		Title:        s.Seller.Title,
		Description:  s.Seller.Description,
		Timezone:     tz,
		IsActive:     s.Seller.IsActive,
		Name:         s.Seller.Name,
		Email:        s.Seller.Email,
		Availability: toDaysJSON(s.Availability),
	}
}

func (h *Handler) listSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.svc.Sellers(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]sellerJSON, 0, len(sellers))
	for _, s := range sellers {
		out = append(out, toSellerJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sellers": out})
}

func (h *Handler) getSeller(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Seller(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seller": toSellerJSON(s)})
}

type slotsResponse struct {
	SellerID       string         `json:"seller_id"`
	Date           string         `json:"date"`
	Timezone       string         `json:"timezone"`
	AvailableSlots []timeSlotJSON `json:"available_slots"`
}

func (h *Handler) sellerAvailability(w http.ResponseWriter, r *http.Request) {
	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if rawDate == "" {
		writeErrorCode(w, http.StatusBadRequest, "validation", "date is required")
		return
	}
	date, err := timeofday.ParseDate(rawDate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.AvailableSlots(r.Context(), chi.URLParam(r, "sellerID"), date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	slots := make([]timeSlotJSON, 0, len(res.Slots))
	for _, s := range res.Slots {
		slots = append(slots, timeSlotJSON{Start: s.Start, End: s.End})
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		SellerID:       res.SellerID,
		Date:           res.Date.String(),
		Timezone:       res.Timezone,
		AvailableSlots: slots,
	})
}

type scheduleJSON struct {
	SellerID     string    `json:"seller_id"`
	Timezone     string    `json:"timezone"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Availability []dayJSON `json:"availability"`
}

func toScheduleJSON(s booking.Schedule) scheduleJSON {
	return scheduleJSON{
		SellerID:     s.SellerID,
		Timezone:     s.Timezone,
		Title:        s.Title,
		Description:  s.Description,
		Availability: toDaysJSON(s.Days),
	}
}

func (h *Handler) mySchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.svc.WeeklySchedule(r.Context(), actingUser(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleJSON(sched))
}

type replaceScheduleRequest struct {
	Timezone     string    `json:"timezone"`
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Availability []dayJSON `json:"availability"`
}

func (h *Handler) replaceMySchedule(w http.ResponseWriter, r *http.Request) {
	var req replaceScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Availability == nil {
		writeErrorCode(w, http.StatusBadRequest, "validation", "availability must be an array")
		return
	}
	sched, err := h.svc.UpdateWeeklySchedule(r.Context(), actingUser(r), booking.ScheduleUpdate{
		Timezone:    strings.TrimSpace(req.Timezone),
		Title:       req.Title,
		Description: req.Description,
		Days:        fromDaysJSON(req.Availability),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleJSON(sched))
}

type createAppointmentRequest struct {
	SellerID string `json:"seller_id"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Notes    string `json:"notes"`
}

type appointmentJSON struct {
	ID          string  `json:"id"`
	SellerID    string  `json:"seller_id"`
	BuyerID     string  `json:"buyer_id"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Timezone    string  `json:"timezone"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes,omitempty"`
	MeetingLink string  `json:"meeting_link,omitempty"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toAppointmentJSON(a model.Appointment) appointmentJSON {
	out := appointmentJSON{
		ID:          a.ID,
		SellerID:    a.SellerID,
		BuyerID:     a.BuyerID,
		StartTime:   a.StartTime.UTC().Format(time.RFC3339),
		EndTime:     a.EndTime.UTC().Format(time.RFC3339),
		Timezone:    a.Timezone,
		Status:      string(a.Status),
		Notes:       a.Notes,
		MeetingLink: a.MeetingLink,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		v := a.CancelledAt.UTC().Format(time.RFC3339)
		out.CancelledAt = &v
	}
	return out
}

type calendarJSON struct {
	EventCreated bool   `json:"event_created"`
	EventLink    string `json:"event_link,omitempty"`
	MeetLink     string `json:"meet_link,omitempty"`
	BuyerInvited bool   `json:"buyer_invited"`
}

type createAppointmentResponse struct {
	Appointment appointmentJSON `json:"appointment"`
	Calendar    calendarJSON    `json:"calendar"`
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.RequestBooking(r.Context(), booking.BookingRequest{
		SellerID:  strings.TrimSpace(req.SellerID),
		BuyerID:   actingUser(r),
		Date:      req.Date,
		SlotStart: req.TimeSlot,
		Notes:     strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.AnnotateLog(r.Context(), "appointment_id", res.Appointment.ID)
	writeJSON(w, http.StatusCreated, createAppointmentResponse{
		Appointment: toAppointmentJSON(res.Appointment),
		Calendar: calendarJSON{
			EventCreated: res.CalendarEventCreated,
			EventLink:    res.EventLink,
			MeetLink:     res.MeetLink,
			BuyerInvited: res.BuyerInvited(),
		},
	})
}

type partyJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Title string `json:"title,omitempty"`
}

type appointmentViewJSON struct {
	appointmentJSON
	UserRole   string    `json:"user_role"`
	OtherParty partyJSON `json:"other_party"`
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListAppointments(r.Context(), actingUser(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]appointmentViewJSON, 0, len(views))
	for _, v := range views {
		out = append(out, appointmentViewJSON{
			appointmentJSON: toAppointmentJSON(v.Appointment),
			UserRole:        string(v.Role),
			OtherParty:      partyJSON{Name: v.OtherParty.Name, Email: v.OtherParty.Email, Title: v.OtherParty.Title},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

type cancelResponse struct {
	AppointmentID     string   `json:"appointment_id"`
	Status            string   `json:"status"`
	CancelledAt       string   `json:"cancelled_at"`
	CalendarCancelled bool     `json:"calendar_cancelled"`
	CalendarResults   []string `json:"calendar_results"`
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CancelBooking(r.Context(), booking.CancelRequest{
		AppointmentID: chi.URLParam(r, "appointmentID"),
		ActingUserID:  actingUser(r),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sides := []string{}
	if res.SellerEventDeleted {
		sides = append(sides, "seller")
	}
	if res.BuyerEventDeleted {
		sides = append(sides, "buyer")
	}
	var cancelledAt string
	if res.Appointment.CancelledAt != nil {
		cancelledAt = res.Appointment.CancelledAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, cancelResponse{
		AppointmentID:     res.Appointment.ID,
		Status:            string(res.Appointment.Status),
		CancelledAt:       cancelledAt,
		CalendarCancelled: res.CalendarCancelled(),
		CalendarResults:   sides,
	})
}
