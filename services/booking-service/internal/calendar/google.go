package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// AccessTokens hands out a currently valid access token, or "" when the user
// has none.
type AccessTokens interface {
	GetValidAccessToken(ctx context.Context, userID string) (string, error)
}

// GoogleCalendar talks to the Calendar v3 REST API.
type GoogleCalendar struct {
	tokens     AccessTokens
	logger     *slog.Logger
	baseURL    string
	calendarID string
	transport  http.RoundTripper
	timeout    time.Duration
}

func NewGoogleCalendar(tokens AccessTokens, baseURL string, logger *slog.Logger) *GoogleCalendar {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleCalendar{
		tokens:     tokens,
		logger:     logger,
		baseURL:    baseURL,
		calendarID: "primary",
		transport:  otelhttp.NewTransport(http.DefaultTransport),
		timeout:    15 * time.Second,
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventAttendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type googleEvent struct {
	Summary        string          `json:"summary"`
	Description    string          `json:"description,omitempty"`
	Location       string          `json:"location,omitempty"`
	Start          eventTime       `json:"start"`
	End            eventTime       `json:"end"`
	Attendees      []eventAttendee `json:"attendees,omitempty"`
	ConferenceData struct {
		CreateRequest struct {
			RequestID             string `json:"requestId"`
			ConferenceSolutionKey struct {
				Type string `json:"type"`
			} `json:"conferenceSolutionKey"`
		} `json:"createRequest"`
	} `json:"conferenceData"`
}

type insertedEvent struct {
	ID             string `json:"id"`
	HTMLLink       string `json:"htmlLink"`
	ConferenceData struct {
		EntryPoints []struct {
			EntryPointType string `json:"entryPointType"`
			URI            string `json:"uri"`
		} `json:"entryPoints"`
	} `json:"conferenceData"`
}

func toGoogleEvent(ev BookingEvent) googleEvent {
	out := googleEvent{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       eventTime{DateTime: ev.Start.UTC().Format(time.RFC3339), TimeZone: ev.Timezone},
		End:         eventTime{DateTime: ev.End.UTC().Format(time.RFC3339), TimeZone: ev.Timezone},
	}
	for _, a := range ev.Attendees {
		if a.Email == "" {
			continue
		}
		out.Attendees = append(out.Attendees, eventAttendee{Email: a.Email, DisplayName: a.Name})
	}
	out.ConferenceData.CreateRequest.RequestID = "booking-" + ev.AppointmentID
	out.ConferenceData.CreateRequest.ConferenceSolutionKey.Type = "hangoutsMeet"
	return out
}

func (g *GoogleCalendar) client(ctx context.Context, userID string) (*http.Client, error) {
	token, err := g.tokens.GetValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: user %s", ErrNoCalendarAccess, userID)
	}
	return &http.Client{
		Timeout: g.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   g.transport,
		},
	}, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, ownerUserID string, ev BookingEvent) (EventRef, error) {
	client, err := g.client(ctx, ownerUserID)
	if err != nil {
		return EventRef{}, err
	}
	body, err := json.Marshal(toGoogleEvent(ev))
	if err != nil {
		return EventRef{}, err
	}

	insertURL := fmt.Sprintf("%s/calendars/%s/events?conferenceDataVersion=1&sendUpdates=all",
		g.baseURL, url.PathEscape(g.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, insertURL, bytes.NewReader(body))
	if err != nil {
		return EventRef{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return EventRef{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return EventRef{}, responseError("create event", resp)
	}

	var created insertedEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return EventRef{}, fmt.Errorf("decode calendar event: %w", err)
	}
	return EventRef{EventID: created.ID, EventLink: created.HTMLLink, MeetLink: created.meetLink()}, nil
}

// meetLink prefers the video entry point and falls back to the first one.
func (e insertedEvent) meetLink() string {
	for _, ep := range e.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" {
			return ep.URI
		}
	}
	if len(e.ConferenceData.EntryPoints) > 0 {
		return e.ConferenceData.EntryPoints[0].URI
	}
	return ""
}

// DeleteEvent removes an event. An event that is already gone counts as deleted.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, ownerUserID, eventID string) error {
	client, err := g.client(ctx, ownerUserID)
	if err != nil {
		return err
	}
	deleteURL := fmt.Sprintf("%s/calendars/%s/events/%s?sendUpdates=all",
		g.baseURL, url.PathEscape(g.calendarID), url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		g.logger.Debug("calendar event already removed", "event_id", eventID, "status", resp.StatusCode)
		return nil
	default:
		return responseError("delete event", resp)
	}
}

func responseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("calendar %s failed: status=%d body=%s", op, resp.StatusCode, string(body))
}
