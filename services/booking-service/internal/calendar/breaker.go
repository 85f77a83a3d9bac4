package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	MaxHalfOpen      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "google-calendar",
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		MaxHalfOpen:      1,
	}
}

// Breaker short-circuits a failing provider so bookings stop paying its
// timeout. Missing credentials do not count as provider failures.
type Breaker struct {
	next Port
	cb   *gobreaker.CircuitBreaker[EventRef]
}

func NewBreaker(next Port, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpen,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoCalendarAccess)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[EventRef](settings)}
}

func (b *Breaker) CreateEvent(ctx context.Context, ownerUserID string, ev BookingEvent) (EventRef, error) {
	return b.cb.Execute(func() (EventRef, error) {
		return b.next.CreateEvent(ctx, ownerUserID, ev)
	})
}

func (b *Breaker) DeleteEvent(ctx context.Context, ownerUserID, eventID string) error {
	_, err := b.cb.Execute(func() (EventRef, error) {
		return EventRef{}, b.next.DeleteEvent(ctx, ownerUserID, eventID)
	})
	return err
}

func (b *Breaker) State() string { return b.cb.State().String() }
