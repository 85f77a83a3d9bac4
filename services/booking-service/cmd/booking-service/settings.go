package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/sellerbook/libs/config"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/tokens"
)

type settings struct {
	service  string
	port     string
	grpcPort string
	logLevel string

	storeDriver     string
	databaseURL     string
	sqlitePath      string
	migrateOnStart  bool
	kafkaBrokers    []string
	outboxPollEvery time.Duration
	outboxBatchSize int

	duration        time.Duration
	interval        time.Duration
	calendarEnabled bool
	calendarTimeout time.Duration
	calendarBaseURL string
	oauth           tokens.OAuthConfig

	jwtSecret          string
	trustGateway       bool
	redisAddr          string
	rateLimitPerMinute int
	corsOrigins        []string
}

func loadSettings() (settings, error) {
	var (
		s   settings
		err error
	)
	s.service = config.String("SERVICE_NAME", "booking-service")
	if s.port, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	if s.grpcPort, err = config.Port("GRPC_PORT", "9083"); err != nil {
		return s, err
	}
	s.logLevel = config.String("LOG_LEVEL", "info")

	s.storeDriver = config.String("STORE_DRIVER", "postgres")
	switch s.storeDriver {
	case "postgres":
		if s.databaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return s, err
		}
	case "sqlite":
		s.sqlitePath = config.String("SQLITE_PATH", "booking.db")
	default:
		return s, fmt.Errorf("STORE_DRIVER must be postgres or sqlite (got %q)", s.storeDriver)
	}
	s.migrateOnStart = config.Bool("MIGRATE_ON_START", true)
	s.kafkaBrokers = config.List("KAFKA_BROKERS")
	if s.outboxPollEvery, err = config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return s, err
	}
	if s.outboxBatchSize, err = config.Int("OUTBOX_BATCH_SIZE", 50); err != nil {
		return s, err
	}

	minutes, err := config.Int("APPOINTMENT_DURATION_MINUTES", 60)
	if err != nil {
		return s, err
	}
	s.duration = time.Duration(minutes) * time.Minute
	if minutes, err = config.Int("SLOT_INTERVAL_MINUTES", 30); err != nil {
		return s, err
	}
	s.interval = time.Duration(minutes) * time.Minute

	s.calendarEnabled = config.Bool("CALENDAR_ENABLED", false)
	if s.calendarTimeout, err = config.Duration("CALENDAR_TIMEOUT", 5*time.Second); err != nil {
		return s, err
	}
	s.calendarBaseURL = config.String("GOOGLE_CALENDAR_BASE_URL", calendar.DefaultBaseURL)
	s.oauth = tokens.OAuthConfig{
		ClientID:     config.String("GOOGLE_CLIENT_ID", ""),
		ClientSecret: config.String("GOOGLE_CLIENT_SECRET", ""),
		TokenURL:     config.String("GOOGLE_TOKEN_URL", tokens.DefaultTokenURL),
	}
	if s.calendarEnabled && (s.oauth.ClientID == "" || s.oauth.ClientSecret == "") {
		return s, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required when CALENDAR_ENABLED is set")
	}

	s.trustGateway = config.Bool("TRUST_GATEWAY_HEADERS", false)
	s.jwtSecret = config.String("JWT_SECRET", "")
	if s.jwtSecret == "" && !s.trustGateway {
		return s, fmt.Errorf("JWT_SECRET is required unless TRUST_GATEWAY_HEADERS is set")
	}
	s.redisAddr = config.String("REDIS_ADDR", "")
	if s.rateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return s, err
	}
	s.corsOrigins = config.List("CORS_ALLOWED_ORIGINS")
	return s, nil
}
