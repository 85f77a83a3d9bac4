package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/sellerbook/libs/grpcx"
	"github.com/md-rashed-zaman/sellerbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/sellerbook/libs/otel"
	"github.com/md-rashed-zaman/sellerbook/libs/runtime"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	loadEnv := func(*cobra.Command, []string) error {
		if err := runtime.LoadDotEnv(envFiles...); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
		return nil
	}

	root := &cobra.Command{
		Use:               "booking-service",
		Short:             "Seller availability and appointment booking API",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadEnv,
		RunE:              func(*cobra.Command, []string) error { return run() },
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the gRPC health server",
			RunE:  func(*cobra.Command, []string) error { return run() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  func(cmd *cobra.Command, _ []string) error { return migrate(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "healthcheck",
			Short: "Probe the local gRPC health service",
			RunE:  func(cmd *cobra.Command, _ []string) error { return healthcheck(cmd.Context()) },
		},
	)
	return root
}

// healthcheck exits non-zero unless the local server reports SERVING; used by
// container probes.
func healthcheck(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	return grpcx.CheckHealth(ctx, "127.0.0.1:"+cfg.grpcPort, "", 3*time.Second)
}

func migrate(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	cfg.migrateOnStart = true
	cfg.kafkaBrokers = nil
	logger := runtime.NewLogger(cfg.service, cfg.logLevel)
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	be.close()
	logger.Info("migrations applied", "store", cfg.storeDriver)
	return nil
}

func run() error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(cfg.service, cfg.logLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	var cal calendar.Port = calendar.Noop{}
	if cfg.calendarEnabled {
		provider := tokens.NewProvider(be.store, cfg.oauth, logger)
		google := calendar.NewGoogleCalendar(provider, cfg.calendarBaseURL, logger)
		cal = calendar.NewBreaker(google, calendar.DefaultBreakerConfig(), logger)
		logger.Info("calendar integration enabled", "base_url", cfg.calendarBaseURL)
	}

	coord := booking.New(be.store, cal, logger, booking.Config{
		Duration:        cfg.duration,
		Interval:        cfg.interval,
		CalendarTimeout: cfg.calendarTimeout,
	})

	authn := handlers.NewAuthenticator(cfg.jwtSecret, cfg.trustGateway, be.store, logger)
	api := handlers.New(coord, authn, logger)

	checks := be.checks
	var limiter httpx.Limiter = httpx.NewMemoryRateLimiter(cfg.rateLimitPerMinute, time.Minute)
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		defer rdb.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.rateLimitPerMinute, time.Minute, cfg.service)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}
	api.WithPublicMiddleware(httpx.RateLimit(limiter, logger, true))

	router := chi.NewRouter()
	runtime.MountHealth(router, checks...)
	router.Mount("/api/v1", api.Routes())

	handler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.corsOrigins)),
		httpx.WithBodyLimit(1<<20),
	)

	grpcServer, healthServer := grpcx.NewServer()
	lis, err := net.Listen("tcp", ":"+cfg.grpcPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	go func() {
		logger.Info("grpc health listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           otelhttp.NewHandler(handler, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("service starting", "addr", srv.Addr, "store", cfg.storeDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("http server error", "err", err)
		stop()
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	grpcServer.GracefulStop()
	logger.Info("service stopped")
	return nil
}
