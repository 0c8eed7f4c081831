package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/barbershop-scheduler/cmd/mainconfig"
	"github.com/wolfman30/barbershop-scheduler/internal/api/router"
	"github.com/wolfman30/barbershop-scheduler/internal/appointments"
	"github.com/wolfman30/barbershop-scheduler/internal/availability"
	"github.com/wolfman30/barbershop-scheduler/internal/avatars"
	"github.com/wolfman30/barbershop-scheduler/internal/backend"
	"github.com/wolfman30/barbershop-scheduler/internal/booking"
	"github.com/wolfman30/barbershop-scheduler/internal/calendar"
	appconfig "github.com/wolfman30/barbershop-scheduler/internal/config"
	"github.com/wolfman30/barbershop-scheduler/internal/http/handlers"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/observability/metrics"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/internal/session"
	"github.com/wolfman30/barbershop-scheduler/internal/views"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting barbershop scheduler",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.BackendBaseURL,
		"locale", cfg.Locale,
	)

	a, err := buildApp(context.Background(), cfg, logger, prometheus.DefaultRegisterer, promhttp.Handler())
	if err != nil {
		logger.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	a.close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// app is the wired process: the HTTP handler plus what must be released on
// shutdown.
type app struct {
	handler  http.Handler
	sessions *session.Manager
	recorder *notify.Recorder
	email    *notify.EmailSink
	closers  []func() error
}

func (a *app) close() {
	if a.email != nil {
		a.email.Wait()
	}
	for _, c := range a.closers {
		_ = c()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer, metricsHandler http.Handler) (*app, error) {
	a := &app{}
	loc := cfg.Location()
	msgs := notify.Messages(cfg.Locale)
	schedMetrics := metrics.NewSchedulingMetrics(reg)

	a.sessions = session.NewManager(logger)
	if cfg.HasBootstrapSession() {
		if _, err := a.sessions.Establish(cfg.SessionToken, scheduling.User{
			ID:        cfg.SessionUserID,
			Name:      cfg.SessionUserName,
			Email:     cfg.SessionUserEmail,
			AvatarRef: cfg.SessionUserAvatar,
		}); err != nil {
			logger.Warn("ignoring bootstrap session", "error", err)
		}
	}

	var client backend.Client = backend.NewRESTClient(cfg.BackendBaseURL, a.sessions, logger,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithObserver(schedMetrics),
	)
	if rdb := mainconfig.BuildRedisClient(ctx, cfg, logger, true); rdb != nil {
		cached := backend.NewCachedClient(client, rdb, cfg.ProviderCacheTTL, logger)
		a.sessions.OnSignOut(func() {
			if err := cached.InvalidateProviders(context.Background()); err != nil {
				logger.Warn("provider cache invalidation failed", "error", err)
			}
		})
		client = cached
		a.closers = append(a.closers, rdb.Close)
		logger.Info("provider cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ProviderCacheTTL)
	}

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var presigner avatars.Presigner
	if cfg.AvatarPresign && awsCfg != nil {
		presigner = s3.NewPresignClient(mainconfig.NewS3Client(*awsCfg, cfg))
	}
	avatarURLs := avatars.NewResolver(avatars.Config{
		Bucket:      cfg.AvatarBucket,
		Placeholder: cfg.AvatarPlaceholderURL,
		PresignTTL:  cfg.AvatarPresignTTL,
	}, presigner, logger)

	a.recorder = notify.NewRecorder(0)
	hub := notify.NewHub(logger)
	sinks := []notify.Sink{notify.NewLogSink(logger), a.recorder, hub}
	if sender := mainconfig.BuildEmailSender(awsCfg, cfg, logger); sender != nil {
		a.email = notify.NewEmailSink(sender, a.sessions.Recipient, logger)
		sinks = append(sinks, a.email)
	}
	sink := notify.Fanout(sinks...)

	// Provider detail: day picker, availability and booking.
	slots := availability.NewResolver(client, logger,
		availability.WithObserver(schedMetrics),
		availability.WithSink(sink, msgs),
	)
	workflow := booking.NewWorkflow(client, slots, sink, msgs, logger,
		booking.WithLocation(loc),
		booking.WithObserver(schedMetrics),
	)
	detail := views.NewProviderDetail(views.ProviderDetailConfig{
		Providers: client,
		Days:      calendar.NewDaySelection(time.Now, loc),
		Slots:     slots,
		Booking:   workflow,
		Avatars:   avatarURLs,
		Messages:  msgs,
		Logger:    logger,
	})

	// Own schedule: day list with complete/cancel.
	coll := appointments.NewCollection(client, logger,
		appointments.WithLocation(loc),
		appointments.WithStaleObserver(schedMetrics),
		appointments.WithLoadSink(sink, msgs),
	)
	schedule := views.NewSchedule(views.ScheduleConfig{
		Days:       calendar.NewDaySelection(time.Now, loc),
		Collection: coll,
		Lifecycle:  appointments.NewController(coll, client, sink, msgs, schedMetrics, logger),
		Avatars:    avatarURLs,
		Messages:   msgs,
		Logger:     logger,
	})

	a.sessions.OnSignOut(detail.Reset)
	a.sessions.OnSignOut(schedule.Reset)
	a.sessions.OnSignOut(func() { a.recorder.Drain() })

	a.handler = router.New(&router.Config{
		Logger:             logger,
		Session:            handlers.NewSessionHandler(a.sessions, logger),
		SessionGate:        a.sessions,
		Providers:          handlers.NewProvidersHandler(views.NewDirectory(client, avatarURLs, logger), detail, logger),
		Schedule:           handlers.NewScheduleHandler(schedule, logger),
		Notifications:      handlers.NewNotificationsHandler(a.recorder),
		NotificationsHub:   hub,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	return a, nil
}

// loadAWS only touches the SDK when a feature needs it.
func loadAWS(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !cfg.AvatarPresign && cfg.EmailProvider != "ses" {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}
