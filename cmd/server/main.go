package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/subsmanager/backend/internal/billing"
	"github.com/subsmanager/backend/internal/config"
	"github.com/subsmanager/backend/internal/database"
	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/handlers"
	"github.com/subsmanager/backend/internal/jobs"
	"github.com/subsmanager/backend/internal/logging"
	"github.com/subsmanager/backend/internal/middleware"
	"github.com/subsmanager/backend/internal/notify"
	"github.com/subsmanager/backend/internal/routes"
	"github.com/subsmanager/backend/internal/services"
	"github.com/subsmanager/backend/internal/store"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB, logging.PGOptions{})
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout, cfg.AppEnv),
		pgLogHandler,
	)))

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	st := store.New(database.DB)

	// Services
	authService := services.NewAuthService(st, cfg.JWTSecret, cfg.JWTAccessExpiry)
	subscriptionService := services.NewSubscriptionService(st)

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Health:       handlers.NewHealthHandler(database.Ping),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService),
	}
	if cfg.BillingEnabled() {
		stripeClient := billing.NewStripeClient(billing.StripeConfig{
			SecretKey:  cfg.StripeSecretKey,
			PriceID:    cfg.StripePriceID,
			SuccessURL: cfg.SuccessURL,
			CancelURL:  cfg.CancelURL,
		})
		h.Billing = handlers.NewBillingHandler(services.NewCheckoutService(st, stripeClient))
		h.Webhook = handlers.NewWebhookHandler(services.NewReconciler(st, cfg.StripeWebhookSecret, slog.Default()))
	} else {
		slog.Warn("stripe not configured, billing routes disabled")
	}

	// Background jobs
	runner, err := startJobs(cfg, st)
	if err != nil {
		slog.Error("job runner failed to start", "error", err)
		os.Exit(1)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg.JWTSecret, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		slog.Error("job runner stop error", "error", err)
	}

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func startJobs(cfg *config.Config, st *store.Store) (*jobs.Runner, error) {
	var sender notify.Sender
	if cfg.PostmarkEnabled() {
		pm, err := notify.NewPostmarkSender(notify.PostmarkConfig{
			ServerToken:  cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
			FromEmail:    cfg.FromEmail,
			SupportEmail: cfg.SupportEmail,
		})
		if err != nil {
			return nil, err
		}
		sender = pm
	} else {
		slog.Warn("postmark not configured, reminders are logged instead of sent")
		sender = notify.NewLogSender(slog.Default())
	}

	loc := cfg.Location()
	sweep := jobs.NewRenewalSweep(st, sender, jobs.SweepConfig{
		Location:     loc,
		LeadDays:     cfg.ReminderLeadDays,
		Concurrency:  cfg.ReminderConcurrency,
		DashboardURL: cfg.ClientURL,
	}, slog.Default())
	cleanup := jobs.NewLogCleanup(st, cfg.LogRetention, slog.Default())

	runner := jobs.NewRunner(loc, slog.Default())
	if err := runner.Register(jobs.RenewalSweepJob, cfg.ReminderSchedule, sweep.Job); err != nil {
		return nil, err
	}
	if err := runner.Register(jobs.LogCleanupJob, "30 3 * * *", cleanup.Run); err != nil {
		return nil, err
	}
	if err := runner.Start(); err != nil {
		return nil, err
	}
	return runner, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}
