package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/checkout"
	"github.com/batibatii/textilecom-webhook-receiver/internal/handler"
	"github.com/batibatii/textilecom-webhook-receiver/internal/notify"
	"github.com/batibatii/textilecom-webhook-receiver/internal/storage/postgres"
	"github.com/batibatii/textilecom-webhook-receiver/internal/storage/rediscart"
	"github.com/batibatii/textilecom-webhook-receiver/internal/stripeclient"
	"github.com/batibatii/textilecom-webhook-receiver/pkg/health"
	"github.com/batibatii/textilecom-webhook-receiver/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis cart side channel.
	carts, err := rediscart.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = carts.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("redis", 5*time.Second, carts.Ping)
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	// Repositories.
	orderRepo := postgres.NewOrderRepository(pool)
	orderCounter := postgres.NewOrderCounter(pool)
	stockAdjuster := postgres.NewInventoryAdjuster(pool)

	// Payment provider client: verifies webhook signatures and expands
	// completed sessions.
	stripe := stripeclient.New(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)

	// Email dispatcher. Without an SMTP host, notifications are skipped but
	// the rest of the pipeline runs normally.
	var dispatcher notify.Dispatcher = notify.Nop{}
	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return errors.Wrap(err, "create smtp dispatcher")
		}
		dispatcher = smtp
	} else {
		lg.Warn("SMTP host not configured, email notifications disabled")
	}

	processor := checkout.NewProcessor(
		stripe,
		orderRepo,
		orderCounter,
		stockAdjuster,
		carts,
		dispatcher,
		cfg.CartBaseURL,
	)

	webhook, err := handler.NewWebhook(stripe, processor,
		m.MeterProvider().Meter("textilecom-webhook-receiver"))
	if err != nil {
		return errors.Wrap(err, "create webhook handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/webhooks/stripe", webhook)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
