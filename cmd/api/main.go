package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/paypal"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/square"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}

	var redisStore routes.RedisStore
	var webhookGuard *stripewebhook.IdempotencyGuard
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
		readiness["redis"] = redisClient
		redisStore = redisClient

		webhookGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.EventIdempotencyTTL, stripewebhook.DefaultScope)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "redis not configured; idempotency keys and rate limits disabled")
	}

	notifier, err := buildNotifier(ctx, cfg, logg, readiness, &closers)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)

	gormDB := dbClient.DB()
	cartRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)
	productsRepo := products.NewRepository(gormDB)

	cartService, err := cart.NewService(cartRepo, productsRepo, dbClient, logg)
	if err != nil {
		return err
	}
	usersService, err := users.NewService(usersRepo)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(dbClient, cartRepo, ordersRepo, usersRepo, nil, orderMetrics, logg)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, notifier, orderMetrics, logg)
	if err != nil {
		return err
	}

	captureGateways, err := buildCaptureGateways(ctx, cfg, logg)
	if err != nil {
		return err
	}

	paymentParams := payments.ServiceParams{
		Orders:          ordersRepo,
		Tx:              dbClient,
		CaptureGateways: captureGateways,
		Notifier:        notifier,
		Metrics:         orderMetrics,
		Logger:          logg,
	}
	var stripeGateway *payments.StripeGateway
	if cfg.Stripe.Enabled() {
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
		stripeGateway, err = payments.NewStripeGateway(stripeClient)
		if err != nil {
			return err
		}
		paymentParams.WebhookGateway = stripeGateway
	}

	paymentsService, err := payments.NewService(paymentParams)
	if err != nil {
		return err
	}

	services := routes.Services{
		Cart:     cartService,
		Users:    usersService,
		Checkout: checkoutService,
		Orders:   ordersService,
		Payments: paymentsService,
	}
	if stripeGateway != nil {
		webhookParams := stripewebhook.ServiceParams{
			Verifier: stripeGateway,
			Payments: paymentsService,
			Logger:   logg,
		}
		if webhookGuard != nil {
			webhookParams.Guard = webhookGuard
		}
		webhookService, err := stripewebhook.NewService(webhookParams)
		if err != nil {
			return err
		}
		services.StripeWebhook = webhookService
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, readiness, redisStore, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), services),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildCaptureGateways wires the two-phase gateways that have credentials.
// PayPal and Square each get their own circuit breaker.
func buildCaptureGateways(ctx context.Context, cfg *config.Config, logg *logger.Logger) (map[enums.PaymentMethod]payments.CaptureGateway, error) {
	gateways := make(map[enums.PaymentMethod]payments.CaptureGateway)

	if cfg.PayPal.Enabled() {
		client, err := paypal.NewClient(ctx, cfg.PayPal, logg)
		if err != nil {
			return nil, err
		}
		gateway, err := payments.NewPayPalGateway(client)
		if err != nil {
			return nil, err
		}
		gateways[enums.PaymentMethodPayPal] = payments.WithBreaker(gateway, cfg.Breaker, logg)
	}

	if cfg.Square.Enabled() {
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		gateway, err := payments.NewSquareGateway(client)
		if err != nil {
			return nil, err
		}
		gateways[enums.PaymentMethodSquare] = payments.WithBreaker(gateway, cfg.Breaker, logg)
	}

	return gateways, nil
}

// buildNotifier always logs notices and additionally publishes them when a
// receipt topic is configured.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger, readiness map[string]controllers.Pinger, closers *[]func() error) (notifications.Notifier, error) {
	fanout := notifications.Fanout{notifications.NewLogNotifier(logg)}
	if !cfg.PubSub.Enabled() {
		return fanout, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, client.Close)
	readiness["pubsub"] = client

	publisher := client.ReceiptPublisher()
	*closers = append(*closers, func() error {
		publisher.Stop()
		return nil
	})

	pubsubNotifier, err := notifications.NewPubSubNotifier(notifications.TopicPublisher(publisher), logg)
	if err != nil {
		return nil, err
	}
	return append(fanout, pubsubNotifier), nil
}
