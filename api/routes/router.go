package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the subset of the Redis client the HTTP layer needs for
// idempotent replays and rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Cart          cart.Service
	Users         users.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Payments      payments.Service
	StripeWebhook webhookcontrollers.StripeWebhookService
}

// NewRouter wires the storefront API. redisStore may be nil, which disables
// Idempotency-Key replay and rate limiting.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisStore RedisStore,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var idempotencyStore pkgredis.IdempotencyStore
	var limiter interface {
		FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	}
	if redisStore != nil {
		idempotencyStore = redisStore
		limiter = redisStore
	}

	confirmPolicy := middleware.NewRateLimitPolicy(
		"payment_confirm",
		cfg.RateLimit.PaymentConfirmWindow,
		cfg.RateLimit.PaymentConfirmLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(svc.StripeWebhook, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.SessionCart(cfg.Session, logg))
		r.Get("/", controllers.CartFetch(svc.Cart, logg))
		r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
		r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Post("/merge", controllers.CartMerge(svc.Cart, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(svc.Users, logg))
			r.Put("/address", controllers.UserSetAddress(svc.Users, logg))
			r.Put("/payment-method", controllers.UserSetPaymentMethod(svc.Users, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(svc.Checkout, logg))
			r.Get("/", controllers.OrderList(svc.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
			r.Route("/{orderId}/payments", func(r chi.Router) {
				r.Post("/capture/initiate", controllers.PaymentInitiate(svc.Payments, logg))
				r.With(middleware.RateLimit(confirmPolicy, limiter, logg)).
					Post("/capture/confirm", controllers.PaymentConfirm(svc.Payments, logg))
				r.Post("/stripe/intent", controllers.PaymentStripeIntent(svc.Payments, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/pay", controllers.AdminPayOrder(svc.Payments, logg))
			r.Post("/deliver", controllers.AdminDeliverOrder(svc.Orders, logg))
		})
	})

	return r
}
