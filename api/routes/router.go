package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sportshub-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/sportshub-backend/api/controllers/webhooks"
	"github.com/angelmondragon/sportshub-backend/api/middleware"
	"github.com/angelmondragon/sportshub-backend/internal/notifications"
	"github.com/angelmondragon/sportshub-backend/pkg/config"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/sportshub-backend/pkg/redis"
)

// RedisStore is the subset of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Dependencies holds everything the router hands to controllers. Nil
// services produce a 500 from the affected handlers only.
type Dependencies struct {
	DB      controllers.Pinger
	Redis   RedisStore
	Metrics prometheus.Gatherer

	Inventory     controllers.InventoryService
	Availability  controllers.AvailabilityChecker
	Rentals       controllers.RentalService
	Carts         controllers.CartService
	Stock         controllers.CartValidator
	Pricing       controllers.CouponSummarizer
	Coupons       controllers.CouponService
	Payments      controllers.PaymentService
	Notifications notifications.Service

	StripeSigning webhookcontrollers.SigningSecretProvider
	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeGuard   webhookcontrollers.WebhookGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var idemStore pkgredis.IdempotencyStore
	var limiterStore interface {
		IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	}
	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		idemStore = deps.Redis
		limiterStore = deps.Redis
		ready["redis"] = deps.Redis
	}
	paymentPolicy := middleware.NewRateLimitPolicy(
		"payments",
		cfg.RateLimit.PaymentWindow,
		cfg.RateLimit.PaymentIPLimit,
		cfg.RateLimit.PaymentUserLimit,
	)
	adminOnly := middleware.RequireRole(enums.UserRoleAdmin, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, ready, logg))
	})
	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeSigning, deps.StripeGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.With(adminOnly).Post("/", controllers.CreateInventoryItem(deps.Inventory, logg))
			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", controllers.GetInventoryItem(deps.Inventory, logg))
				r.Get("/availability", controllers.InventoryAvailability(deps.Availability, logg))
				r.With(adminOnly).Get("/reservations", controllers.ListItemReservations(deps.Rentals, logg))
				r.With(adminOnly).Put("/quantity", controllers.AdjustInventoryQuantity(deps.Inventory, logg))
				r.With(adminOnly).Delete("/", controllers.DeactivateInventoryItem(deps.Inventory, logg))
			})
		})

		r.Route("/rentals", func(r chi.Router) {
			r.Post("/", controllers.CreateReservation(deps.Rentals, logg))
			r.Get("/{reservationId}", controllers.GetReservation(deps.Rentals, logg))
			r.Post("/{reservationId}/{action}", controllers.TransitionReservation(deps.Rentals, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Carts, logg))
			r.Route("/{cartId}", func(r chi.Router) {
				r.Post("/lines", controllers.AddCartLine(deps.Carts, logg))
				r.Patch("/lines/{lineId}", controllers.UpdateCartLine(deps.Carts, logg))
				r.Delete("/lines/{lineId}", controllers.RemoveCartLine(deps.Carts, logg))
				r.Post("/coupon", controllers.ApplyCartCoupon(deps.Carts, logg))
				r.Delete("/coupon", controllers.RemoveCartCoupon(deps.Carts, logg))
				r.Get("/validation", controllers.CartValidation(deps.Carts, deps.Stock, logg))
				r.Get("/coupons-summary", controllers.CartCouponsSummary(deps.Carts, deps.Pricing, logg))
			})
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", controllers.CreateCoupon(deps.Coupons, logg))
			r.Post("/{couponId}/products", controllers.AttachCouponToProduct(deps.Coupons, logg))
			r.Delete("/{couponId}", controllers.DeactivateCoupon(deps.Coupons, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(middleware.RateLimit(paymentPolicy, limiterStore, logg))
			r.Post("/", controllers.CreatePayment(deps.Payments, logg))
			r.Get("/user/{userId}", controllers.ListUserPayments(deps.Payments, logg))
			r.Get("/cart/{cartId}", controllers.ListCartPayments(deps.Payments, logg))
			r.Get("/{paymentId}", controllers.GetPayment(deps.Payments, logg))
			r.Get("/{paymentId}/client-secret", controllers.PaymentClientSecret(deps.Payments, logg))
			r.Post("/{paymentId}/process", controllers.ProcessPayment(deps.Payments, logg))
			r.With(adminOnly).Post("/{paymentId}/refund", controllers.RefundPayment(deps.Payments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
