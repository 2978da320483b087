package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/sportshub-backend/api/routes"
	"github.com/angelmondragon/sportshub-backend/internal/cart"
	"github.com/angelmondragon/sportshub-backend/internal/coupons"
	"github.com/angelmondragon/sportshub-backend/internal/inventory"
	"github.com/angelmondragon/sportshub-backend/internal/ledger"
	"github.com/angelmondragon/sportshub-backend/internal/notifications"
	"github.com/angelmondragon/sportshub-backend/internal/payments"
	"github.com/angelmondragon/sportshub-backend/internal/pricing"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/internal/stock"
	stripewebhook "github.com/angelmondragon/sportshub-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/sportshub-backend/pkg/config"
	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	"github.com/angelmondragon/sportshub-backend/pkg/metrics"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
	"github.com/angelmondragon/sportshub-backend/pkg/redis"
	"github.com/angelmondragon/sportshub-backend/pkg/stripe"
)

const stripeWebhookScope = "stripe-webhook"

// buildDependencies constructs every service the router exposes.
func buildDependencies(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	reg *prometheus.Registry,
) (routes.Dependencies, error) {
	gdb := dbClient.DB()
	now := time.Now
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)

	rentalRepo := rentals.NewRepository(gdb)
	availability, err := rentals.NewEngine(rentalRepo, rentals.WithClock(now))
	if err != nil {
		return routes.Dependencies{}, err
	}
	rentalService, err := rentals.NewService(rentals.ServiceParams{
		Repository: rentalRepo,
		Engine:     availability,
		TxRunner:   dbClient,
		Outbox:     emitter,
		Logger:     logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repository:        inventory.NewRepository(gdb),
		RentalsRepository: rentalRepo,
		TxRunner:          dbClient,
		Outbox:            emitter,
		Logger:            logg,
		Now:               now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	stockEngine, err := stock.NewEngine(stock.NewRepository(gdb), availability)
	if err != nil {
		return routes.Dependencies{}, err
	}
	pricingEngine, err := pricing.NewEngine(pricing.EngineParams{
		Repository: pricing.NewRepository(gdb),
		TxRunner:   dbClient,
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	couponService, err := coupons.NewService(coupons.NewRepository(gdb), logg, now)
	if err != nil {
		return routes.Dependencies{}, err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Repository: cart.NewRepository(gdb),
		TxRunner:   dbClient,
		Rentals:    availability,
		Pricing:    pricingEngine,
		Coupons:    couponService,
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(gdb))
	if err != nil {
		return routes.Dependencies{}, err
	}
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("stripe client: %w", err)
	}
	gateway, err := stripe.NewGateway(stripeClient)
	if err != nil {
		return routes.Dependencies{}, err
	}
	methods, err := gatewayMethods(cfg.Checkout.GatewayMethods)
	if err != nil {
		return routes.Dependencies{}, err
	}
	tolerance := cfg.Checkout.Tolerance()
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repository:     payments.NewRepository(gdb),
		Rentals:        rentalRepo,
		Availability:   availability,
		Stock:          stockEngine,
		Pricing:        pricingEngine,
		Ledger:         ledgerService,
		Outbox:         emitter,
		Gateway:        gateway,
		TxRunner:       dbClient,
		Metrics:        metrics.NewCheckoutMetrics(reg),
		Logger:         logg,
		Tolerance:      &tolerance,
		GatewayMethods: methods,
		Now:            now,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Payments: paymentService, Logger: logg})
	if err != nil {
		return routes.Dependencies{}, err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, stripeWebhookScope)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Metrics:       reg,
		Inventory:     inventoryService,
		Availability:  rentalService,
		Rentals:       rentalService,
		Carts:         cartService,
		Stock:         stockEngine,
		Pricing:       pricingEngine,
		Coupons:       couponService,
		Payments:      paymentService,
		Notifications: notificationService,
		StripeSigning: stripeClient,
		StripeWebhook: webhookService,
		StripeGuard:   webhookGuard,
	}, nil
}

func gatewayMethods(raw []string) ([]enums.PaymentMethod, error) {
	methods := make([]enums.PaymentMethod, 0, len(raw))
	for _, value := range raw {
		method, err := enums.ParsePaymentMethod(value)
		if err != nil {
			return nil, fmt.Errorf("checkout gateway methods: %w", err)
		}
		methods = append(methods, method)
	}
	return methods, nil
}
