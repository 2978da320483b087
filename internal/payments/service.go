// Package payments drives a cart through checkout: payment creation against a
// freshly computed total, the locked stock commit, and refunds.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/internal/ledger"
	"github.com/angelmondragon/sportshub-backend/internal/pricing"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/internal/stock"
	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	"github.com/angelmondragon/sportshub-backend/pkg/metrics"
	"github.com/angelmondragon/sportshub-backend/pkg/money"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DefaultTolerance is the accepted gap between a submitted amount and the computed total.
var DefaultTolerance = decimal.RequireFromString("0.001")

// DefaultGatewayMethods are settled through the card gateway.
var DefaultGatewayMethods = []enums.PaymentMethod{
	enums.PaymentMethodCard,
	enums.PaymentMethodCreditCard,
	enums.PaymentMethodDebitCard,
}

// CreateInput is a checkout attempt for a cart.
type CreateInput struct {
	CartID uuid.UUID
	UserID uuid.UUID
	Amount decimal.Decimal
	Method string
	Notes  string
}

type Service struct {
	repo      Repository
	rentals   rentals.Repository
	avail     *rentals.Engine
	stock     *stock.Engine
	pricing   *pricing.Engine
	ledger    ledger.Service
	outbox    outbox.Emitter
	gateway   Gateway
	tx        txRunner
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	tolerance decimal.Decimal
	gatewayBy map[enums.PaymentMethod]struct{}
	now       func() time.Time
}

type ServiceParams struct {
	Repository     Repository
	Rentals        rentals.Repository
	Availability   *rentals.Engine
	Stock          *stock.Engine
	Pricing        *pricing.Engine
	Ledger         ledger.Service
	Outbox         outbox.Emitter
	Gateway        Gateway
	TxRunner       txRunner
	Metrics        *metrics.CheckoutMetrics
	Logger         *logger.Logger
	Tolerance      *decimal.Decimal
	GatewayMethods []enums.PaymentMethod
	Now            func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("payment repository required")
	case params.Rentals == nil:
		return nil, fmt.Errorf("rental repository required")
	case params.Availability == nil:
		return nil, fmt.Errorf("availability engine required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock engine required")
	case params.Pricing == nil:
		return nil, fmt.Errorf("pricing engine required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	}

	tolerance := DefaultTolerance
	if params.Tolerance != nil {
		tolerance = *params.Tolerance
	}
	methods := params.GatewayMethods
	if len(methods) == 0 {
		methods = DefaultGatewayMethods
	}
	gatewayBy := make(map[enums.PaymentMethod]struct{}, len(methods))
	for _, m := range methods {
		gatewayBy[m] = struct{}{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      params.Repository,
		rentals:   params.Rentals,
		avail:     params.Availability,
		stock:     params.Stock,
		pricing:   params.Pricing,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		gateway:   params.Gateway,
		tx:        params.TxRunner,
		metrics:   params.Metrics,
		logg:      params.Logger,
		tolerance: tolerance,
		gatewayBy: gatewayBy,
		now:       now,
	}, nil
}

// Create opens a PENDING payment for the cart's recomputed total. Any failure
// rolls back the whole unit, so a rejected attempt leaves no payment row behind.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required").
			WithDetails(map[string]any{"field": "cartId"})
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	method, err := enums.ParsePaymentMethod(input.Method)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method").
			WithDetails(map[string]any{"field": "method"})
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").
			WithDetails(map[string]any{"field": "amount"})
	}

	var created *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.LockCart(ctx, input.CartID)
		if err != nil {
			return notFoundOr(err, "cart not found", "lock cart")
		}
		if cart.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "cart is not active").
				WithDetails(map[string]any{"status": cart.Status})
		}

		if err := s.validateStock(ctx, tx, cart.ID); err != nil {
			return err
		}

		quote, err := s.pricing.Recompute(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if !money.WithinTolerance(input.Amount, quote.Total, s.tolerance) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf(
				"payment amount (%s) must match the cart total (%s)",
				input.Amount.StringFixed(2), quote.Total.StringFixed(2),
			)).WithDetails(map[string]any{
				"amount": input.Amount.StringFixed(2),
				"total":  quote.Total.StringFixed(2),
			})
		}

		payment := &models.Payment{
			Entity:         models.NewEntity(),
			CartID:         cart.ID,
			UserID:         input.UserID,
			Amount:         money.Round(input.Amount),
			Method:         method,
			Status:         enums.PaymentStatusPending,
			TransactionID:  newTransactionID(),
			Notes:          strings.TrimSpace(input.Notes),
			AppliedCoupons: pricing.Summarize(quote),
		}

		// a fully discounted cart has nothing to charge
		if s.IsGatewayMethod(method) && payment.Amount.IsPositive() {
			ref, secret, err := s.gateway.OpenIntent(ctx, money.ToCents(payment.Amount), "Cart "+cart.ID.String(), map[string]string{
				"cart_id":        cart.ID.String(),
				"user_id":        input.UserID.String(),
				"transaction_id": payment.TransactionID,
			})
			if err != nil {
				return gatewayError(err, "open payment intent")
			}
			payment.GatewayIntentID = &ref
			payment.ClientSecret = secret
		}

		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}
		if err := s.emit(ctx, tx, payment, enums.EventPaymentCreated, payloads.PaymentCreatedEvent{
			PaymentID:       payment.ID,
			CartID:          payment.CartID,
			UserID:          payment.UserID,
			TransactionID:   payment.TransactionID,
			AmountCents:     money.ToCents(payment.Amount),
			Method:          payment.Method,
			GatewayIntentID: payment.GatewayIntentID,
		}); err != nil {
			return err
		}
		created = payment
		return nil
	})
	if err != nil {
		s.reject(ctx, "create", input.CartID, err)
		return nil, err
	}
	s.transitioned(ctx, "create", created, "")
	return created, nil
}

// Process commits a payment once the gateway reports success. Non-gateway
// methods and zero totals commit directly.
func (s *Service) Process(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var (
		processed *models.Payment
		from      enums.PaymentStatus
	)
	started := time.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "lock payment")
		}
		if payment.Status.IsSettled() {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "payment has already been settled").
				WithDetails(map[string]any{"status": payment.Status})
		}
		if payment.GatewayRefundID != nil {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "payment has been refunded at the gateway").
				WithDetails(map[string]any{"status": payment.Status})
		}

		if s.chargesGateway(payment) {
			if payment.GatewayIntentID == nil || *payment.GatewayIntentID == "" {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "payment has no gateway intent")
			}
			status, err := s.gateway.GetIntentStatus(ctx, *payment.GatewayIntentID)
			if err != nil {
				return gatewayError(err, "fetch payment intent")
			}
			if status != GatewayStatusSucceeded {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf("payment has not succeeded at the gateway (status %s)", status)).
					WithDetails(map[string]any{"gatewayStatus": status})
			}
			if err := s.attachCharge(ctx, payment); err != nil {
				return err
			}
		}

		from = payment.Status
		if err := s.commit(ctx, tx, payment); err != nil {
			return err
		}
		processed = payment
		return nil
	})
	if err != nil {
		s.reject(ctx, "process", uuid.Nil, err)
		return nil, err
	}
	s.metrics.ObserveCommit(time.Since(started))
	s.transitioned(ctx, "process", processed, from)
	return processed, nil
}

// Refund reverses a completed payment: stock comes back, bookings are
// cancelled (never deleted) and the gateway charge is refunded in full.
func (s *Service) Refund(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error) {
	reason = strings.TrimSpace(reason)
	var cancelled []uuid.UUID
	var refunded *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "lock payment")
		}
		if payment.Status != enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "only completed payments can be refunded").
				WithDetails(map[string]any{"status": payment.Status})
		}
		hasCharge := payment.GatewayChargeID != nil && *payment.GatewayChargeID != ""
		if !hasCharge && s.chargesGateway(payment) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "payment has no gateway charge to refund")
		}

		if _, err := repo.LockCart(ctx, payment.CartID); err != nil {
			return notFoundOr(err, "cart not found", "lock cart")
		}
		lines, err := repo.ListCartLines(ctx, payment.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
		}
		if _, err := repo.LockItems(ctx, itemIDs(lines)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock inventory items")
		}

		var rentalLines []uuid.UUID
		for _, line := range lines {
			if line.InventoryItem == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
					WithDetails(map[string]any{"inventoryItemId": line.InventoryItemID})
			}
			if line.InventoryItem.IsRental() {
				rentalLines = append(rentalLines, line.ID)
				continue
			}
			if err := repo.IncrementStock(ctx, line.InventoryItemID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
			}
		}

		cancelled, err = s.cancelReservations(ctx, tx, rentalLines)
		if err != nil {
			return err
		}

		from := payment.Status
		payment.Status = enums.PaymentStatusRefunded
		if hasCharge {
			refundID, err := s.gateway.Refund(ctx, *payment.GatewayChargeID, nil, RefundReasonRequestedByCustomer, refundKey(payment))
			if err != nil {
				return gatewayError(err, "refund charge")
			}
			payment.GatewayRefundID = &refundID
		}
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		if err := repo.UpdateCartStatus(ctx, payment.CartID, enums.CartStatusRefunded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart")
		}

		if err := s.record(ctx, tx, payment, enums.LedgerEventTypeRefund, map[string]any{
			"transaction_id": payment.TransactionID,
			"reason":         reason,
			"from":           from,
		}); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, payment, enums.EventPaymentRefunded, payloads.PaymentRefundedEvent{
			PaymentID:       payment.ID,
			CartID:          payment.CartID,
			UserID:          payment.UserID,
			AmountCents:     money.ToCents(payment.Amount),
			Reason:          reason,
			GatewayRefundID: payment.GatewayRefundID,
			CancelledIDs:    cancelled,
		}); err != nil {
			return err
		}
		if err := s.notify(ctx, tx, payment, enums.NotificationTypeRefund, "Refund issued",
			fmt.Sprintf("Your payment %s of %s has been refunded.", payment.TransactionID, payment.Amount.StringFixed(2))); err != nil {
			return err
		}
		refunded = payment
		return nil
	})
	if err != nil {
		s.reject(ctx, "refund", uuid.Nil, err)
		return nil, err
	}
	s.transitioned(ctx, "refund", refunded, enums.PaymentStatusCompleted)
	return refunded, nil
}

// HandleGatewayStatus applies an asynchronous gateway report. A success runs
// the same commit as Process; settled payments are never touched again. A
// success whose commit is rejected for good fails the payment and refunds the
// charge, so the report is acknowledged instead of redelivered forever.
func (s *Service) HandleGatewayStatus(ctx context.Context, intentRef, gatewayStatus string) (*models.Payment, error) {
	intentRef = strings.TrimSpace(intentRef)
	if intentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway reference is required")
	}
	target := enums.PaymentStatusFromGateway(gatewayStatus)

	var (
		result    *models.Payment
		from      enums.PaymentStatus
		changed   bool
		commitErr error
	)
	started := time.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockByIntentID(ctx, intentRef)
		if err != nil {
			return notFoundOr(err, "payment not found for gateway reference", "lock payment")
		}
		result = payment
		from = payment.Status
		if payment.Status.IsSettled() || payment.Status == target || payment.GatewayRefundID != nil {
			return nil
		}

		if target == enums.PaymentStatusCompleted {
			if err := s.attachCharge(ctx, payment); err != nil {
				return err
			}
			changed = true
			if err := s.commit(ctx, tx, payment); err != nil {
				commitErr = err
				return err
			}
			return nil
		}

		payment.Status = target
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		changed = true
		return s.emit(ctx, tx, payment, enums.EventPaymentStatusChanged, payloads.PaymentStatusChangedEvent{
			PaymentID: payment.ID,
			CartID:    payment.CartID,
			From:      from,
			To:        target,
		})
	})
	if err != nil {
		s.reject(ctx, "webhook", uuid.Nil, err)
		if commitErr != nil && !retryable(commitErr) {
			return s.failUncommittable(ctx, intentRef, commitErr)
		}
		return nil, err
	}
	if changed {
		if result.Status == enums.PaymentStatusCompleted {
			s.metrics.ObserveCommit(time.Since(started))
		}
		s.transitioned(ctx, "webhook", result, from)
	}
	return result, nil
}

// failUncommittable moves a payment whose captured charge can never be
// committed to FAILED and refunds the charge. A gateway failure is returned
// so the report is retried.
func (s *Service) failUncommittable(ctx context.Context, intentRef string, cause error) (*models.Payment, error) {
	reason := cause.Error()
	if typed := pkgerrors.As(cause); typed != nil {
		reason = typed.Message()
	}

	var (
		failed  *models.Payment
		from    enums.PaymentStatus
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockByIntentID(ctx, intentRef)
		if err != nil {
			return notFoundOr(err, "payment not found for gateway reference", "lock payment")
		}
		failed = payment
		from = payment.Status
		if payment.Status.IsSettled() || payment.GatewayRefundID != nil {
			return nil
		}

		if err := s.attachCharge(ctx, payment); err != nil {
			return err
		}
		if payment.GatewayChargeID != nil && *payment.GatewayChargeID != "" {
			refundID, err := s.gateway.Refund(ctx, *payment.GatewayChargeID, nil, RefundReasonRequestedByCustomer, refundKey(payment))
			if err != nil {
				return gatewayError(err, "refund charge")
			}
			payment.GatewayRefundID = &refundID
		}
		payment.Status = enums.PaymentStatusFailed
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		changed = true
		if err := s.emit(ctx, tx, payment, enums.EventPaymentStatusChanged, payloads.PaymentStatusChangedEvent{
			PaymentID: payment.ID,
			CartID:    payment.CartID,
			From:      from,
			To:        enums.PaymentStatusFailed,
			Reason:    reason,
		}); err != nil {
			return err
		}
		return s.notify(ctx, tx, payment, enums.NotificationTypeRefund, "Payment could not be completed",
			fmt.Sprintf("Your payment %s of %s could not be completed (%s) and has been refunded.",
				payment.TransactionID, payment.Amount.StringFixed(2), reason))
	})
	if err != nil {
		s.reject(ctx, "webhook_fail", uuid.Nil, err)
		return nil, err
	}
	if changed {
		s.transitioned(ctx, "webhook_fail", failed, from)
	}
	return failed, nil
}

func (s *Service) Get(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "load payment")
	}
	return payment, nil
}

// ClientSecret returns the gateway secret the storefront confirms the card
// payment with.
func (s *Service) ClientSecret(ctx context.Context, paymentID uuid.UUID) (string, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "load payment")
	}
	if payment.GatewayIntentID == nil || *payment.GatewayIntentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeBusinessRule, "payment has no gateway intent")
	}
	secret, err := s.gateway.GetClientSecret(ctx, *payment.GatewayIntentID)
	if err != nil {
		return "", gatewayError(err, "fetch client secret")
	}
	return secret, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return rows, nil
}

// ListForCart lists a cart's payments. A nil owner lists every payer's rows.
func (s *Service) ListForCart(ctx context.Context, cartID uuid.UUID, owner *uuid.UUID) ([]models.Payment, error) {
	rows, err := s.repo.ListByCart(ctx, cartID, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	return rows, nil
}

// IsGatewayMethod reports whether method settles through the card gateway.
func (s *Service) IsGatewayMethod(method enums.PaymentMethod) bool {
	_, ok := s.gatewayBy[method]
	return ok
}

func (s *Service) chargesGateway(payment *models.Payment) bool {
	return s.IsGatewayMethod(payment.Method) && payment.Amount.IsPositive()
}

// commit mutates stock for every line of the payment's cart under row locks.
// Every line is validated before any line is mutated.
func (s *Service) commit(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	repo := s.repo.WithTx(tx)
	cart, err := repo.LockCart(ctx, payment.CartID)
	if err != nil {
		return notFoundOr(err, "cart not found", "lock cart")
	}
	if cart.Status != enums.CartStatusActive {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "cart is no longer active").
			WithDetails(map[string]any{"status": cart.Status})
	}

	lines, err := repo.ListCartLines(ctx, cart.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	ids := itemIDs(lines)
	items, err := repo.LockItems(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock inventory items")
	}
	if len(items) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	locked := make(map[uuid.UUID]*models.InventoryItem, len(items))
	remaining := make(map[uuid.UUID]int, len(items))
	for i := range items {
		locked[items[i].ID] = &items[i]
		remaining[items[i].ID] = items[i].Quantity
	}

	if err := s.validateStock(ctx, tx, cart.ID); err != nil {
		return err
	}

	avail := s.avail.WithTx(tx)
	rentalRepo := s.rentals.WithTx(tx)
	var reservationIDs []uuid.UUID
	for _, line := range lines {
		item := locked[line.InventoryItemID]
		if !item.IsRental() {
			ok, err := repo.DecrementStock(ctx, item.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					stock.InsufficientStockMessage(productName(line), remaining[item.ID], line.Quantity)).
					WithDetails(map[string]any{
						"product":   productName(line),
						"requested": line.Quantity,
						"available": remaining[item.ID],
					})
			}
			remaining[item.ID] -= line.Quantity
			continue
		}

		// Earlier lines of this cart may already hold capacity on the same item.
		availability, err := avail.CheckItem(ctx, item, rentals.AvailabilityRequest{
			InventoryItemID: item.ID,
			StartDate:       derefDay(line.StartDate),
			EndDate:         derefDay(line.RentalEnd()),
			Quantity:        line.Quantity,
		})
		if err != nil {
			return err
		}
		if !availability.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeRentalNotAvailable, availability.Reason).
				WithDetails(map[string]any{
					"product":   productName(line),
					"requested": line.Quantity,
					"available": availability.AvailableQty,
				})
		}
		lineID := line.ID
		reservation := &models.Reservation{
			Entity:          models.NewEntity(),
			InventoryItemID: item.ID,
			CartLineID:      &lineID,
			UserID:          payment.UserID,
			StartDate:       availability.StartDate,
			EndDate:         availability.EndDate,
			Quantity:        line.Quantity,
			Status:          enums.ReservationStatusConfirmed,
			TotalPrice:      line.Subtotal,
		}
		if err := rentalRepo.Create(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reservation")
		}
		if err := s.emitReservation(ctx, tx, reservation, "", enums.ReservationStatusConfirmed); err != nil {
			return err
		}
		reservationIDs = append(reservationIDs, reservation.ID)
	}

	completedAt := s.now().UTC()
	payment.Status = enums.PaymentStatusCompleted
	payment.PaymentDate = &completedAt
	if err := repo.Save(ctx, payment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
	}
	if err := repo.UpdateCartStatus(ctx, cart.ID, enums.CartStatusCompleted); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart")
	}

	if err := s.record(ctx, tx, payment, enums.LedgerEventTypeCharge, map[string]any{
		"transaction_id":  payment.TransactionID,
		"applied_coupons": payment.AppliedCoupons,
		"reservations":    len(reservationIDs),
	}); err != nil {
		return err
	}
	if err := s.emit(ctx, tx, payment, enums.EventPaymentCompleted, payloads.PaymentCompletedEvent{
		PaymentID:      payment.ID,
		CartID:         payment.CartID,
		UserID:         payment.UserID,
		TransactionID:  payment.TransactionID,
		AmountCents:    money.ToCents(payment.Amount),
		ReservationIDs: reservationIDs,
		CompletedAt:    completedAt,
	}); err != nil {
		return err
	}
	return s.notify(ctx, tx, payment, enums.NotificationTypePurchase, "Payment received",
		fmt.Sprintf("Your payment %s of %s was completed.", payment.TransactionID, payment.Amount.StringFixed(2)))
}

func (s *Service) validateStock(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	result, err := s.stock.WithTx(tx).ValidateCart(ctx, cartID)
	if err != nil {
		return err
	}
	if len(result.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "cart is empty")
	}
	if !result.IsValid {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, result.Message).
			WithDetails(map[string]any{"lines": result.Lines})
	}
	return nil
}

func (s *Service) cancelReservations(ctx context.Context, tx *gorm.DB, lineIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	rentalRepo := s.rentals.WithTx(tx)
	rows, err := rentalRepo.ListByCartLines(ctx, lineIDs, []enums.ReservationStatus{
		enums.ReservationStatusConfirmed,
		enums.ReservationStatusActive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reservations")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		if err := rentalRepo.UpdateStatus(ctx, r.ID, enums.ReservationStatusCancelled, false); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel reservation")
		}
		if err := s.emitReservation(ctx, tx, r, r.Status, enums.ReservationStatusCancelled); err != nil {
			return nil, err
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *Service) attachCharge(ctx context.Context, payment *models.Payment) error {
	if payment.GatewayIntentID == nil {
		return nil
	}
	charge, err := s.gateway.ChargeFromIntent(ctx, *payment.GatewayIntentID)
	if err != nil {
		return gatewayError(err, "fetch charge")
	}
	if charge != "" {
		payment.GatewayChargeID = &charge
	}
	return nil
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, payment *models.Payment, kind enums.LedgerEventType, meta map[string]any) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
	}
	if _, err := s.ledger.WithTx(tx).RecordEvent(ctx, ledger.RecordLedgerEventInput{
		PaymentID:   payment.ID,
		CartID:      payment.CartID,
		UserID:      payment.UserID,
		Type:        kind,
		AmountCents: money.ToCents(payment.Amount),
		Metadata:    raw,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record ledger event")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, payment *models.Payment, eventType enums.OutboxEventType, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: payment.UserID},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
	}
	return nil
}

func (s *Service) emitReservation(ctx context.Context, tx *gorm.DB, r *models.Reservation, from, to enums.ReservationStatus) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReservationStatusChanged,
		AggregateType: enums.AggregateReservation,
		AggregateID:   r.ID,
		Actor:         &outbox.ActorRef{UserID: r.UserID},
		Data: payloads.ReservationStatusChangedEvent{
			ReservationID:   r.ID,
			InventoryItemID: r.InventoryItemID,
			UserID:          r.UserID,
			From:            from,
			To:              to,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit reservation event")
	}
	return nil
}

func (s *Service) notify(ctx context.Context, tx *gorm.DB, payment *models.Payment, kind enums.NotificationType, title, message string) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: payment.UserID},
		Data: payloads.NotificationRequestedEvent{
			UserID:    payment.UserID,
			PaymentID: payment.ID,
			CartID:    payment.CartID,
			Type:      kind,
			Title:     title,
			Message:   message,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit notification event")
	}
	return nil
}

func (s *Service) transitioned(ctx context.Context, op string, payment *models.Payment, from enums.PaymentStatus) {
	s.metrics.IncTransition(op, string(payment.Status))
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
	logCtx = s.logg.WithCartID(logCtx, payment.CartID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"operation": op,
		"from":      from,
		"to":        payment.Status,
	})
	s.logg.Info(logCtx, "payment status changed")
}

func (s *Service) reject(ctx context.Context, op string, cartID uuid.UUID, err error) {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncRejection(op, string(code))
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"operation": op, "code": code})
	if cartID != uuid.Nil {
		logCtx = s.logg.WithCartID(logCtx, cartID.String())
	}
	if pkgerrors.MetadataFor(code).HTTPStatus >= 500 {
		s.logg.Error(logCtx, "checkout failed", err)
		return
	}
	s.logg.Warn(logCtx, "checkout rejected: "+err.Error())
}

// retryable reports whether a failure may clear on redelivery.
func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	return meta.Retryable || meta.HTTPStatus >= 500
}

func refundKey(payment *models.Payment) string {
	return "refund-" + payment.ID.String()
}

func newTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN-" + strings.ToUpper(raw[:8])
}

func itemIDs(lines []models.CartLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.InventoryItemID]; ok {
			continue
		}
		seen[line.InventoryItemID] = struct{}{}
		ids = append(ids, line.InventoryItemID)
	}
	return ids
}

func productName(line models.CartLine) string {
	if line.InventoryItem != nil && line.InventoryItem.Product != nil {
		return line.InventoryItem.Product.Name
	}
	return line.InventoryItemID.String()
}

func derefDay(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return dates.Day(*t)
}

func gatewayError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
