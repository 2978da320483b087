package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/api/responses"
	"github.com/angelmondragon/sportshub-backend/api/validators"
	"github.com/angelmondragon/sportshub-backend/internal/payments"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type PaymentService interface {
	Create(ctx context.Context, input payments.CreateInput) (*models.Payment, error)
	Process(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	Refund(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error)
	Get(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	ClientSecret(ctx context.Context, paymentID uuid.UUID) (string, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ListForCart(ctx context.Context, cartID uuid.UUID, owner *uuid.UUID) ([]models.Payment, error)
}

type createPaymentRequest struct {
	CartID uuid.UUID `json:"cartId" validate:"required"`
	Amount string    `json:"amount" validate:"required"`
	Method string    `json:"method" validate:"required"`
	Notes  string    `json:"notes" validate:"max=1000"`
}

type refundPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type clientSecretResponse struct {
	PaymentID    uuid.UUID `json:"paymentId"`
	ClientSecret string    `json:"clientSecret"`
}

// CreatePayment opens a PENDING payment for the caller's cart.
func CreatePayment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := validators.ParseAmount(payload.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Create(r.Context(), payments.CreateInput{
			CartID: payload.CartID,
			UserID: userID,
			Amount: amount,
			Method: payload.Method,
			Notes:  payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func GetPayment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		payment, err := ownedPayment(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// ProcessPayment confirms a PENDING payment. The owner or an admin may call it.
func ProcessPayment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		payment, err := ownedPayment(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		processed, err := svc.Process(r.Context(), payment.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, processed)
	}
}

// RefundPayment is mounted behind the admin role.
func RefundPayment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		id, err := pathUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload refundPaymentRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		refunded, err := svc.Refund(r.Context(), id, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refunded)
	}
}

// PaymentClientSecret hands the owner the secret needed to confirm a card payment.
func PaymentClientSecret(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		payment, err := ownedPayment(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		secret, err := svc.ClientSecret(r.Context(), payment.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, clientSecretResponse{PaymentID: payment.ID, ClientSecret: secret})
	}
}

// ListUserPayments lists one user's payments; only that user or an admin may read them.
func ListUserPayments(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !actor.IsAdmin && userID != actor.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "payments belong to another user"))
			return
		}
		rows, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ListCartPayments lists a cart's payments. Customers only see their own rows.
func ListCartPayments(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartID, err := pathUUID(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var owner *uuid.UUID
		if !actor.IsAdmin {
			owner = &actor.UserID
		}
		rows, err := svc.ListForCart(r.Context(), cartID, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ownedPayment(r *http.Request, svc PaymentService) (*models.Payment, error) {
	actor, err := actorFrom(r)
	if err != nil {
		return nil, err
	}
	id, err := pathUUID(r, "paymentId")
	if err != nil {
		return nil, err
	}
	payment, err := svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && payment.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	return payment, nil
}
