package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines operations that record ledger events.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	HasEvent(ctx context.Context, paymentID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListForPayment(ctx context.Context, paymentID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	PaymentID   uuid.UUID             `json:"payment_id"`
	CartID      uuid.UUID             `json:"cart_id"`
	UserID      uuid.UUID             `json:"user_id"`
	Type        enums.LedgerEventType `json:"type"`
	AmountCents int64                 `json:"amount_cents"`
	Metadata    json.RawMessage       `json:"metadata"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.PaymentID == uuid.Nil {
		return nil, fmt.Errorf("payment id is required")
	}
	if input.CartID == uuid.Nil {
		return nil, fmt.Errorf("cart id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountCents < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}

	event := &models.LedgerEvent{
		PaymentID:   input.PaymentID,
		CartID:      input.CartID,
		UserID:      input.UserID,
		Type:        input.Type,
		AmountCents: input.AmountCents,
		Metadata:    input.Metadata,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) HasEvent(ctx context.Context, paymentID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if paymentID == uuid.Nil {
		return false, fmt.Errorf("payment id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}

	events, err := s.repo.ListByPaymentID(ctx, paymentID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) ListForPayment(ctx context.Context, paymentID uuid.UUID) ([]models.LedgerEvent, error) {
	if paymentID == uuid.Nil {
		return nil, fmt.Errorf("payment id is required")
	}
	return s.repo.ListByPaymentID(ctx, paymentID)
}
