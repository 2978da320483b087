// Package pricing derives line subtotals and cart totals. Client supplied
// amounts are never trusted; the persisted values written here are.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Engine struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

type EngineParams struct {
	Repository Repository
	TxRunner   txRunner
	Logger     *logger.Logger
	Now        func() time.Time
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{repo: params.Repository, tx: params.TxRunner, logg: params.Logger, now: now}, nil
}

// ComputeCartTotal reprices the cart in its own transaction and persists the result.
func (e *Engine) ComputeCartTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		q, err := e.Recompute(ctx, tx, cartID)
		if err != nil {
			return err
		}
		total = q.Total
		return nil
	})
	return total, err
}

// Recompute reprices the cart inside the caller's transaction. Only the cart row is locked.
func (e *Engine) Recompute(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (Quote, error) {
	repo := e.repo.WithTx(tx)
	cart, err := repo.LockCart(ctx, cartID)
	if err != nil {
		return Quote{}, cartLookupError(err, cartID)
	}
	q, err := e.quote(ctx, repo, cart)
	if err != nil {
		return Quote{}, err
	}
	for _, lq := range q.Lines {
		if err := repo.SaveLineSubtotal(ctx, lq.CartLineID, lq.Subtotal); err != nil {
			return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save line subtotal")
		}
	}
	if err := repo.SaveCartTotal(ctx, cart.ID, q.Total); err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart total")
	}
	if e.logg != nil {
		logCtx := e.logg.WithCartID(ctx, cart.ID.String())
		logCtx = e.logg.WithField(logCtx, "total", q.Total.StringFixed(2))
		e.logg.Debug(logCtx, "cart repriced")
	}
	return q, nil
}

// AppliedCouponsSummary lists each coupon that reduced the price, line coupons
// in line order then the cart coupon. Nothing is written.
func (e *Engine) AppliedCouponsSummary(ctx context.Context, cartID uuid.UUID) (string, error) {
	cart, err := e.repo.FindCart(ctx, cartID)
	if err != nil {
		return "", cartLookupError(err, cartID)
	}
	q, err := e.quote(ctx, e.repo, cart)
	if err != nil {
		return "", err
	}
	return Summarize(q), nil
}

// SummaryFor is AppliedCouponsSummary inside the caller's transaction.
func (e *Engine) SummaryFor(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (string, error) {
	repo := e.repo.WithTx(tx)
	cart, err := repo.FindCart(ctx, cartID)
	if err != nil {
		return "", cartLookupError(err, cartID)
	}
	q, err := e.quote(ctx, repo, cart)
	if err != nil {
		return "", err
	}
	return Summarize(q), nil
}

// Summarize renders "CODE:12.34, CART10:5.00".
func Summarize(q Quote) string {
	parts := make([]string, 0, len(q.Lines)+1)
	for _, lq := range q.Lines {
		if lq.Coupon != nil && lq.Discount.IsPositive() {
			parts = append(parts, lq.Coupon.Code+":"+lq.Discount.StringFixed(2))
		}
	}
	if q.CartCoupon != nil && q.CartDiscount.IsPositive() {
		parts = append(parts, q.CartCoupon.Code+":"+q.CartDiscount.StringFixed(2))
	}
	return strings.Join(parts, ", ")
}

func (e *Engine) quote(ctx context.Context, repo Repository, cart *models.Cart) (Quote, error) {
	lines, err := repo.ListLines(ctx, cart.ID)
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	productIDs := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.InventoryItem == nil {
			return Quote{}, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
				WithDetails(map[string]any{"inventoryItemId": line.InventoryItemID})
		}
		if _, ok := seen[line.InventoryItem.ProductID]; !ok {
			seen[line.InventoryItem.ProductID] = struct{}{}
			productIDs = append(productIDs, line.InventoryItem.ProductID)
		}
	}
	coupons, err := repo.CouponsByProduct(ctx, productIDs)
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product coupons")
	}

	var cartCoupon *models.Coupon
	if cart.CouponID != nil {
		cartCoupon, err = repo.FindCoupon(ctx, *cart.CouponID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart coupon")
		}
	}
	return BuildQuote(lines, coupons, cartCoupon, e.now()), nil
}

func cartLookupError(err error, cartID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").
			WithDetails(map[string]any{"cartId": cartID})
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
}
