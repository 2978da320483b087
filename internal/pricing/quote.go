package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/money"
)

// LineQuote is the priced form of one cart line.
type LineQuote struct {
	CartLineID uuid.UUID       `json:"cartLineId"`
	Base       decimal.Decimal `json:"base"`
	Coupon     *models.Coupon  `json:"coupon,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Quote is a fully priced cart.
type Quote struct {
	Lines        []LineQuote     `json:"lines"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CartCoupon   *models.Coupon  `json:"cartCoupon,omitempty"`
	CartDiscount decimal.Decimal `json:"cartDiscount"`
	Total        decimal.Decimal `json:"total"`
}

// SelectBestCoupon returns the usable coupon granting the largest discount on base.
// The first candidate wins ties. A nil coupon means none applies.
func SelectBestCoupon(base decimal.Decimal, coupons []models.Coupon, now time.Time) (*models.Coupon, decimal.Decimal) {
	var (
		winner *models.Coupon
		best   = decimal.Zero
	)
	for i := range coupons {
		c := coupons[i]
		if !c.IsUsable(now) || !c.DiscountPercent.IsPositive() {
			continue
		}
		discount := money.Round(money.Percent(base, c.DiscountPercent))
		if discount.GreaterThan(best) {
			winner = &coupons[i]
			best = discount
		}
	}
	return winner, best
}

// LineBase is the undiscounted price of a line.
func LineBase(line models.CartLine, item models.InventoryItem) decimal.Decimal {
	qty := decimal.NewFromInt(int64(line.Quantity))
	if !item.IsRental() {
		return money.Round(item.Price.Mul(qty))
	}
	rate := item.Price
	if item.PricePerDay != nil {
		rate = *item.PricePerDay
	}
	days := 1
	if end := line.RentalEnd(); line.StartDate != nil && end != nil {
		if n := dates.DaysBetween(*line.StartDate, *end); n > 1 {
			days = n
		}
	}
	return money.Round(rate.Mul(qty).Mul(decimal.NewFromInt(int64(days))))
}

// BuildQuote prices lines against their product coupons and an optional cart coupon.
// The cart coupon applies to the sum of already discounted subtotals.
func BuildQuote(lines []models.CartLine, couponsByProduct map[uuid.UUID][]models.Coupon, cartCoupon *models.Coupon, now time.Time) Quote {
	q := Quote{Lines: make([]LineQuote, 0, len(lines)), Subtotal: decimal.Zero, CartDiscount: decimal.Zero}
	for _, line := range lines {
		lq := LineQuote{CartLineID: line.ID, Base: decimal.Zero, Discount: decimal.Zero, Subtotal: decimal.Zero}
		if line.InventoryItem != nil {
			lq.Base = LineBase(line, *line.InventoryItem)
			lq.Coupon, lq.Discount = SelectBestCoupon(lq.Base, couponsByProduct[line.InventoryItem.ProductID], now)
			lq.Subtotal = floorZero(lq.Base.Sub(lq.Discount))
		}
		q.Lines = append(q.Lines, lq)
		q.Subtotal = q.Subtotal.Add(lq.Subtotal)
	}

	q.Total = q.Subtotal
	if cartCoupon != nil && cartCoupon.IsUsable(now) && cartCoupon.DiscountPercent.IsPositive() {
		q.CartCoupon = cartCoupon
		q.CartDiscount = money.Round(money.Percent(q.Subtotal, cartCoupon.DiscountPercent))
		q.Total = floorZero(q.Subtotal.Sub(q.CartDiscount))
	}
	q.Total = money.Round(q.Total)
	return q
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
