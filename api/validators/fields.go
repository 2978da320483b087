package validators

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/money"
)

// ParseDate parses a YYYY-MM-DD body field.
func ParseDate(raw, field string) (time.Time, error) {
	day, err := dates.Parse(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be a YYYY-MM-DD date").
			WithDetails(map[string]any{"field": field})
	}
	return day, nil
}

// ParseOptionalDate returns nil for a nil or blank value.
func ParseOptionalDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	day, err := ParseDate(*raw, field)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// ParseAmount parses a non-negative decimal body field.
func ParseAmount(raw, field string) (decimal.Decimal, error) {
	amount, err := money.Parse(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be a non-negative decimal").
			WithDetails(map[string]any{"field": field})
	}
	return amount, nil
}

// ParseOptionalAmount returns nil for a nil or blank value.
func ParseOptionalAmount(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	amount, err := ParseAmount(*raw, field)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}
