package enums

import "fmt"

// LedgerEventType classifies money movements recorded against a payment.
type LedgerEventType string

const (
	LedgerEventTypeCharge LedgerEventType = "charge"
	LedgerEventTypeRefund LedgerEventType = "refund"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeCharge,
	LedgerEventTypeRefund,
}

// String implements fmt.Stringer.
func (t LedgerEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LedgerEventType.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
