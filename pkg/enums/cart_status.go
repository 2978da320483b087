package enums

import "fmt"

// CartStatus tracks whether a cart is still open or already settled.
type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusCompleted CartStatus = "COMPLETED"
	CartStatusCancelled CartStatus = "CANCELLED"
	CartStatusRefunded  CartStatus = "REFUNDED"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusCompleted,
	CartStatusCancelled,
	CartStatusRefunded,
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
