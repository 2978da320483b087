package enums

import "fmt"

// PaymentStatus drives stock and reservation commits for a cart.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusCancelled,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSettled reports whether stock has already been committed (or reversed) for the payment.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentStatusFromGateway maps a gateway intent status onto PaymentStatus.
// Unrecognised statuses fall back to pending.
func PaymentStatusFromGateway(status string) PaymentStatus {
	switch status {
	case "succeeded":
		return PaymentStatusCompleted
	case "requires_payment_method":
		return PaymentStatusFailed
	case "canceled":
		return PaymentStatusCancelled
	case "processing":
		return PaymentStatusProcessing
	default:
		return PaymentStatusPending
	}
}
