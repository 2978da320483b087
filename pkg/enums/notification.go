package enums

import "fmt"

// NotificationType groups customer notices.
type NotificationType string

const (
	NotificationTypePurchase NotificationType = "purchase"
	NotificationTypeRefund   NotificationType = "refund"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePurchase,
	NotificationTypeRefund,
}

// IsValid reports whether the value is a known NotificationType.
func (t NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
