package models

// CheckoutStatus tracks one payment-widget attempt.
type CheckoutStatus int

const (
	CheckoutStatusPending CheckoutStatus = iota
	CheckoutStatusCancelled
	CheckoutStatusSettled
)

func (cs CheckoutStatus) String() string {
	switch cs {
	case CheckoutStatusPending:
		return "pending"
	case CheckoutStatusCancelled:
		return "cancelled"
	case CheckoutStatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}
