package payment

import (
	"event-storefront/models"
)

// Ledger is the slice of the session store the orchestrator reads from and
// writes the payment result into.
type Ledger interface {
	PaymentSetup() (models.PaymentSetup, bool)
	Registration() models.RegistrationInfo
	EventName() string
	Page() models.PageContext
	SetPaymentResult(models.PaymentResult)
}
