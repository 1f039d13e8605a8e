package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CSRFErrorKey in a pricing error map means the page's CSRF token expired.
const CSRFErrorKey = "csrf_token"

// FieldErrors maps a form field to its validation messages.
type FieldErrors map[string]ErrorMessages

// ErrorMessages are the messages for one field. The server sends a list; a
// bare string is accepted as a single message.
type ErrorMessages []string

func (m *ErrorMessages) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*m = ErrorMessages{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("error messages must be a string or a list of strings: %w", err)
	}
	*m = many
	return nil
}

func (m ErrorMessages) String() string {
	return strings.Join(m, " ")
}

// Clone returns a deep copy of e.
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = append(ErrorMessages{}, v...)
	}
	return out
}

type OrderSummary struct {
	TotalPrice     float64     `json:"total_price"`
	TransactionFee float64     `json:"transaction_fee"`
	Total          float64     `json:"total"`
	Items          []OrderItem `json:"items"`
	PayAllNow      bool        `json:"pay_all_now"`
	PayNow         *float64    `json:"pay_now,omitempty"`
	PayNowFee      *float64    `json:"pay_now_fee,omitempty"`
	PayNowTotal    *float64    `json:"pay_now_total,omitempty"`
}

// PaymentSetup are the widget parameters staged by a checkout-enabled response.
// Amount is in minor currency units.
type PaymentSetup struct {
	Amount int64  `json:"amount"`
	Email  string `json:"email"`
}

// PricingResponse is the authoritative cart/price/validation snapshot from the server.
type PricingResponse struct {
	OrderSummary    OrderSummary       `json:"order_summary"`
	Errors          FieldErrors        `json:"errors"`
	NewPrices       map[string]float64 `json:"new_prices,omitempty"`
	Stripe          *PaymentSetup      `json:"stripe,omitempty"`
	DisableCheckout bool               `json:"disable_checkout"`
	CheckoutSuccess bool               `json:"checkout_success"`
	PaymentID       string             `json:"payment_id,omitempty"`
}

// HasSessionExpired reports whether the error map signals a stale CSRF token.
func (r *PricingResponse) HasSessionExpired() bool {
	_, ok := r.Errors[CSRFErrorKey]
	return ok
}
