package models

// PaymentServerErrorMessage replaces any finalize-payment transport or server failure.
const PaymentServerErrorMessage = "Server error while processing payment"

// PaymentToken is the opaque token returned by the hosted card widget.
type PaymentToken struct {
	ID       string `json:"id"`
	Object   string `json:"object,omitempty"`
	Email    string `json:"email,omitempty"`
	Type     string `json:"type,omitempty"`
	ClientIP string `json:"client_ip,omitempty"`
	Created  int64  `json:"created,omitempty"`
	Livemode bool   `json:"livemode,omitempty"`
}

// PayRequest is the body posted to the payment-finalization endpoint.
type PayRequest struct {
	StripeToken PaymentToken `json:"stripe_token"`
	CSRFToken   string       `json:"csrf_token"`
}

type PaymentResult struct {
	Success      *bool  `json:"success"`
	Complete     *bool  `json:"complete"`
	PaymentID    string `json:"payment_id,omitempty"`
	PayeeID      string `json:"payee_id,omitempty"`
	PmtToken     string `json:"pmt_token,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// PaymentServerError is the fixed result recorded when finalization fails.
func PaymentServerError() PaymentResult {
	failed := false
	return PaymentResult{Success: &failed, ErrorMessage: PaymentServerErrorMessage}
}
