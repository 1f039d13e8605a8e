package models

// OrderItem is one priced line of the order summary.
type OrderItem struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	DanceRole  string  `json:"dance_role,omitempty"`
	WaitListed bool    `json:"wait_listed"`
	Person     string  `json:"person,omitempty"`
	Partner    string  `json:"partner,omitempty"`
}

type Cart struct {
	CheckoutEnabled bool        `json:"checkout_enabled"`
	CheckoutSuccess bool        `json:"checkout_success"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	TransactionFee  float64     `json:"transaction_fee"`
	PayNowTotal     float64     `json:"pay_now_total"`
}

func NewCart() Cart {
	return Cart{Items: []OrderItem{}}
}
