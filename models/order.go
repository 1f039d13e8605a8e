package models

import "encoding/json"

// AdminRegistration is one row of the admin event view.
type AdminRegistration struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Product      string   `json:"product"`
	Price        float64  `json:"price"`
	PaidPrice    *float64 `json:"paid_price"`
	WaitListed   bool     `json:"wait_listed"`
	Active       bool     `json:"active"`
	PaymentID    string   `json:"payment_id"`
	PaymentToken string   `json:"payment_token"`
	DanceRole    string   `json:"dance_role,omitempty"`
	Partner      string   `json:"partner,omitempty"`
	PtnToken     string   `json:"ptn_token,omitempty"`
}

type AdminPayment struct {
	ID        string          `json:"id"`
	PmtToken  string          `json:"pmt_token"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Price     float64         `json:"price"`
	PaidPrice *float64        `json:"paid_price"`
	Status    string          `json:"status"`
	Stripe    json.RawMessage `json:"stripe,omitempty"`
}

// AdminEventInfo is the admin view of an event with its registrations and payments.
type AdminEventInfo struct {
	Name          string              `json:"name"`
	Key           string              `json:"key"`
	Products      []SelectableItem    `json:"products"`
	Layout        json.RawMessage     `json:"layout,omitempty"`
	Registrations []AdminRegistration `json:"registrations"`
	Payments      []AdminPayment      `json:"payments"`
}

type OrderTicket struct {
	Title         string   `json:"title"`
	StartDatetime string   `json:"start_datetime,omitempty"`
	EndDatetime   string   `json:"end_datetime,omitempty"`
	Level         string   `json:"level,omitempty"`
	Teachers      string   `json:"teachers,omitempty"`
	Price         *float64 `json:"price"`
	IsPaid        bool     `json:"is_paid"`
	Info          string   `json:"info,omitempty"`
	WaitListed    bool     `json:"wait_listed"`
	Person        string   `json:"person,omitempty"`
	Partner       string   `json:"partner,omitempty"`
	DanceRole     string   `json:"dance_role,omitempty"`
	TicketClass   string   `json:"ticket_class,omitempty"`
}

type OrderProduct struct {
	Title  string   `json:"title"`
	Price  *float64 `json:"price"`
	Amount int      `json:"amount"`
	IsPaid bool     `json:"is_paid"`
	Info   string   `json:"info,omitempty"`
}

type OrderDiscount struct {
	Person string   `json:"person"`
	Price  *float64 `json:"price"`
	Info   string   `json:"info,omitempty"`
}

type OrderPayment struct {
	Date      string   `json:"date"`
	Price     *float64 `json:"price"`
	PaidPrice *float64 `json:"paid_price"`
}

// UserOrderInfo is the order summary shown to a registrant via their payment token.
type UserOrderInfo struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	PtnToken  string          `json:"ptn_token,omitempty"`
	RegToken  string          `json:"reg_token,omitempty"`
	EventName string          `json:"event_name,omitempty"`
	EventInfo string          `json:"event_info,omitempty"`
	EventKey  string          `json:"event_key,omitempty"`
	Payments  []OrderPayment  `json:"payments"`
	Tickets   []OrderTicket   `json:"tickets"`
	Products  []OrderProduct  `json:"products"`
	Discounts []OrderDiscount `json:"discounts"`
}
