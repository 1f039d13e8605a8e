package models

import "encoding/json"

// EventInfo is returned once by GET /event/{key}.
type EventInfo struct {
	Name     string           `json:"name"`
	Key      string           `json:"key"`
	Info     string           `json:"info,omitempty"`
	Layout   json.RawMessage  `json:"layout,omitempty"`
	Products []SelectableItem `json:"products"`
	Tickets  []SelectableItem `json:"tickets,omitempty"`
}

// PageContext is read from the hosted page once and never refreshed.
type PageContext struct {
	PublishableKey string `json:"stripe_pk"`
	CSRFToken      string `json:"csrf_token"`
	EventKey       string `json:"event_key"`
}

type PriorRegistration struct {
	TicketKey  string `json:"ticket_key"`
	Title      string `json:"title,omitempty"`
	DanceRole  string `json:"dance_role,omitempty"`
	WaitListed bool   `json:"wait_listed"`
	Active     bool   `json:"active"`
	Partner    string `json:"partner,omitempty"`
}

// PriorRegistrations is what the server knows about a returning registrant.
type PriorRegistrations struct {
	Person        *PersonInfo         `json:"person"`
	Partner       *PersonInfo         `json:"partner"`
	Registrations []PriorRegistration `json:"registrations"`
}
