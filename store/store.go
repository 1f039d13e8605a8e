// Package store holds the per-session cart and registration state.
//
// All reads go through derivations or Snapshot, all writes through the
// explicit mutation methods. Cart, errors and staged payment setup are always
// replaced wholesale from a pricing response, never merged.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"event-storefront/models"
)

var ErrInvalidChoice = errors.New("invalid choice")

// Reloader is the presentation-layer hook used when the page session expired.
type Reloader interface {
	Reload(reason string)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(reason string)

func (f ReloaderFunc) Reload(reason string) { f(reason) }

// Outcome reports what applying a pricing response did.
type Outcome int

const (
	Applied Outcome = iota
	Reloaded
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Reloaded:
		return "reloaded"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is a deep-copied view of a Store.
type State struct {
	EventName          string                     `json:"event_name"`
	EventKey           string                     `json:"event_key"`
	Layout             json.RawMessage            `json:"layout,omitempty"`
	Products           []models.SelectableItem    `json:"products"`
	Tickets            []models.SelectableItem    `json:"tickets"`
	Registration       models.RegistrationInfo    `json:"registration"`
	Cart               models.Cart                `json:"cart"`
	Errors             models.FieldErrors         `json:"errors"`
	NewPrices          map[string]float64         `json:"new_prices"`
	PaymentSetup       *models.PaymentSetup       `json:"stripe,omitempty"`
	PaymentResult      models.PaymentResult       `json:"payment_response"`
	PriorRegistrations *models.PriorRegistrations `json:"prior_registrations,omitempty"`
	PartnerRequired    bool                       `json:"partner_required"`
}

type Store struct {
	profile  Profile
	page     models.PageContext
	reloader Reloader

	mu           sync.RWMutex
	eventName    string
	layout       json.RawMessage
	products     []models.SelectableItem
	tickets      []models.SelectableItem
	registration models.RegistrationInfo
	cart         models.Cart
	errors       models.FieldErrors
	newPrices    map[string]float64
	paymentSetup *models.PaymentSetup
	payment      models.PaymentResult
	prior        *models.PriorRegistrations

	nextSeq     uint64
	lastApplied uint64
}

func New(profile Profile, page models.PageContext, reloader Reloader) *Store {
	if reloader == nil {
		reloader = ReloaderFunc(func(string) {})
	}
	return &Store{
		profile:      profile,
		page:         page,
		reloader:     reloader,
		products:     []models.SelectableItem{},
		tickets:      []models.SelectableItem{},
		registration: models.NewRegistrationInfo(),
		cart:         models.NewCart(),
		errors:       models.FieldErrors{},
		newPrices:    map[string]float64{},
	}
}

func (s *Store) Profile() Profile { return s.profile }

func (s *Store) Page() models.PageContext { return s.page }

// SetEvent installs the event's items and layout.
func (s *Store) SetEvent(info models.EventInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventName = info.Name
	s.layout = append(json.RawMessage(nil), info.Layout...)
	s.products = copyItems(info.Products)
	if s.profile.UseTickets {
		s.tickets = copyItems(info.Tickets)
	} else {
		s.tickets = []models.SelectableItem{}
	}
}

func (s *Store) EventName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventName
}

// SetSelection sets the choice of every item whose key matches exactly.
// Tickets and products are scanned independently. found is false when no
// item has that key, in which case nothing changes.
func (s *Store) SetSelection(key string, choice models.Choice) (found bool, err error) {
	if !choice.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tickets {
		if s.tickets[i].Key == key {
			s.tickets[i].Choice = choice
			found = true
		}
	}
	for i := range s.products {
		if s.products[i].Key == key {
			s.products[i].Choice = choice
			found = true
		}
	}
	return found, nil
}

// UpdateRegistration applies an incremental form edit.
func (s *Store) UpdateRegistration(patch models.RegistrationPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patch.Apply(&s.registration)
}

func (s *Store) Registration() models.RegistrationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registration
}

// SelectedItems returns every ticket and product with a non-empty choice.
func (s *Store) SelectedItems() []models.SelectedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedLocked()
}

func (s *Store) selectedLocked() []models.SelectedItem {
	selected := []models.SelectedItem{}
	for _, pool := range [][]models.SelectableItem{s.tickets, s.products} {
		for _, item := range pool {
			if item.Choice != models.ChoiceNone {
				selected = append(selected, models.SelectedItem{Key: item.Key, Choice: item.Choice})
			}
		}
	}
	return selected
}

// PartnerRequired is true iff any item is chosen as a couple.
func (s *Store) PartnerRequired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partnerRequiredLocked()
}

func (s *Store) partnerRequiredLocked() bool {
	for _, pool := range [][]models.SelectableItem{s.tickets, s.products} {
		for _, item := range pool {
			if item.Choice == models.ChoiceCouple {
				return true
			}
		}
	}
	return false
}

// NextSequence stamps an outgoing pricing or checkout request.
func (s *Store) NextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// ApplyPricingResponse replaces cart, errors, price adjustments and staged
// payment setup from resp. An expired CSRF token triggers the Reloader and
// leaves the state untouched.
func (s *Store) ApplyPricingResponse(resp *models.PricingResponse) Outcome {
	if resp.HasSessionExpired() {
		s.reloader.Reload(resp.Errors[models.CSRFErrorKey].String())
		return Reloaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(resp)
	return Applied
}

// ApplyIfCurrent is ApplyPricingResponse for a response to the request
// stamped seq. Responses older than the last applied one are dropped.
func (s *Store) ApplyIfCurrent(seq uint64, resp *models.PricingResponse) Outcome {
	if resp.HasSessionExpired() {
		s.reloader.Reload(resp.Errors[models.CSRFErrorKey].String())
		return Reloaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.lastApplied {
		return Stale
	}
	s.lastApplied = seq
	s.applyLocked(resp)
	return Applied
}

func (s *Store) applyLocked(resp *models.PricingResponse) {
	summary := resp.OrderSummary
	cart := models.Cart{
		CheckoutEnabled: !resp.DisableCheckout,
		CheckoutSuccess: resp.CheckoutSuccess,
		Items:           append([]models.OrderItem{}, summary.Items...),
		Total:           summary.TotalPrice,
		TransactionFee:  summary.TransactionFee,
	}
	if summary.PayNowTotal != nil {
		cart.PayNowTotal = *summary.PayNowTotal
	}
	s.cart = cart

	s.errors = resp.Errors.Clone()
	s.newPrices = make(map[string]float64, len(resp.NewPrices))
	for k, v := range resp.NewPrices {
		s.newPrices[k] = v
	}

	if cart.CheckoutEnabled && resp.Stripe != nil {
		setup := *resp.Stripe
		s.paymentSetup = &setup
	} else {
		s.paymentSetup = nil
	}
}

// PaymentSetup returns the staged widget parameters, if any.
func (s *Store) PaymentSetup() (models.PaymentSetup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.paymentSetup == nil {
		return models.PaymentSetup{}, false
	}
	return *s.paymentSetup, true
}

func (s *Store) SetPaymentResult(result models.PaymentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payment = result
}

func (s *Store) PaymentResult() models.PaymentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payment
}

// ApplyPriorRegistrations records a returning registrant's history and flags
// items they are already actively registered for.
func (s *Store) ApplyPriorRegistrations(prior models.PriorRegistrations) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registered := make(map[string]bool, len(prior.Registrations))
	for _, r := range prior.Registrations {
		if r.Active {
			registered[r.TicketKey] = true
		}
	}
	for _, pool := range [][]models.SelectableItem{s.tickets, s.products} {
		for i := range pool {
			pool[i].Registered = registered[pool[i].Key]
		}
	}

	p := prior
	p.Registrations = append([]models.PriorRegistration{}, prior.Registrations...)
	s.prior = &p
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		EventName:       s.eventName,
		EventKey:        s.page.EventKey,
		Layout:          append(json.RawMessage(nil), s.layout...),
		Products:        copyItems(s.products),
		Tickets:         copyItems(s.tickets),
		Registration:    s.registration,
		Cart:            s.cart,
		Errors:          s.errors.Clone(),
		NewPrices:       make(map[string]float64, len(s.newPrices)),
		PaymentResult:   s.payment,
		PartnerRequired: s.partnerRequiredLocked(),
	}
	st.Cart.Items = append([]models.OrderItem{}, s.cart.Items...)
	for k, v := range s.newPrices {
		st.NewPrices[k] = v
	}
	if s.paymentSetup != nil {
		setup := *s.paymentSetup
		st.PaymentSetup = &setup
	}
	if s.prior != nil {
		prior := *s.prior
		prior.Registrations = append([]models.PriorRegistration{}, s.prior.Registrations...)
		st.PriorRegistrations = &prior
	}
	return st
}

func copyItems(items []models.SelectableItem) []models.SelectableItem {
	out := make([]models.SelectableItem, len(items))
	copy(out, items)
	return out
}
