// Package storefront binds one browser session's store, submission gate,
// pricing client and payment orchestrator together.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"event-storefront/models"
	"event-storefront/services/payment"
	"event-storefront/services/pricing"
	"event-storefront/store"
	"event-storefront/throttle"
)

var (
	// ErrReloadRequired means the page's CSRF token expired and the page must be reloaded.
	ErrReloadRequired = errors.New("page session expired, reload required")
	ErrEventNotLoaded = errors.New("event not loaded")
)

// Submission reports what a throttled price, checkout or prior-registration
// request did.
type Submission struct {
	Superseded bool `json:"superseded"`
	Stale      bool `json:"stale"`
}

type Session struct {
	id       string
	lastSeen atomic.Int64

	store    *store.Store
	gate     *throttle.Gate
	pricing  pricing.Service
	payments *payment.Orchestrator
	logger   *zap.Logger

	mu           sync.Mutex
	eventLoaded  bool
	reload       bool
	reloadReason string
}

func (s *Session) ID() string { return s.id }

func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *Session) Store() *store.Store { return s.store }

func (s *Session) Payments() *payment.Orchestrator { return s.payments }

// ReloadRequired reports whether the pricing service rejected the page's CSRF
// token. Once set it stays set for the life of the session.
func (s *Session) ReloadRequired() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload, s.reloadReason
}

// Reload implements store.Reloader.
func (s *Session) Reload(reason string) {
	s.mu.Lock()
	s.reload = true
	s.reloadReason = reason
	s.mu.Unlock()
	s.logger.Warn("page session expired", zap.String("reason", reason))
}

// InitEvent loads the event's items from the pricing service.
func (s *Session) InitEvent(ctx context.Context) error {
	profile := s.store.Profile()
	info, err := s.pricing.GetEvent(ctx, profile.Paths.EventPath(s.eventKey()))
	if err != nil {
		return fmt.Errorf("error loading event: %w", err)
	}
	s.store.SetEvent(*info)

	s.mu.Lock()
	s.eventLoaded = true
	s.mu.Unlock()

	s.logger.Info("event loaded",
		zap.String("event", info.Name),
		zap.Int("products", len(info.Products)),
		zap.Int("tickets", len(info.Tickets)))
	return nil
}

func (s *Session) EventLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventLoaded
}

// RequestPrice submits the current form to the price endpoint.
func (s *Session) RequestPrice(ctx context.Context) (Submission, error) {
	return s.submitPricing(ctx, s.store.Profile().Paths.PricePath(s.eventKey()))
}

// RequestCheckout submits the current form to the checkout endpoint. It shares
// the pricing sequence, so a slow price response cannot overwrite it.
func (s *Session) RequestCheckout(ctx context.Context) (Submission, error) {
	return s.submitPricing(ctx, s.store.Profile().Paths.CheckoutPath(s.eventKey()))
}

func (s *Session) submitPricing(ctx context.Context, path string) (Submission, error) {
	if !s.EventLoaded() {
		return Submission{}, ErrEventNotLoaded
	}

	payload := s.store.SubmissionPayload()
	seq := s.store.NextSequence()

	resp, ok, err := throttle.Submit(ctx, s.gate, path, payload,
		func(ctx context.Context) (*models.PricingResponse, error) {
			return s.pricing.Price(ctx, path, payload)
		})
	if err != nil {
		return Submission{}, fmt.Errorf("error submitting to %s: %w", path, err)
	}
	if !ok {
		return Submission{Superseded: true}, nil
	}

	switch s.store.ApplyIfCurrent(seq, resp) {
	case store.Reloaded:
		return Submission{}, ErrReloadRequired
	case store.Stale:
		s.logger.Debug("dropped stale pricing response", zap.String("path", path), zap.Uint64("seq", seq))
		return Submission{Stale: true}, nil
	default:
		return Submission{}, nil
	}
}

// RequestPriorRegistrations asks what the pricing service already knows about
// the registrant and partner.
func (s *Session) RequestPriorRegistrations(ctx context.Context) (Submission, error) {
	if !s.EventLoaded() {
		return Submission{}, ErrEventNotLoaded
	}

	path := s.store.Profile().Paths.PriorRegistrationsPath(s.eventKey())
	payload := s.store.SubmissionPayload()

	resp, ok, err := throttle.Submit(ctx, s.gate, path, payload,
		func(ctx context.Context) (*models.PriorRegistrations, error) {
			return s.pricing.PriorRegistrations(ctx, path, payload)
		})
	if err != nil {
		return Submission{}, fmt.Errorf("error submitting to %s: %w", path, err)
	}
	if !ok {
		return Submission{Superseded: true}, nil
	}
	s.store.ApplyPriorRegistrations(*resp)
	return Submission{}, nil
}

func (s *Session) LoadAdminEventInfo(ctx context.Context) (*models.AdminEventInfo, error) {
	info, err := s.pricing.AdminEventInfo(ctx, s.store.Profile().Paths.AdminEventInfoPath(s.eventKey()))
	if err != nil {
		return nil, fmt.Errorf("error loading admin event info: %w", err)
	}
	return info, nil
}

func (s *Session) LoadOrderInfo(ctx context.Context, token string) (*models.UserOrderInfo, error) {
	info, err := s.pricing.OrderInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error loading order info: %w", err)
	}
	return info, nil
}

func (s *Session) eventKey() string {
	return s.store.Page().EventKey
}
