package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"event-storefront/diagnostics"
	"event-storefront/models"
	"event-storefront/services/payment"
	"event-storefront/services/pricing"
	"event-storefront/store"
	"event-storefront/throttle"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMissingEventKey = errors.New("event key is required")
)

// ServiceFactory builds the pricing client of a new session. Each session
// needs its own since the pricing service tracks checkout state per cookie.
type ServiceFactory func() (pricing.Service, error)

type Options struct {
	Profile     store.Profile
	Window      time.Duration
	IdleTimeout time.Duration
	Billing     payment.Billing
	Signer      *payment.HandleSigner
	Reporter    diagnostics.Reporter
	NewService  ServiceFactory
	Logger      *zap.Logger
}

// Manager owns every live session.
type Manager struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Reporter == nil {
		opts.Reporter = diagnostics.NewLogReporter(opts.Logger)
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session for a hosted page.
func (m *Manager) Create(ctx context.Context, page models.PageContext) (*Session, error) {
	if page.EventKey == "" {
		return nil, ErrMissingEventKey
	}

	svc, err := m.opts.NewService()
	if err != nil {
		return nil, fmt.Errorf("error creating pricing client: %w", err)
	}

	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id), zap.String("event_key", page.EventKey))

	sess := &Session{
		id:      id,
		gate:    throttle.NewGate(m.opts.Window, logger),
		pricing: svc,
		logger:  logger,
	}
	sess.store = store.New(m.opts.Profile, page, sess)
	sess.payments = payment.NewOrchestrator(id, sess.store, svc, m.opts.Signer, m.opts.Reporter, m.opts.Billing, logger)
	sess.touch(m.now())

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	logger.Info("session created", zap.String("profile", m.opts.Profile.Name))
	return sess, nil
}

// Get returns a live session and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(m.now())
	return sess, nil
}

func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than the idle timeout and returns how
// many were removed. A zero timeout disables sweeping.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("swept idle sessions", zap.Int("removed", removed), zap.Int("remaining", len(m.sessions)))
	}
	return removed
}
