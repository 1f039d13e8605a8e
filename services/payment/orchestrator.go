// Package payment drives the hosted card widget: it opens a checkout attempt
// from the staged payment setup, accepts the widget's token exactly once and
// records the finalization result.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"event-storefront/diagnostics"
	"event-storefront/models"
	"event-storefront/services/pricing"
	"event-storefront/utils"
)

const (
	LabelSaveCard       = "Save card details"
	LabelSaveCardAndPay = "Save card and pay"
	LabelPay            = "Pay"

	// finalizeTimeout bounds the pay call, which outlives the request that
	// delivered the token.
	finalizeTimeout = 60 * time.Second
	reportTimeout   = 5 * time.Second
)

var (
	ErrNoPaymentSetup = errors.New("no payment setup staged")
	ErrAttemptClosed  = errors.New("checkout attempt already closed")
	ErrForeignHandle  = fmt.Errorf("%w: belongs to another session", ErrInvalidHandle)
)

// Billing is the fixed merchant context shown by the widget.
type Billing struct {
	MerchantName string
	Currency     currency.Unit
}

// WidgetOptions configure one opening of the hosted card widget.
type WidgetOptions struct {
	Key             string `json:"key"`
	Amount          int64  `json:"amount"`
	DisplayAmount   string `json:"display_amount"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Currency        string `json:"currency"`
	PanelLabel      string `json:"panelLabel"`
	ZipCode         bool   `json:"zipCode"`
	BillingAddress  bool   `json:"billingAddress"`
	AllowRememberMe bool   `json:"allowRememberMe"`
}

// PanelLabel picks the widget's submit label.
func PanelLabel(amount int64, payAll bool) string {
	switch {
	case amount == 0:
		return LabelSaveCard
	case !payAll:
		return LabelSaveCardAndPay
	default:
		return LabelPay
	}
}

// Orchestrator serves one storefront session.
type Orchestrator struct {
	sessionID string
	ledger    Ledger
	finalizer pricing.Finalizer
	signer    *HandleSigner
	reporter  diagnostics.Reporter
	billing   Billing
	logger    *zap.Logger

	mu       sync.Mutex
	attempts map[string]*Checkout
}

func NewOrchestrator(sessionID string, ledger Ledger, finalizer pricing.Finalizer, signer *HandleSigner,
	reporter diagnostics.Reporter, billing Billing, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = diagnostics.NewLogReporter(logger)
	}
	return &Orchestrator{
		sessionID: sessionID,
		ledger:    ledger,
		finalizer: finalizer,
		signer:    signer,
		reporter:  reporter,
		billing:   billing,
		logger:    logger.With(zap.String("session_id", sessionID)),
		attempts:  make(map[string]*Checkout),
	}
}

// InitiateCheckout opens a new attempt from the staged payment setup. Any
// attempt still pending is cancelled; only one widget is open at a time.
func (o *Orchestrator) InitiateCheckout(ctx context.Context) (*Checkout, error) {
	setup, ok := o.ledger.PaymentSetup()
	if !ok {
		return nil, ErrNoPaymentSetup
	}
	reg := o.ledger.Registration()
	page := o.ledger.Page()

	attemptID := uuid.NewString()
	handle, err := o.signer.Sign(o.sessionID, attemptID)
	if err != nil {
		return nil, err
	}

	code := o.billing.Currency.String()
	opts := WidgetOptions{
		Key:             page.PublishableKey,
		Amount:          setup.Amount,
		DisplayAmount:   utils.FormatMinorUnits(setup.Amount, o.billing.Currency),
		Email:           setup.Email,
		Name:            o.billing.MerchantName,
		Description:     o.ledger.EventName(),
		Currency:        strings.ToLower(code),
		PanelLabel:      PanelLabel(setup.Amount, reg.PayAll),
		ZipCode:         true,
		BillingAddress:  true,
		AllowRememberMe: false,
	}

	checkout := &Checkout{
		id:     attemptID,
		handle: handle,
		opts:   opts,
		orch:   o,
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	for id, prev := range o.attempts {
		if prev.cancel() || prev.Status() != models.CheckoutStatusPending {
			delete(o.attempts, id)
		}
	}
	o.attempts[attemptID] = checkout
	o.mu.Unlock()

	o.logger.Info("checkout initiated",
		zap.String("attempt_id", attemptID),
		zap.Int64("amount", setup.Amount),
		zap.String("panel_label", opts.PanelLabel))
	return checkout, nil
}

// Lookup resolves a signed handle to its attempt.
func (o *Orchestrator) Lookup(handle string) (*Checkout, error) {
	claims, err := o.signer.Verify(handle)
	if err != nil {
		return nil, err
	}
	if claims.SessionID != o.sessionID {
		return nil, ErrForeignHandle
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	checkout, ok := o.attempts[claims.AttemptID]
	if !ok {
		// Signed by us but pruned: it was superseded by a newer attempt.
		return nil, ErrAttemptClosed
	}
	return checkout, nil
}

// DeliverToken hands the widget's token to the attempt named by handle.
func (o *Orchestrator) DeliverToken(ctx context.Context, handle string, token models.PaymentToken) (models.PaymentResult, error) {
	checkout, err := o.Lookup(handle)
	if err != nil {
		return models.PaymentResult{}, err
	}
	return checkout.Deliver(ctx, token)
}

// CancelHandle abandons the attempt named by handle.
func (o *Orchestrator) CancelHandle(handle string) error {
	checkout, err := o.Lookup(handle)
	if err != nil {
		return err
	}
	return checkout.Cancel()
}

// finalize posts the token and records exactly one result. The card may be
// charged once the call reaches the server, so a client disconnect must not
// abort it.
func (o *Orchestrator) finalize(ctx context.Context, c *Checkout, token models.PaymentToken) models.PaymentResult {
	req := models.PayRequest{
		StripeToken: token,
		CSRFToken:   o.ledger.Page().CSRFToken,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	result, err := o.finalizer.Pay(ctx, req)
	if err != nil {
		failed := models.PaymentServerError()
		o.ledger.SetPaymentResult(failed)
		o.logger.Error("payment finalization failed",
			zap.String("attempt_id", c.id), zap.Error(err))
		o.report(ctx, c, err)
		return failed
	}

	o.ledger.SetPaymentResult(*result)
	o.logger.Info("payment finalized",
		zap.String("attempt_id", c.id),
		zap.Boolp("success", result.Success),
		zap.Boolp("complete", result.Complete))
	return *result
}

func (o *Orchestrator) report(ctx context.Context, c *Checkout, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	failure := diagnostics.NewFailure(o.sessionID, c.id, o.ledger.Page().EventKey, c.opts.Amount, cause)
	if err := o.reporter.Report(ctx, failure); err != nil {
		o.logger.Warn("failed to report payment failure",
			zap.String("attempt_id", c.id), zap.Error(err))
	}
}
