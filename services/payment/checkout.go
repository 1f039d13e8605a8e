package payment

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"event-storefront/models"
)

// Checkout is one attempt of the hosted card widget. It settles exactly once:
// either a token is delivered and a result recorded, or it is cancelled.
type Checkout struct {
	id     string
	handle string
	opts   WidgetOptions
	orch   *Orchestrator

	mu       sync.Mutex
	status   models.CheckoutStatus
	claimed  bool
	result   models.PaymentResult
	done     chan struct{}
	doneOnce sync.Once
}

func (c *Checkout) ID() string { return c.id }

// Handle is the signed token the widget callback must present.
func (c *Checkout) Handle() string { return c.handle }

func (c *Checkout) Options() WidgetOptions { return c.opts }

func (c *Checkout) Status() models.CheckoutStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Result is the recorded payment result once the attempt settled by delivery.
func (c *Checkout) Result() (models.PaymentResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.status == models.CheckoutStatusSettled
}

// Done is closed once the attempt settles.
func (c *Checkout) Done() <-chan struct{} { return c.done }

// Deliver finalizes the payment with the widget's token. Only the first
// delivery is forwarded; later ones and deliveries after Cancel fail with
// ErrAttemptClosed. A finalization failure is not returned as an error: it is
// recorded as the generic server-error result.
func (c *Checkout) Deliver(ctx context.Context, token models.PaymentToken) (models.PaymentResult, error) {
	c.mu.Lock()
	if c.claimed || c.status != models.CheckoutStatusPending {
		c.mu.Unlock()
		return models.PaymentResult{}, ErrAttemptClosed
	}
	c.claimed = true
	c.mu.Unlock()

	result := c.orch.finalize(ctx, c, token)

	c.mu.Lock()
	c.status = models.CheckoutStatusSettled
	c.result = result
	c.mu.Unlock()
	c.settle()
	return result, nil
}

// Cancel abandons the attempt. No result is recorded.
func (c *Checkout) Cancel() error {
	if !c.cancel() {
		return ErrAttemptClosed
	}
	c.orch.logger.Info("checkout cancelled", zap.String("attempt_id", c.id))
	return nil
}

func (c *Checkout) cancel() bool {
	c.mu.Lock()
	if c.claimed || c.status != models.CheckoutStatusPending {
		c.mu.Unlock()
		return false
	}
	c.status = models.CheckoutStatusCancelled
	c.mu.Unlock()
	c.settle()
	return true
}

func (c *Checkout) settle() {
	c.doneOnce.Do(func() { close(c.done) })
}
