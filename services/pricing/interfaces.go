package pricing

import (
	"context"

	"event-storefront/models"
)

// Service is the remote pricing service as seen by a storefront session.
type Service interface {
	GetEvent(ctx context.Context, path string) (*models.EventInfo, error)
	Price(ctx context.Context, path string, payload map[string]string) (*models.PricingResponse, error)
	PriorRegistrations(ctx context.Context, path string, payload map[string]string) (*models.PriorRegistrations, error)
	AdminEventInfo(ctx context.Context, path string) (*models.AdminEventInfo, error)
	OrderInfo(ctx context.Context, token string) (*models.UserOrderInfo, error)
	Finalizer
}

// Finalizer posts a widget token to the payment-finalization endpoint.
type Finalizer interface {
	Pay(ctx context.Context, req models.PayRequest) (*models.PaymentResult, error)
}

var _ Service = (*Client)(nil)
