package services

import (
	"context"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

// PaymentProvider is everything the service needs from the payment provider.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// StripeService talks to Stripe through an explicitly constructed client;
// the package-level stripe.Key is never touched.
type StripeService struct {
	api        *client.API
	webhookKey string
}

// NewStripeService builds a Stripe client. backends may be nil to use the
// default Stripe endpoints.
func NewStripeService(secretKey, webhookKey string, backends *stripe.Backends) *StripeService {
	return &StripeService{
		api:        client.New(secretKey, backends),
		webhookKey: webhookKey,
	}
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return s.api.CheckoutSessions.New(params)
}

func (s *StripeService) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return s.api.CheckoutSessions.Get(id, params)
}

// ConstructEvent authenticates payload against the Stripe-Signature header.
// The API version pinned on the webhook endpoint may differ from the library's.
func (s *StripeService) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
