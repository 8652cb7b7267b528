package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
)

// StripeConfig carries the processor settings the checkout flow needs.
type StripeConfig struct {
	SecretKey  string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CustomerParams identifies the local user a Stripe customer is created for.
type CustomerParams struct {
	UserID string
	Email  string
	Name   string
}

// StripeClient creates customers and hosted checkout sessions.
type StripeClient struct {
	client *stripe.Client
	cfg    StripeConfig
}

func NewStripeClient(cfg StripeConfig) *StripeClient {
	return &StripeClient{
		client: stripe.NewClient(cfg.SecretKey, nil),
		cfg:    cfg,
	}
}

// CreateCustomer creates a Stripe customer. The idempotency key is derived
// from the user id so a retried first checkout returns the same customer.
func (c *StripeClient) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerCreateParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.Name),
		Metadata: map[string]string{
			"user_id": p.UserID,
		},
	}
	params.SetIdempotencyKey("customer-create-" + p.UserID)

	customer, err := c.client.V1Customers.Create(ctx, params)
	if err != nil {
		slog.Error("stripe customer creation failed", "user_id", p.UserID, "error", err)
		return "", fmt.Errorf("%w: create customer: %v", ErrProcessor, err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession opens a subscription checkout for the configured
// price and returns the hosted page URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, customerRef string) (string, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:           stripe.String(customerRef),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(c.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
	}

	session, err := c.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		slog.Error("stripe checkout session creation failed", "customer_ref", customerRef, "error", err)
		return "", fmt.Errorf("%w: create checkout session: %v", ErrProcessor, err)
	}
	return session.URL, nil
}
