package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/subsmanager/backend/internal/billing"
	"github.com/subsmanager/backend/internal/store"
)

// Processor is the payment processor surface the checkout flow needs.
type Processor interface {
	CreateCustomer(ctx context.Context, p billing.CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, customerRef string) (string, error)
}

// SessionRef is the hosted checkout page the client is redirected to.
type SessionRef struct {
	URL string `json:"url"`
}

type CheckoutService struct {
	store     EntitlementStore
	processor Processor
}

func NewCheckoutService(store EntitlementStore, processor Processor) *CheckoutService {
	return &CheckoutService{store: store, processor: processor}
}

// StartCheckout links the user to a Stripe customer on first use and opens a
// subscription checkout session for it.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID uuid.UUID) (SessionRef, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return SessionRef{}, ErrUserNotFound
	}
	if err != nil {
		return SessionRef{}, fmt.Errorf("load user: %w", err)
	}

	var customerRef string
	if user.HasCustomerRef() {
		customerRef = *user.StripeCustomerID
	} else {
		name := user.FullName
		if name == "" {
			name = user.Username
		}
		customerRef, err = s.processor.CreateCustomer(ctx, billing.CustomerParams{
			UserID: user.ID.String(),
			Email:  user.Email,
			Name:   name,
		})
		if err != nil {
			return SessionRef{}, fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
		}

		err = s.store.SetCustomerRef(ctx, user.ID, customerRef)
		switch {
		case errors.Is(err, store.ErrCustomerRefSet):
			// A concurrent checkout won; the stored reference is authoritative.
			fresh, ferr := s.store.FindUserByID(ctx, user.ID)
			if ferr != nil || !fresh.HasCustomerRef() {
				return SessionRef{}, fmt.Errorf("reload user after customer race: %w", errors.Join(err, ferr))
			}
			customerRef = *fresh.StripeCustomerID
		case err != nil:
			return SessionRef{}, fmt.Errorf("persist customer reference: %w", err)
		default:
			slog.Info("billing customer linked", "user_id", user.ID.String(), "customer_ref", customerRef)
		}
	}

	url, err := s.processor.CreateCheckoutSession(ctx, customerRef)
	if err != nil {
		return SessionRef{}, fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}
	return SessionRef{URL: url}, nil
}
