package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/subsmanager/backend/internal/billing"
	"github.com/subsmanager/backend/internal/models"
	"github.com/subsmanager/backend/internal/store"
)

// EntitlementStore is the slice of the store the reconciler and checkout flow use.
type EntitlementStore interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByCustomerRef(ctx context.Context, ref string) (*models.User, error)
	SetTier(ctx context.Context, userID uuid.UUID, tier models.Tier) error
	SetCustomerRef(ctx context.Context, userID uuid.UUID, ref string) error
}

// Outcome describes what an accepted event did.
type Outcome struct {
	EventID   string
	EventType billing.EventType
	UserID    uuid.UUID
	Changed   bool
	NewTier   models.Tier
}

// Reconciler applies verified Stripe events to the user's tier. Every
// transition is a set-to-value, so redelivered events are harmless.
type Reconciler struct {
	store  EntitlementStore
	secret string
	logger *slog.Logger
}

func NewReconciler(store EntitlementStore, webhookSecret string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, secret: webhookSecret, logger: logger}
}

// Handle verifies and applies one webhook delivery. It returns
// ErrInvalidSignature or ErrMalformedPayload for rejected payloads; any other
// error means the store failed and the delivery should be retried.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	evt, err := billing.ParseEvent(payload, signatureHeader, r.secret)
	if err != nil {
		r.logger.Warn("webhook rejected", "error", err)
		return Outcome{}, err
	}

	out := Outcome{EventID: evt.ID, EventType: evt.Type}
	log := r.logger.With("event_id", evt.ID, "event_type", evt.StripeType, "customer_ref", evt.CustomerRef)

	var target models.Tier
	switch evt.Type {
	case billing.EventCheckoutCompleted, billing.EventPaymentSucceeded:
		target = models.TierPremium
	case billing.EventSubscriptionCancelled:
		target = models.TierFree
	default:
		log.Info("unhandled billing event type")
		return out, nil
	}

	if evt.CustomerRef == "" {
		log.Warn("billing event without customer reference")
		return out, nil
	}

	user, err := r.store.FindUserByCustomerRef(ctx, evt.CustomerRef)
	if errors.Is(err, store.ErrNotFound) {
		// The event can outrun the checkout that persists the reference.
		log.Info("no user for customer reference")
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("lookup customer %s: %w", evt.CustomerRef, err)
	}

	out.UserID = user.ID
	out.NewTier = user.Tier
	if user.Tier == target && target == models.TierPremium {
		log.Info("tier already premium", "user_id", user.ID.String())
		return out, nil
	}

	err = r.store.SetTier(ctx, user.ID, target)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("user removed before tier update", "user_id", user.ID.String())
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("set tier for user %s: %w", user.ID, err)
	}
	out.Changed = user.Tier != target
	out.NewTier = target
	log.Info("tier reconciled", "user_id", user.ID.String(), "from", string(user.Tier), "to", string(target))
	return out, nil
}
