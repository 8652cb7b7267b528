package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// EventType is the closed set of billing events the reconciler understands.
type EventType int

const (
	EventUnknown EventType = iota
	EventCheckoutCompleted
	EventPaymentSucceeded
	EventSubscriptionCancelled
)

func (t EventType) String() string {
	switch t {
	case EventCheckoutCompleted:
		return "checkout_completed"
	case EventPaymentSucceeded:
		return "payment_succeeded"
	case EventSubscriptionCancelled:
		return "subscription_cancelled"
	default:
		return "unknown"
	}
}

// Event is a verified billing notification. CustomerRef is empty for
// EventUnknown and for known events whose object carried no customer.
type Event struct {
	ID          string
	Type        EventType
	StripeType  string
	CustomerRef string
}

// dataObject is the part of every handled Stripe object we care about:
// checkout sessions, invoices and subscriptions all carry "customer".
type dataObject struct {
	ID       string          `json:"id"`
	Customer json.RawMessage `json:"customer"`
}

var stripeTypes = map[stripelib.EventType]EventType{
	"checkout.session.completed":    EventCheckoutCompleted,
	"invoice.payment_succeeded":     EventPaymentSucceeded,
	"invoice.paid":                  EventPaymentSucceeded,
	"customer.subscription.deleted": EventSubscriptionCancelled,
}

// ParseEvent verifies the Stripe-Signature header against the raw payload and
// only then decodes it. Signature problems yield ErrInvalidSignature; a
// verified payload that cannot be decoded yields ErrMalformedPayload.
func ParseEvent(payload []byte, signatureHeader, secret string) (Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	raw, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	evt := Event{
		ID:         raw.ID,
		StripeType: string(raw.Type),
		Type:       stripeTypes[raw.Type],
	}
	if evt.Type == EventUnknown {
		return evt, nil
	}

	if raw.Data == nil || len(raw.Data.Raw) == 0 {
		return Event{}, fmt.Errorf("%w: event %s has no data object", ErrMalformedPayload, raw.ID)
	}
	var obj dataObject
	if err := json.Unmarshal(raw.Data.Raw, &obj); err != nil {
		return Event{}, fmt.Errorf("%w: decode %s: %v", ErrMalformedPayload, raw.Type, err)
	}
	ref, err := customerRef(obj.Customer)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	evt.CustomerRef = ref
	return evt, nil
}

// customerRef accepts both the plain id form and an expanded customer object.
func customerRef(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id), nil
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err != nil {
		return "", fmt.Errorf("decode customer: %w", err)
	}
	return strings.TrimSpace(expanded.ID), nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrTooOld)
}
