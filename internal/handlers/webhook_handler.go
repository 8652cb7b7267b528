package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/subsmanager/backend/internal/services"
)

type WebhookHandler struct {
	reconciler *services.Reconciler
}

func NewWebhookHandler(reconciler *services.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleStripe verifies the raw body against the Stripe-Signature header.
// Rejected payloads get 400 and are not retried; a store failure gets 500 so
// Stripe redelivers.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	// Fiber reuses the body buffer after the handler returns.
	payload := append([]byte(nil), c.Body()...)

	out, err := h.reconciler.Handle(c.UserContext(), payload, c.Get("Stripe-Signature"))
	if err != nil {
		return respondError(c, err)
	}

	slog.Info("stripe webhook processed",
		"event_id", out.EventID,
		"event_type", out.EventType.String(),
		"changed", out.Changed,
	)
	return c.JSON(fiber.Map{"received": true})
}
