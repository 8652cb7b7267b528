package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/middleware"
	"github.com/subsmanager/backend/internal/services"
)

type BillingHandler struct {
	checkout *services.CheckoutService
}

func NewBillingHandler(checkout *services.CheckoutService) *BillingHandler {
	return &BillingHandler{checkout: checkout}
}

// Checkout returns the hosted Stripe checkout page for the caller.
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	ref, err := h.checkout.StartCheckout(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CheckoutResponse{URL: ref.URL})
}
