package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/middleware"
	"github.com/subsmanager/backend/internal/services"
)

type SubscriptionHandler struct {
	service *services.SubscriptionService
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

func (h *SubscriptionHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	subs, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

func (h *SubscriptionHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req dto.CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	sub, err := h.service.Create(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *SubscriptionHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid subscription id")
	}
	var req dto.UpdateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	sub, err := h.service.Update(c.UserContext(), userID, subID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

func (h *SubscriptionHandler) Delete(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid subscription id")
	}

	sub, err := h.service.Delete(c.UserContext(), userID, subID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscription deleted", "subscription": sub})
}

func (h *SubscriptionHandler) Dashboard(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	dash, err := h.service.Dashboard(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dash)
}
