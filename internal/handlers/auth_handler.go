package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/middleware"
	"github.com/subsmanager/backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// DeleteAccount removes the caller's own account and its subscriptions.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	actorID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	removed, err := h.authService.DeleteAccount(c.UserContext(), actorID, targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DeleteAccountResponse{
		Message:              "Account deleted successfully",
		DeletedSubscriptions: removed,
	})
}
