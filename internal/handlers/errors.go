package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/subsmanager/backend/internal/dto"
	"github.com/subsmanager/backend/internal/services"
)

// respondError maps the service error taxonomy to a status code. Details of
// 5xx errors are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err,
		)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidSignature):
		return fiber.StatusBadRequest, "Invalid signature"
	case errors.Is(err, services.ErrMalformedPayload):
		return fiber.StatusBadRequest, "Malformed payload"
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrNotOwner):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrSubscriptionNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrUserTaken):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrBillingUnavailable):
		return fiber.StatusBadGateway, "Billing service unavailable, please retry"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}
