package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/subsmanager/backend/internal/dto"
)

const userKey = "user"

var ErrNoPrincipal = errors.New("no authenticated user in context")

func JWTProtected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(secret)},
		ContextKey: userKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// UserID returns the verified principal set by JWTProtected.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(userKey).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, ErrNoPrincipal
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrNoPrincipal
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrNoPrincipal
	}
	return uuid.Parse(sub)
}
