package dto

import (
	"github.com/google/uuid"
	"github.com/subsmanager/backend/internal/models"
)

type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,max=255"`
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// Login returns whichever identifier the client supplied.
func (r LoginRequest) Login() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Tier     models.Tier `json:"tier"`
}

type DeleteAccountResponse struct {
	Message              string `json:"message"`
	DeletedSubscriptions int64  `json:"deleted_subscriptions"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
