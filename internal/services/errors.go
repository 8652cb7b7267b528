package services

import (
	"errors"

	"github.com/subsmanager/backend/internal/billing"
)

var (
	// Webhook path. Aliased so handlers need only the services package.
	ErrInvalidSignature = billing.ErrInvalidSignature
	ErrMalformedPayload = billing.ErrMalformedPayload

	ErrValidation           = errors.New("validation failed")
	ErrUserNotFound         = errors.New("user not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNotOwner             = errors.New("you do not own this resource")
	ErrBillingUnavailable   = errors.New("billing service unavailable")

	ErrUserTaken          = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
