package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the entitlement level of a user. Only the billing reconciler writes it.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// User is the principal: the account that owns subscription records and,
// once it has started a checkout, a Stripe customer.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string    `gorm:"not null;size:255" json:"full_name"`
	Username string    `gorm:"not null;size:100;uniqueIndex" json:"username"`
	Email    string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Tier     Tier      `gorm:"not null;size:20;default:'free'" json:"tier"`
	// StripeCustomerID is set once, on the first checkout, and never changes.
	StripeCustomerID *string   `gorm:"size:255;uniqueIndex" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasCustomerRef reports whether the user is already linked to a Stripe customer.
func (u *User) HasCustomerRef() bool {
	return u.StripeCustomerID != nil && *u.StripeCustomerID != ""
}
