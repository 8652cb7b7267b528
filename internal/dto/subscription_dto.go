package dto

import (
	"github.com/shopspring/decimal"
)

type CreateSubscriptionRequest struct {
	Plan        string          `json:"plan" validate:"required,max=255"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,alpha"`
	RenewalDate string          `json:"renewalDate" validate:"required"`
}

// UpdateSubscriptionRequest is a partial update; nil fields are left alone.
type UpdateSubscriptionRequest struct {
	Plan        *string          `json:"plan" validate:"omitempty,min=1,max=255"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency" validate:"omitempty,len=3,alpha"`
	RenewalDate *string          `json:"renewalDate"`
}

type DashboardResponse struct {
	TotalMonthlyCost  decimal.Decimal `json:"totalMonthlyCost"`
	TotalSubscription int             `json:"totalSubscription"`
	PlanNames         []string        `json:"planNames"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}
