package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// Subscription is a paid service the user tracks. RenewalDate is a calendar
// date stored as midnight UTC.
type Subscription struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Plan        string          `gorm:"not null;size:255" json:"plan"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency    string          `gorm:"not null;size:3;default:'USD'" json:"currency"`
	RenewalDate time.Time       `gorm:"not null;index" json:"renewal_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	User        User            `gorm:"foreignKey:UserID" json:"-"`
}

// CalendarDate truncates t to midnight UTC of the same calendar day in t's location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
