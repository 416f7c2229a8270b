package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient quantity and threshold are decimals so repeated deductions
// never accumulate float drift. Quantity is only ever mutated through the
// atomic increment/decrement in the inventory service.
type Ingredient struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Quantity   decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"quantity"`
	Threshold  decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"threshold"`
	Unit       string          `gorm:"type:varchar(20);not null" json:"unit"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}
