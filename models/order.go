package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status         string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	IdempotencyKey *string         `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
}
