package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FoodItem struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Price       decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	Description string           `gorm:"type:text" json:"description"`
	Image       string           `gorm:"type:varchar(255)" json:"image"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updated_at"`
	Ingredients []FoodIngredient `gorm:"foreignKey:FoodItemID" json:"ingredients"`
}
