package models

import "github.com/shopspring/decimal"

// FoodIngredient links a food item to one of its required ingredients.
// QtyRequired is expressed in the ingredient's unit.
type FoodIngredient struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	FoodItemID   uint            `gorm:"not null;index;uniqueIndex:idx_food_ingredient" json:"food_item_id"`
	IngredientID uint            `gorm:"not null;index;uniqueIndex:idx_food_ingredient" json:"ingredient_id"`
	Ingredient   Ingredient      `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"ingredient"`
	QtyRequired  decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"qty_required"`
}
