package models

import "time"

// Alert types
const (
	AlertLowStock           = "LOW_STOCK"
	AlertNearExpiry         = "NEAR_EXPIRY"
	AlertRapidDepletion     = "RAPID_DEPLETION"
	AlertConsumptionAnomaly = "CONSUMPTION_ANOMALY"
	AlertPredictiveShortage = "PREDICTIVE_SHORTAGE"
)

// Alert severities
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

type AIAlert struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Type         string      `gorm:"type:varchar(30);not null" json:"type"`
	Severity     string      `gorm:"type:varchar(10);not null" json:"severity"`
	Title        string      `gorm:"type:varchar(255);not null" json:"title"`
	Message      string      `gorm:"type:text;not null" json:"message"`
	IngredientID *uint       `gorm:"index" json:"ingredient_id,omitempty"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"ingredient,omitempty"`
	IsRead       bool        `gorm:"not null;default:false;index" json:"is_read"`
	Metadata     string      `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time   `gorm:"not null;index" json:"created_at"`
}
