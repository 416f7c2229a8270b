package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/notify"
	"github.com/ashwinsom/curryleaf/utils"
)

const alertListLimit = 50

// nearExpiryAlertDays is the window used by the analysis action; the
// dashboard uses the wider nearExpiryDashboardDays.
const (
	nearExpiryAlertDays     = 3
	nearExpiryDashboardDays = 7
)

// InventoryService owns ingredient stock, the low-stock/near-expiry
// queries and the alert records. Stock is only ever changed through the
// atomic increment/decrement below, never read-modify-write.
type InventoryService struct {
	db    *gorm.DB
	cache cache.Store
	hub   *notify.Hub
}

func NewInventoryService(db *gorm.DB, store cache.Store, hub *notify.Hub) *InventoryService {
	return &InventoryService{db: db, cache: store, hub: hub}
}

func (s *InventoryService) GetIngredients(ctx context.Context) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if cacheGet(ctx, s.cache, cache.IngredientsKey(), &ingredients) {
		return ingredients, nil
	}

	err := s.db.WithContext(ctx).Order("name asc").Find(&ingredients).Error
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch ingredients: %v", err)
		return nil, err
	}

	cacheSet(ctx, s.cache, cache.IngredientsKey(), ingredients, cache.IngredientsTTL)
	return ingredients, nil
}

func (s *InventoryService) GetIngredientByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := s.db.WithContext(ctx).First(&ing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "ingredient", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &ing, nil
}

// GetAlerts returns alerts for one read-state partition, newest first,
// capped at 50. Alerts are write-heavy so the TTL is short.
func (s *InventoryService) GetAlerts(ctx context.Context, isRead bool) ([]models.AIAlert, error) {
	var alerts []models.AIAlert
	if cacheGet(ctx, s.cache, cache.AlertsKey(isRead), &alerts) {
		return alerts, nil
	}

	err := s.db.WithContext(ctx).
		Preload("Ingredient").
		Where("is_read = ?", isRead).
		Order("created_at desc").
		Limit(alertListLimit).
		Find(&alerts).Error
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch alerts: %v", err)
		return nil, err
	}

	cacheSet(ctx, s.cache, cache.AlertsKey(isRead), alerts, cache.AlertsTTL)
	return alerts, nil
}

// MarkAlertRead dismisses an alert. Idempotent: re-marking a read alert
// succeeds. Both cache partitions are invalidated since the dismissed
// alert moves between them.
func (s *InventoryService) MarkAlertRead(ctx context.Context, id uint) error {
	var alert models.AIAlert
	err := s.db.WithContext(ctx).First(&alert, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: "alert", ID: id}
	}
	if err != nil {
		return err
	}

	if !alert.IsRead {
		if err := s.db.WithContext(ctx).Model(&alert).Update("is_read", true).Error; err != nil {
			utils.ErrorLogger.Printf("failed to mark alert %d read: %v", id, err)
			return err
		}
	}

	s.invalidateAlerts(ctx)
	return nil
}

// DecrementStock applies quantity = quantity - amount as a single atomic
// UPDATE at the storage layer and returns the post-update row. Callers
// inside a transaction pass their tx; the threshold check happens on the
// returned row without a second round trip by the caller.
func (s *InventoryService) DecrementStock(ctx context.Context, tx *gorm.DB, id uint, amount decimal.Decimal) (*models.Ingredient, error) {
	return s.adjustStock(ctx, tx, id, amount.Neg())
}

// IncrementStock is the admin-correction counterpart of DecrementStock.
func (s *InventoryService) IncrementStock(ctx context.Context, tx *gorm.DB, id uint, amount decimal.Decimal) (*models.Ingredient, error) {
	return s.adjustStock(ctx, tx, id, amount)
}

func (s *InventoryService) adjustStock(ctx context.Context, tx *gorm.DB, id uint, delta decimal.Decimal) (*models.Ingredient, error) {
	db := tx
	if db == nil {
		db = s.db
	}

	res := db.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "ingredient", ID: id}
	}

	var ing models.Ingredient
	if err := db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// LowStockSeverity is the shared rule used by the order pipeline and the
// analysis action: CRITICAL once stock is exhausted, HIGH otherwise.
func LowStockSeverity(quantity decimal.Decimal) string {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}

// BuildLowStockAlert formats the standard low-stock alert for an
// ingredient whose post-update quantity fell below its threshold.
func BuildLowStockAlert(ing *models.Ingredient) models.AIAlert {
	id := ing.ID
	msg := fmt.Sprintf("%s is below threshold (%s%s remaining, threshold: %s%s)",
		ing.Name, ing.Quantity.String(), ing.Unit, ing.Threshold.String(), ing.Unit)
	return models.AIAlert{
		Type:         models.AlertLowStock,
		Severity:     LowStockSeverity(ing.Quantity),
		Title:        fmt.Sprintf("Low Stock: %s", ing.Name),
		Message:      msg,
		IngredientID: &id,
	}
}

// GetNearExpiry lists ingredients expiring within windowDays, soonest
// first.
func (s *InventoryService) GetNearExpiry(ctx context.Context, windowDays int) ([]models.Ingredient, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, windowDays)

	var ingredients []models.Ingredient
	err := s.db.WithContext(ctx).
		Where("expiry_date >= ? AND expiry_date <= ?", now, cutoff).
		Order("expiry_date asc").
		Find(&ingredients).Error
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch near-expiry ingredients: %v", err)
		return nil, err
	}
	return ingredients, nil
}

type DashboardStats struct {
	Total         int             `json:"total"`
	LowStock      int             `json:"low_stock"`
	NearExpiry    int             `json:"near_expiry"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

type Dashboard struct {
	Ingredients []models.Ingredient `json:"ingredients"`
	Stats       DashboardStats      `json:"stats"`
}

// GetDashboard aggregates the admin inventory overview from a single
// ingredient scan; cached because stock only moves on order commits.
func (s *InventoryService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	var dash Dashboard
	if cacheGet(ctx, s.cache, cache.DashboardKey(), &dash) {
		return &dash, nil
	}

	var ingredients []models.Ingredient
	err := s.db.WithContext(ctx).Order("name asc").Find(&ingredients).Error
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch inventory dashboard: %v", err)
		return nil, err
	}

	stats := DashboardStats{Total: len(ingredients), TotalQuantity: decimal.Zero}
	now := time.Now()
	expiryCutoff := now.AddDate(0, 0, nearExpiryDashboardDays)
	for _, ing := range ingredients {
		stats.TotalQuantity = stats.TotalQuantity.Add(ing.Quantity)
		if ing.Quantity.LessThan(ing.Threshold) {
			stats.LowStock++
		}
		if ing.ExpiryDate != nil && !ing.ExpiryDate.Before(now) && !ing.ExpiryDate.After(expiryCutoff) {
			stats.NearExpiry++
		}
	}

	dash = Dashboard{Ingredients: ingredients, Stats: stats}
	cacheSet(ctx, s.cache, cache.DashboardKey(), dash, cache.DashboardTTL)
	return &dash, nil
}

type IngredientInput struct {
	Name       string          `json:"name" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Threshold  decimal.Decimal `json:"threshold"`
	Unit       string          `json:"unit" binding:"required"`
	ExpiryDate *time.Time      `json:"expiry_date"`
}

// CreateIngredient adds a stock row (admin/seed surface).
func (s *InventoryService) CreateIngredient(ctx context.Context, input IngredientInput) (*models.Ingredient, error) {
	ing := models.Ingredient{
		Name:       input.Name,
		Quantity:   input.Quantity,
		Threshold:  input.Threshold,
		Unit:       input.Unit,
		ExpiryDate: input.ExpiryDate,
	}
	if err := s.db.WithContext(ctx).Create(&ing).Error; err != nil {
		utils.ErrorLogger.Printf("failed to create ingredient: %v", err)
		return nil, err
	}
	s.invalidateIngredients(ctx, ing.ID)
	if s.hub != nil {
		s.hub.InventoryUpdated(ing)
	}
	return &ing, nil
}

// UpdateIngredient is the admin stock correction. The quantity write is a
// single UPDATE; it does not race against order decrements beyond
// last-write-wins, which is the accepted admin-override semantics.
func (s *InventoryService) UpdateIngredient(ctx context.Context, id uint, input IngredientInput) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := s.db.WithContext(ctx).First(&ing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "ingredient", ID: id}
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        input.Name,
		"quantity":    input.Quantity,
		"threshold":   input.Threshold,
		"unit":        input.Unit,
		"expiry_date": input.ExpiryDate,
	}
	if err := s.db.WithContext(ctx).Model(&ing).Updates(updates).Error; err != nil {
		utils.ErrorLogger.Printf("failed to update ingredient %d: %v", id, err)
		return nil, err
	}

	s.invalidateIngredients(ctx, id)
	if s.hub != nil {
		s.hub.InventoryUpdated(ing)
	}
	return &ing, nil
}

// AnalyzeInventory is the admin-triggered batch analysis: it re-applies
// the low-stock rule across all stock plus a near-expiry sweep, inserts
// the resulting alerts in one batch (skipping ones already open), and
// notifies connected dashboards. Returns the number of alerts created.
func (s *InventoryService) AnalyzeInventory(ctx context.Context) (int, error) {
	start := time.Now()

	var ingredients []models.Ingredient
	if err := s.db.WithContext(ctx).Find(&ingredients).Error; err != nil {
		return 0, err
	}

	// Open (unread) alerts suppress exact duplicates from the batch.
	var open []models.AIAlert
	if err := s.db.WithContext(ctx).
		Select("type", "ingredient_id").
		Where("is_read = ?", false).
		Find(&open).Error; err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(open))
	for _, a := range open {
		seen[alertDedupeKey(a.Type, a.IngredientID)] = struct{}{}
	}

	now := time.Now()
	var alerts []models.AIAlert
	for i := range ingredients {
		ing := ingredients[i]
		if ing.Quantity.LessThan(ing.Threshold) {
			alert := BuildLowStockAlert(&ing)
			if _, dup := seen[alertDedupeKey(alert.Type, alert.IngredientID)]; !dup {
				alerts = append(alerts, alert)
			}
		}
		if ing.ExpiryDate != nil {
			days := int(ing.ExpiryDate.Sub(now).Hours() / 24)
			if days >= 0 && days <= nearExpiryAlertDays {
				severity := models.SeverityMedium
				if days <= 1 {
					severity = models.SeverityHigh
				}
				id := ing.ID
				alert := models.AIAlert{
					Type:         models.AlertNearExpiry,
					Severity:     severity,
					Title:        fmt.Sprintf("Near Expiry: %s", ing.Name),
					Message:      fmt.Sprintf("%s expires in %d days", ing.Name, days),
					IngredientID: &id,
				}
				if _, dup := seen[alertDedupeKey(alert.Type, alert.IngredientID)]; !dup {
					alerts = append(alerts, alert)
				}
			}
		}
	}

	if len(alerts) > 0 {
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&alerts).Error
		if err != nil {
			utils.ErrorLogger.Printf("failed to insert analysis alerts: %v", err)
			return 0, err
		}
		s.invalidateAlerts(ctx)
		if s.hub != nil {
			s.hub.AlertsUpdated(alerts)
		}
	}

	utils.InfoLogger.Printf("inventory analysis created=%d durationMs=%d",
		len(alerts), time.Since(start).Milliseconds())
	return len(alerts), nil
}

func alertDedupeKey(alertType string, ingredientID *uint) string {
	if ingredientID == nil {
		return alertType
	}
	return fmt.Sprintf("%s:%d", alertType, *ingredientID)
}

func (s *InventoryService) invalidateAlerts(ctx context.Context) {
	if err := s.cache.Del(ctx, cache.AlertsKey(false), cache.AlertsKey(true)); err != nil {
		utils.ErrorLogger.Printf("alert cache invalidation failed: %v", err)
	}
}

func (s *InventoryService) invalidateIngredients(ctx context.Context, id uint) {
	if err := s.cache.Del(ctx, cache.IngredientsKey(), cache.DashboardKey()); err != nil {
		utils.ErrorLogger.Printf("ingredient cache invalidation failed for %d: %v", id, err)
	}
}
