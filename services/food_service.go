package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/utils"
)

// FoodService owns the menu catalog: food items and their ingredient
// requirements. Reads go through the cache; admin mutations invalidate
// both the aggregate listing and the per-item entries.
type FoodService struct {
	db    *gorm.DB
	cache cache.Store
}

func NewFoodService(db *gorm.DB, store cache.Store) *FoodService {
	return &FoodService{db: db, cache: store}
}

// cacheGet treats every cache failure as a miss. The cache is best-effort;
// a broken cache must never fail a read.
func cacheGet(ctx context.Context, store cache.Store, key string, dest interface{}) bool {
	hit, err := store.Get(ctx, key, dest)
	if err != nil {
		utils.ErrorLogger.Printf("cache get %s failed, falling through: %v", key, err)
		return false
	}
	return hit
}

func cacheSet(ctx context.Context, store cache.Store, key string, value interface{}, ttl time.Duration) {
	if err := store.Set(ctx, key, value, ttl); err != nil {
		utils.ErrorLogger.Printf("cache set %s failed: %v", key, err)
	}
}

// GetFoodItems returns the full menu with ingredient requirements, name
// ascending. Cached because the menu changes rarely and every customer
// page load hits it.
func (s *FoodService) GetFoodItems(ctx context.Context) ([]models.FoodItem, error) {
	start := time.Now()

	var items []models.FoodItem
	if cacheGet(ctx, s.cache, cache.FoodItemsKey(), &items) {
		return items, nil
	}

	err := s.db.WithContext(ctx).
		Preload("Ingredients.Ingredient").
		Order("name asc").
		Find(&items).Error
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch food items: %v", err)
		return nil, err
	}

	cacheSet(ctx, s.cache, cache.FoodItemsKey(), items, cache.FoodItemsTTL)

	utils.InfoLogger.Printf("getFoodItems count=%d durationMs=%d", len(items), time.Since(start).Milliseconds())
	return items, nil
}

// GetFoodItemByID returns one item with its ingredient requirements.
func (s *FoodService) GetFoodItemByID(ctx context.Context, id uint) (*models.FoodItem, error) {
	var item models.FoodItem
	if cacheGet(ctx, s.cache, cache.FoodItemKey(id), &item) {
		return &item, nil
	}

	err := s.db.WithContext(ctx).
		Preload("Ingredients.Ingredient").
		First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "food item", ID: id}
	}
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch food item %d: %v", id, err)
		return nil, err
	}

	cacheSet(ctx, s.cache, cache.FoodItemKey(id), item, cache.FoodItemsTTL)
	return &item, nil
}

// GetFoodItemsByIDs resolves a batch of ids, probing the per-item cache
// first and issuing at most one backing query for the misses. The result
// map carries no ordering guarantee.
func (s *FoodService) GetFoodItemsByIDs(ctx context.Context, ids []uint) (map[uint]models.FoodItem, error) {
	start := time.Now()
	result := make(map[uint]models.FoodItem, len(ids))

	var missing []uint
	for _, id := range ids {
		if _, ok := result[id]; ok {
			continue
		}
		var item models.FoodItem
		if cacheGet(ctx, s.cache, cache.FoodItemKey(id), &item) {
			result[id] = item
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		var items []models.FoodItem
		err := s.db.WithContext(ctx).
			Preload("Ingredients.Ingredient").
			Where("id IN ?", missing).
			Find(&items).Error
		if err != nil {
			utils.ErrorLogger.Printf("failed to fetch food items by ids: %v", err)
			return nil, err
		}
		for _, item := range items {
			result[item.ID] = item
			cacheSet(ctx, s.cache, cache.FoodItemKey(item.ID), item, cache.FoodItemsTTL)
		}
	}

	utils.InfoLogger.Printf("getFoodItemsByIds requested=%d fetched=%d durationMs=%d",
		len(ids), len(missing), time.Since(start).Milliseconds())
	return result, nil
}

// FoodIngredientInput is one ingredient requirement on a create/update.
type FoodIngredientInput struct {
	IngredientID uint            `json:"ingredient_id" binding:"required"`
	QtyRequired  decimal.Decimal `json:"qty_required" binding:"required"`
}

type FoodItemInput struct {
	Name        string                `json:"name" binding:"required"`
	Price       decimal.Decimal       `json:"price" binding:"required"`
	Description string                `json:"description"`
	Image       string                `json:"image"`
	Ingredients []FoodIngredientInput `json:"ingredients"`
}

// CreateFoodItem adds a menu item together with its ingredient links.
func (s *FoodService) CreateFoodItem(ctx context.Context, input FoodItemInput) (*models.FoodItem, error) {
	item := models.FoodItem{
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		Image:       input.Image,
	}
	for _, ing := range input.Ingredients {
		item.Ingredients = append(item.Ingredients, models.FoodIngredient{
			IngredientID: ing.IngredientID,
			QtyRequired:  ing.QtyRequired,
		})
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		utils.ErrorLogger.Printf("failed to create food item: %v", err)
		return nil, err
	}

	s.invalidate(ctx, item.ID)
	utils.InfoLogger.Printf("food item created id=%d name=%s", item.ID, item.Name)
	return &item, nil
}

// UpdateFoodItem replaces the item's fields and its ingredient links in
// one transaction.
func (s *FoodService) UpdateFoodItem(ctx context.Context, id uint, input FoodItemInput) (*models.FoodItem, error) {
	var item models.FoodItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "food item", ID: id}
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item.Name = input.Name
		item.Price = input.Price
		item.Description = input.Description
		item.Image = input.Image
		if err := tx.Save(&item).Error; err != nil {
			return err
		}

		if err := tx.Where("food_item_id = ?", id).Delete(&models.FoodIngredient{}).Error; err != nil {
			return err
		}
		for _, ing := range input.Ingredients {
			link := models.FoodIngredient{
				FoodItemID:   id,
				IngredientID: ing.IngredientID,
				QtyRequired:  ing.QtyRequired,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.ErrorLogger.Printf("failed to update food item %d: %v", id, err)
		return nil, err
	}

	s.invalidate(ctx, id)
	return s.GetFoodItemByID(ctx, id)
}

// DeleteFoodItem removes the item and its ingredient links. Items already
// referenced by orders are kept by the RESTRICT constraint; the storage
// error propagates as-is.
func (s *FoodService) DeleteFoodItem(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("food_item_id = ?", id).Delete(&models.FoodIngredient{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.FoodItem{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Resource: "food item", ID: id}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	utils.InfoLogger.Printf("food item deleted id=%d", id)
	return nil
}

func (s *FoodService) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Del(ctx, cache.FoodItemsKey(), cache.FoodItemKey(id)); err != nil {
		utils.ErrorLogger.Printf("cache invalidation failed for food item %d: %v", id, err)
	}
}
