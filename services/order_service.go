package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/notify"
	"github.com/ashwinsom/curryleaf/utils"
)

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const defaultTxTimeout = 10 * time.Second

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CartItem is one checkout line. Price is the snapshot taken when the
// item went into the cart; see the pricing note on CreateOrder.
type CartItem struct {
	FoodItemID uint            `json:"food_item_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required"`
	Price      decimal.Decimal `json:"price"`
}

// OrderService runs the checkout pipeline: validate the cart, aggregate
// ingredient deductions, commit order + stock decrements + low-stock
// alerts in one transaction, then invalidate dependent caches.
type OrderService struct {
	db        *gorm.DB
	cache     cache.Store
	food      *FoodService
	inventory *InventoryService
	suggest   Provider
	hub       *notify.Hub
	txTimeout time.Duration
	txOptions []*sql.TxOptions
}

func NewOrderService(db *gorm.DB, store cache.Store, food *FoodService, inventory *InventoryService, suggest Provider, hub *notify.Hub) *OrderService {
	s := &OrderService{
		db:        db,
		cache:     store,
		food:      food,
		inventory: inventory,
		suggest:   suggest,
		hub:       hub,
		txTimeout: defaultTxTimeout,
	}
	// sqlite (tests) only supports the default isolation level.
	if db.Dialector.Name() == "mysql" {
		s.txOptions = []*sql.TxOptions{{Isolation: sql.LevelReadCommitted}}
	}
	return s
}

// SetTxTimeout overrides the commit timeout; wired from ORDER_TX_TIMEOUT.
func (s *OrderService) SetTxTimeout(d time.Duration) {
	if d > 0 {
		s.txTimeout = d
	}
}

// CreateOrder places an order for the given cart lines. When the caller
// supplies an idempotency key, a retried request resolves to the original
// order id instead of creating a duplicate.
//
// The line total is computed from the cart's snapshotted price, matching
// the storefront which prices the cart at browse time. Re-pricing from
// the catalog at commit time would harden against a tampered client; the
// storefront and backend are deployed together so the snapshot is
// trusted here.
func (s *OrderService) CreateOrder(ctx context.Context, items []CartItem, idempotencyKey string) (uint, error) {
	start := time.Now()

	if len(items) == 0 {
		return 0, ErrEmptyCart
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return 0, &ValidationError{Reason: "quantity must be positive"}
		}
		if item.Price.IsNegative() {
			return 0, &ValidationError{Reason: "price must not be negative"}
		}
	}

	if idempotencyKey != "" {
		if id, ok, err := s.findByIdempotencyKey(ctx, idempotencyKey); err != nil {
			return 0, err
		} else if ok {
			utils.InfoLogger.Printf("duplicate order resolved by idempotency key order=%d", id)
			return id, nil
		}
	}

	total := decimal.Zero
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		ids = append(ids, item.FoodItemID)
	}

	foodItems, err := s.food.GetFoodItemsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	// Aggregate the per-ingredient deduction across all cart lines. Pure
	// in-memory fold; multiple lines referencing the same food item (or
	// different items sharing an ingredient) sum into one deduction.
	deductions := make(map[uint]decimal.Decimal)
	for _, item := range items {
		food, ok := foodItems[item.FoodItemID]
		if !ok {
			return 0, &NotFoundError{Resource: "food item", ID: item.FoodItemID}
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		for _, req := range food.Ingredients {
			deductions[req.IngredientID] = deductions[req.IngredientID].Add(req.QtyRequired.Mul(qty))
		}
	}

	// Stable processing order keeps logs and row locking deterministic.
	ingredientIDs := make([]uint, 0, len(deductions))
	for id := range deductions {
		ingredientIDs = append(ingredientIDs, id)
	}
	sort.Slice(ingredientIDs, func(i, j int) bool { return ingredientIDs[i] < ingredientIDs[j] })

	// Advisory pre-check before opening the transaction. Two concurrent
	// orders can both pass this against the same nearly-empty ingredient
	// and drive stock negative; the commit step then flags the result
	// CRITICAL rather than failing the order.
	for _, id := range ingredientIDs {
		var ing models.Ingredient
		if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, &NotFoundError{Resource: "ingredient", ID: id}
			}
			return 0, err
		}
		if ing.Quantity.LessThan(deductions[id]) {
			return 0, &InsufficientStockError{
				Ingredient: ing.Name,
				Required:   deductions[id],
				Available:  ing.Quantity,
			}
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	order := models.Order{
		Total:  total,
		Status: OrderStatusCompleted,
	}
	if idempotencyKey != "" {
		key := idempotencyKey
		order.IdempotencyKey = &key
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			FoodItemID: item.FoodItemID,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}

	txStart := time.Now()
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var alerts []models.AIAlert
		for _, id := range ingredientIDs {
			ing, err := s.inventory.DecrementStock(txCtx, tx, id, deductions[id])
			if err != nil {
				return err
			}
			if ing.Quantity.LessThan(ing.Threshold) {
				alerts = append(alerts, BuildLowStockAlert(ing))
			}
		}

		if len(alerts) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&alerts).Error; err != nil {
				return err
			}
		}
		return nil
	}, s.txOptions...)

	if err != nil {
		// A concurrent retry with the same key can beat us to the insert;
		// resolve to the order it created.
		if idempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			if id, ok, lookupErr := s.findByIdempotencyKey(ctx, idempotencyKey); lookupErr == nil && ok {
				return id, nil
			}
		}
		utils.ErrorLogger.Printf("order transaction failed durationMs=%d items=%d: %v",
			time.Since(txStart).Milliseconds(), len(items), err)
		return 0, err
	}

	s.invalidateAfterCommit(ctx)

	if s.hub != nil {
		s.hub.OrderCreated(order)
	}

	// Post-order screening runs detached from the request; its failure is
	// never surfaced to the customer.
	if s.suggest != nil {
		orderID := order.ID
		go func() {
			screenCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.suggest.PostOrderScreen(screenCtx, orderID)
		}()
	}

	utils.InfoLogger.Printf("order created id=%d items=%d total=%s durationMs=%d",
		order.ID, len(items), total.String(), time.Since(start).Milliseconds())
	return order.ID, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (uint, bool, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Select("id").
		Where("idempotency_key = ?", key).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return order.ID, true, nil
}

// invalidateAfterCommit drops every cache entry the committed order made
// stale: all order pages (total count shifts every page) and the
// inventory views (stock moved, alerts may have been added).
func (s *OrderService) invalidateAfterCommit(ctx context.Context) {
	if err := s.cache.DelPattern(ctx, cache.OrdersPattern()); err != nil {
		utils.ErrorLogger.Printf("orders cache invalidation failed: %v", err)
	}
	err := s.cache.Del(ctx,
		cache.DashboardKey(),
		cache.IngredientsKey(),
		cache.AlertsKey(false),
	)
	if err != nil {
		utils.ErrorLogger.Printf("inventory cache invalidation failed: %v", err)
	}
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// GetOrders returns one page of orders, newest first, each with its items
// and the denormalized food-item snapshot. Pages are cached per
// (page, pageSize) and invalidated in bulk on every commit.
func (s *OrderService) GetOrders(ctx context.Context, page, pageSize int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var result OrderPage
	if cacheGet(ctx, s.cache, cache.OrdersKey(page, pageSize), &result) {
		return &result, nil
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.FoodItem").
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		utils.ErrorLogger.Printf("failed to fetch orders page=%d pageSize=%d: %v", page, pageSize, err)
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	result = OrderPage{
		Orders: orders,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}

	cacheSet(ctx, s.cache, cache.OrdersKey(page, pageSize), result, cache.OrdersTTL)
	return &result, nil
}

func (s *OrderService) GetOrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.FoodItem").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
