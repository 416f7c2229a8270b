package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/models"
)

func newOrderFixture(t *testing.T) (*gorm.DB, *OrderService) {
	t.Helper()
	db := newTestDB(t)
	store := cache.NewMemory()
	food := NewFoodService(db, store)
	inventory := NewInventoryService(db, store, nil)
	orders := NewOrderService(db, store, food, inventory, nil, nil)
	return db, orders
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func TestCreateOrderHappyPath(t *testing.T) {
	db, orders := newOrderFixture(t)

	rice := seedIngredient(t, db, "Basmati Rice", "20", "5", "kg")
	chicken := seedIngredient(t, db, "Chicken", "15", "3", "kg")
	biryani := seedFood(t, db, "Chicken Biryani", "399.99",
		requirement{rice, "0.25"}, requirement{chicken, "0.3"})

	orderID, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: biryani.ID, Quantity: 2, Price: dec("399.99")},
	}, "")
	require.NoError(t, err)
	require.NotZero(t, orderID)

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, orderID).Error)
	assert.True(t, order.Total.Equal(dec("799.98")), "total = %s", order.Total)
	assert.Equal(t, OrderStatusCompleted, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, order.Items[0].Price.Equal(dec("399.99")))

	// Conservation: newQuantity = oldQuantity - qtyRequired*lineQty, exactly.
	assert.True(t, reloadIngredient(t, db, rice.ID).Quantity.Equal(dec("19.5")))
	assert.True(t, reloadIngredient(t, db, chicken.ID).Quantity.Equal(dec("14.4")))

	// Everything stayed above threshold, so no alerts.
	assert.EqualValues(t, 0, countRows(t, db, &models.AIAlert{}))
}

func TestCreateOrderAggregatesAcrossLines(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "50", "5", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "0.2"})
	wrap := seedFood(t, db, "Paneer Wrap", "179.00", requirement{paneer, "0.15"})

	// Two lines for the same item plus a second item sharing the
	// ingredient: deduction = 0.2*2 + 0.2*1 + 0.15*3 = 1.05
	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 2, Price: dec("249.00")},
		{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")},
		{FoodItemID: wrap.ID, Quantity: 3, Price: dec("179.00")},
	}, "")
	require.NoError(t, err)

	assert.True(t, reloadIngredient(t, db, paneer.ID).Quantity.Equal(dec("48.95")),
		"quantity = %s", reloadIngredient(t, db, paneer.ID).Quantity)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "0.5", "8", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "0.6"})

	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")},
	}, "")

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Paneer", insufficient.Ingredient)
	assert.True(t, insufficient.Required.Equal(dec("0.6")))
	assert.True(t, insufficient.Available.Equal(dec("0.5")))

	// Rejected before the transaction: zero side effects.
	assert.EqualValues(t, 0, countRows(t, db, &models.Order{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.OrderItem{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.AIAlert{}))
	assert.True(t, reloadIngredient(t, db, paneer.ID).Quantity.Equal(dec("0.5")))
}

func TestCreateOrderThresholdCrossing(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "10", "8", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "3"})

	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")},
	}, "")
	require.NoError(t, err)

	// 10 - 3 = 7 < 8 -> one HIGH alert.
	var alerts []models.AIAlert
	require.NoError(t, db.Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertLowStock, alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	require.NotNil(t, alerts[0].IngredientID)
	assert.Equal(t, paneer.ID, *alerts[0].IngredientID)
}

func TestCreateOrderExactThresholdNoAlert(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "10", "8", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "2"})

	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")},
	}, "")
	require.NoError(t, err)

	// Lands exactly on the threshold; the boundary is strict <.
	assert.EqualValues(t, 0, countRows(t, db, &models.AIAlert{}))
}

func TestCreateOrderCriticalWhenExhausted(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "2", "8", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "2"})

	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")},
	}, "")
	require.NoError(t, err)

	var alerts []models.AIAlert
	require.NoError(t, db.Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestCreateOrderUnknownFoodItem(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "10", "2", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "1"})

	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")},
		{FoodItemID: 9999, Quantity: 1, Price: dec("100.00")},
	}, "")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "food item", notFound.Resource)

	// The whole order aborts, including the valid line.
	assert.EqualValues(t, 0, countRows(t, db, &models.Order{}))
	assert.True(t, reloadIngredient(t, db, paneer.ID).Quantity.Equal(dec("10")))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	_, orders := newOrderFixture(t)

	_, err := orders.CreateOrder(context.Background(), nil, "")
	assert.True(t, errors.Is(err, ErrEmptyCart))
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "10", "2", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "1"})

	_, err := orders.CreateOrder(context.Background(), []CartItem{
		{FoodItemID: tikka.ID, Quantity: 0, Price: dec("249.00")},
	}, "")

	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "10", "2", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "1"})
	cart := []CartItem{{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")}}

	first, err := orders.CreateOrder(context.Background(), cart, "retry-abc123")
	require.NoError(t, err)

	second, err := orders.CreateOrder(context.Background(), cart, "retry-abc123")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// One order, and stock deducted exactly once.
	assert.EqualValues(t, 1, countRows(t, db, &models.Order{}))
	assert.True(t, reloadIngredient(t, db, paneer.ID).Quantity.Equal(dec("9")))
}

func TestCreateOrderWithoutKeyCreatesSeparateOrders(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "10", "2", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "1"})
	cart := []CartItem{{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")}}

	first, err := orders.CreateOrder(context.Background(), cart, "")
	require.NoError(t, err)
	second, err := orders.CreateOrder(context.Background(), cart, "")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.EqualValues(t, 2, countRows(t, db, &models.Order{}))
}

func TestGetOrdersPagination(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "100", "2", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "1"})
	cart := []CartItem{{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")}}

	for i := 0; i < 5; i++ {
		_, err := orders.CreateOrder(context.Background(), cart, "")
		require.NoError(t, err)
	}

	seen := make(map[uint]struct{})
	for page := 1; page <= 3; page++ {
		result, err := orders.GetOrders(context.Background(), page, 2)
		require.NoError(t, err)
		assert.Equal(t, page, result.Pagination.Page)
		assert.EqualValues(t, 5, result.Pagination.Total)
		assert.Equal(t, 3, result.Pagination.TotalPages)
		for _, o := range result.Orders {
			_, dup := seen[o.ID]
			assert.False(t, dup, "order %d appeared on two pages", o.ID)
			seen[o.ID] = struct{}{}
		}
	}
	assert.Len(t, seen, 5)
}

func TestGetOrdersCacheInvalidatedByCommit(t *testing.T) {
	db, orders := newOrderFixture(t)

	paneer := seedIngredient(t, db, "Paneer", "100", "2", "kg")
	tikka := seedFood(t, db, "Paneer Tikka", "249.00", requirement{paneer, "1"})
	cart := []CartItem{{FoodItemID: tikka.ID, Quantity: 1, Price: dec("249.00")}}

	empty, err := orders.GetOrders(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, empty.Pagination.Total)

	_, err = orders.CreateOrder(context.Background(), cart, "")
	require.NoError(t, err)

	// The commit pattern-deletes every orders page, so the next read
	// must see the new order rather than the cached empty page.
	after, err := orders.GetOrders(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, after.Pagination.Total)
	require.Len(t, after.Orders, 1)
	require.Len(t, after.Orders[0].Items, 1)
	assert.Equal(t, "Paneer Tikka", after.Orders[0].Items[0].FoodItem.Name)
}

func TestGetOrderByIDNotFound(t *testing.T) {
	_, orders := newOrderFixture(t)

	_, err := orders.GetOrderByID(context.Background(), 404)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
