package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/notify"
	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger()
	os.Exit(m.Run())
}

type fixture struct {
	engine *gin.Engine
	db     *gorm.DB
	rice   *models.Ingredient
	food   *models.FoodItem
}

// newFixture wires the whole stack against sqlite the way main wires it
// against mysql, and seeds one dish backed by one ingredient.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.FoodItem{},
		&models.FoodIngredient{},
		&models.Order{},
		&models.OrderItem{},
		&models.AIAlert{},
	))

	store := cache.NewMemory()
	hub := notify.NewHub()
	foodSvc := services.NewFoodService(db, store)
	inventorySvc := services.NewInventoryService(db, store, hub)
	provider := services.NewFallbackProvider(foodSvc)
	orderSvc := services.NewOrderService(db, store, foodSvc, inventorySvc, provider, hub)

	engine := SetupRouter(Deps{
		DB:        db,
		Food:      foodSvc,
		Inventory: inventorySvc,
		Orders:    orderSvc,
		Suggest:   provider,
		Hub:       hub,
	})

	rice := models.Ingredient{
		Name:      "Basmati Rice",
		Quantity:  decimal.RequireFromString("20"),
		Threshold: decimal.RequireFromString("5"),
		Unit:      "kg",
	}
	require.NoError(t, db.Create(&rice).Error)

	biryani := models.FoodItem{
		Name:  "Chicken Biryani",
		Price: decimal.RequireFromString("399.99"),
		Ingredients: []models.FoodIngredient{
			{IngredientID: rice.ID, QtyRequired: decimal.RequireFromString("0.25")},
		},
	}
	require.NoError(t, db.Create(&biryani).Error)

	return &fixture{engine: engine, db: db, rice: &rice, food: &biryani}
}

func (f *fixture) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func adminHeaders(t *testing.T) map[string]string {
	t.Helper()
	token, err := utils.GenerateToken(1, "admin")
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var resp utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetMenuPublic(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/menu", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Status)
	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestCreateOrderEndToEnd(t *testing.T) {
	f := newFixture(t)

	body := gin.H{"items": []gin.H{
		{"food_item_id": f.food.ID, "quantity": 2, "price": "399.99"},
	}}
	w := f.request(t, http.MethodPost, "/api/orders", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotZero(t, data["order_id"])

	var rice models.Ingredient
	require.NoError(t, f.db.First(&rice, f.rice.ID).Error)
	assert.True(t, rice.Quantity.Equal(decimal.RequireFromString("19.5")))
}

func TestCreateOrderInsufficientStockConflict(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.rice).Update("quantity", "0.1").Error)

	body := gin.H{"items": []gin.H{
		{"food_item_id": f.food.ID, "quantity": 1, "price": "399.99"},
	}}
	w := f.request(t, http.MethodPost, "/api/orders", body, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decodeResponse(t, w)
	assert.Contains(t, resp.Message, "insufficient inventory for Basmati Rice")
}

func TestCreateOrderEmptyCartBadRequest(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/orders", gin.H{"items": []gin.H{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderIdempotentRetry(t *testing.T) {
	f := newFixture(t)

	body := gin.H{"items": []gin.H{
		{"food_item_id": f.food.ID, "quantity": 1, "price": "399.99"},
	}}
	headers := map[string]string{"Idempotency-Key": "checkout-abc-123"}

	first := f.request(t, http.MethodPost, "/api/orders", body, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	retry := f.request(t, http.MethodPost, "/api/orders", body, headers)
	require.Equal(t, http.StatusCreated, retry.Code)

	firstID := decodeResponse(t, first).Data.(map[string]interface{})["order_id"]
	retryID := decodeResponse(t, retry).Data.(map[string]interface{})["order_id"]
	assert.Equal(t, firstID, retryID)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAdminOrdersRequiresAuth(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/admin/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	staffToken, err := utils.GenerateToken(2, "staff")
	require.NoError(t, err)
	w = f.request(t, http.MethodGet, "/api/admin/orders", nil,
		map[string]string{"Authorization": "Bearer " + staffToken})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminOrdersPaginationShape(t *testing.T) {
	f := newFixture(t)

	body := gin.H{"items": []gin.H{
		{"food_item_id": f.food.ID, "quantity": 1, "price": "399.99"},
	}}
	for i := 0; i < 3; i++ {
		w := f.request(t, http.MethodPost, "/api/orders", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.request(t, http.MethodGet, "/api/admin/orders?page=1&page_size=2", nil, adminHeaders(t))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	pagination, ok := data["pagination"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, pagination["page"])
	assert.EqualValues(t, 2, pagination["pageSize"])
	assert.EqualValues(t, 3, pagination["total"])
	assert.EqualValues(t, 2, pagination["totalPages"])
	assert.Len(t, data["orders"], 2)
}

func TestAdminAlertFlow(t *testing.T) {
	f := newFixture(t)
	headers := adminHeaders(t)

	require.NoError(t, f.db.Model(f.rice).Update("quantity", "2").Error)

	w := f.request(t, http.MethodPost, "/api/admin/inventory/analyze", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodGet, "/api/admin/alerts?is_read=false", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	alerts, ok := decodeResponse(t, w).Data.([]interface{})
	require.True(t, ok)
	require.Len(t, alerts, 1)

	alertID := alerts[0].(map[string]interface{})["id"]
	w = f.request(t, http.MethodPatch, fmt.Sprintf("/api/admin/alerts/%v/read", alertID), nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodGet, "/api/admin/alerts?is_read=false", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	if resp.Data != nil {
		assert.Empty(t, resp.Data)
	}
}

func TestNearExpiryRejectsNegativeDays(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/admin/inventory/near-expiry?days=-1", nil, adminHeaders(t))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Message, "non-negative")
}

func TestGlobalRateLimit(t *testing.T) {
	f := newFixture(t)

	// The per-IP limiter allows 50 requests per second; the 51st from the
	// same client must be rejected.
	for i := 0; i < 50; i++ {
		w := f.request(t, http.MethodGet, "/api/menu", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	w := f.request(t, http.MethodGet, "/api/menu", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSuggestionsFailOpen(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/suggestions/menu", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Status)
}
