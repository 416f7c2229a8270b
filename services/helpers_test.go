package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Exit(m.Run())
}

// newTestDB opens a uniquely-named shared in-memory database so parallel
// tests never see each other's rows.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.FoodItem{},
		&models.FoodIngredient{},
		&models.Order{},
		&models.OrderItem{},
		&models.AIAlert{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedIngredient and seedFood build the catalog fixtures used across the
// service tests.
func seedIngredient(t *testing.T, db *gorm.DB, name, quantity, threshold, unit string) *models.Ingredient {
	t.Helper()
	ing := models.Ingredient{
		Name:      name,
		Quantity:  dec(quantity),
		Threshold: dec(threshold),
		Unit:      unit,
	}
	if err := db.Create(&ing).Error; err != nil {
		t.Fatalf("failed to seed ingredient %s: %v", name, err)
	}
	return &ing
}

type requirement struct {
	ingredient  *models.Ingredient
	qtyRequired string
}

func seedFood(t *testing.T, db *gorm.DB, name, price string, reqs ...requirement) *models.FoodItem {
	t.Helper()
	item := models.FoodItem{
		Name:  name,
		Price: dec(price),
	}
	for _, r := range reqs {
		item.Ingredients = append(item.Ingredients, models.FoodIngredient{
			IngredientID: r.ingredient.ID,
			QtyRequired:  dec(r.qtyRequired),
		})
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed food %s: %v", name, err)
	}
	return &item
}

func reloadIngredient(t *testing.T, db *gorm.DB, id uint) *models.Ingredient {
	t.Helper()
	var ing models.Ingredient
	if err := db.First(&ing, id).Error; err != nil {
		t.Fatalf("failed to reload ingredient %d: %v", id, err)
	}
	return &ing
}

// failingStore errors on every operation; services must treat it as a
// permanent cache miss.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, errors.New("cache down")
}

func (failingStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("cache down")
}

func (failingStore) Del(ctx context.Context, keys ...string) error {
	return errors.New("cache down")
}

func (failingStore) DelPattern(ctx context.Context, pattern string) error {
	return errors.New("cache down")
}

func (failingStore) Clear(ctx context.Context) error {
	return errors.New("cache down")
}

var _ cache.Store = failingStore{}

// queryCounter observes backing-store reads so tests can prove a cache
// hit never reached the database.
type queryCounter struct {
	count int
}

func (qc *queryCounter) attach(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Query().After("gorm:query").Register("test:query_counter", func(*gorm.DB) {
		qc.count++
	})
	if err != nil {
		t.Fatalf("failed to register query counter: %v", err)
	}
}
