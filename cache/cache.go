package cache

import (
	"context"
	"fmt"
	"time"
)

// Store is the caching port used by every read path. Values are
// JSON-serialized by the implementation; callers hand over plain structs.
//
// A Store is best-effort by contract: callers must treat any error as a
// cache miss and fall through to the database. No service may fail a
// request because the cache layer failed.
type Store interface {
	// Get unmarshals the cached value into dest and reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// DelPattern removes every key matching the pattern. Patterns contain
	// at most one '*' and are matched as "prefix*suffix", not as a full
	// glob or regex.
	DelPattern(ctx context.Context, pattern string) error
	Clear(ctx context.Context) error
}

// Default TTLs, mirroring how often each dataset actually changes.
const (
	FoodItemsTTL   = 10 * time.Minute
	IngredientsTTL = 5 * time.Minute
	DashboardTTL   = 2 * time.Minute
	AlertsTTL      = 1 * time.Minute
	OrdersTTL      = 5 * time.Minute
)

// Key builders. Every cached dataset has exactly one producer; writers
// invalidate through these same helpers so key construction never drifts.

func FoodItemsKey() string { return "cache:food:items" }

func FoodItemKey(id uint) string { return fmt.Sprintf("cache:food:item:%d", id) }

func IngredientsKey() string { return "cache:ingredients:all" }

func DashboardKey() string { return "cache:inventory:dashboard" }

func AlertsKey(isRead bool) string {
	if isRead {
		return "cache:alerts:read"
	}
	return "cache:alerts:unread"
}

func OrdersKey(page, pageSize int) string {
	return fmt.Sprintf("cache:orders:%d:%d", page, pageSize)
}

// OrdersPattern matches every paginated orders entry; used by the order
// pipeline after commit since a new order shifts all pages.
func OrdersPattern() string { return "cache:orders:*" }
