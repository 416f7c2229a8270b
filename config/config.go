package config

import (
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/cache"
	"github.com/ashwinsom/curryleaf/utils"
)

type Config struct {
	Port           string
	DBDSN          string
	RedisAddr      string
	GinMode        string
	GeminiAPIKey   string
	OrderTxTimeout time.Duration
}

func Load() Config {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		DBDSN:        getEnv("DB_DSN", "root:@tcp(127.0.0.1:3306)/curryleaf?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		GinMode:      os.Getenv("GIN_MODE"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
	}
	if raw := os.Getenv("ORDER_TX_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			utils.ErrorLogger.Printf("invalid ORDER_TX_TIMEOUT %q, using default: %v", raw, err)
		} else {
			cfg.OrderTxTimeout = d
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func InitDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// InitCache picks the networked cache when REDIS_ADDR is set and the
// in-process TTL map otherwise. Selection happens here by configuration,
// never by editing call sites.
func InitCache(cfg Config) cache.Store {
	if cfg.RedisAddr == "" {
		utils.InfoLogger.Println("REDIS_ADDR not set, using in-memory cache")
		return cache.NewMemory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	utils.InfoLogger.Printf("using redis cache at %s", cfg.RedisAddr)
	return cache.NewRedis(client)
}
