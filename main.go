package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/config"
	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/notify"
	"github.com/ashwinsom/curryleaf/router"
	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()

	cfg := config.Load()
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	store := config.InitCache(cfg)
	hub := notify.NewHub()

	// Services are wired once here and passed down explicitly.
	foodSvc := services.NewFoodService(db, store)
	inventorySvc := services.NewInventoryService(db, store, hub)

	var provider services.Provider
	if cfg.GeminiAPIKey != "" {
		provider = services.NewGeminiProvider(foodSvc, cfg.GeminiAPIKey)
		utils.InfoLogger.Println("AI suggestion provider enabled")
	} else {
		provider = services.NewFallbackProvider(foodSvc)
		utils.InfoLogger.Println("GEMINI_API_KEY not set, using fallback suggestions")
	}

	orderSvc := services.NewOrderService(db, store, foodSvc, inventorySvc, provider, hub)
	orderSvc.SetTxTimeout(cfg.OrderTxTimeout)

	r := router.SetupRouter(router.Deps{
		DB:        db,
		Food:      foodSvc,
		Inventory: inventorySvc,
		Orders:    orderSvc,
		Suggest:   provider,
		Hub:       hub,
	})

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.FoodItem{},
		&models.FoodIngredient{},
		&models.Order{},
		&models.OrderItem{},
		&models.AIAlert{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
