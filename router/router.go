package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ashwinsom/curryleaf/controllers"
	"github.com/ashwinsom/curryleaf/middlewares"
	"github.com/ashwinsom/curryleaf/notify"
	"github.com/ashwinsom/curryleaf/services"
)

// Deps carries everything the route table needs; constructed once in main.
type Deps struct {
	DB        *gorm.DB
	Food      *services.FoodService
	Inventory *services.InventoryService
	Orders    *services.OrderService
	Suggest   services.Provider
	Hub       *notify.Hub
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	// Registered before any route so it applies to all of them.
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	foodCtrl := controllers.NewFoodController(deps.Food)
	orderCtrl := controllers.NewOrderController(deps.Orders)
	inventoryCtrl := controllers.NewInventoryController(deps.Inventory)
	suggestCtrl := controllers.NewSuggestionController(deps.Suggest)
	userCtrl := controllers.NewUserController(deps.DB)
	wsCtrl := controllers.NewWSController(deps.Hub)

	api := r.Group("/api")

	// Customer storefront
	api.GET("/menu", foodCtrl.GetMenu)
	api.GET("/menu/:food_id", foodCtrl.GetFoodByID)
	api.POST("/orders", orderCtrl.CreateOrder)
	api.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	suggestions := api.Group("/suggestions")
	suggestions.GET("/pairing/:food_id", suggestCtrl.GetPairing)
	suggestions.POST("/upsells", suggestCtrl.GetUpsells)
	suggestions.GET("/menu", suggestCtrl.GetMenuSuggestions)
	suggestions.GET("/next-order/:order_id", suggestCtrl.GetNextOrderSuggestions)

	// Auth
	auth := api.Group("/auth")
	auth.POST("/login", middlewares.NewLoginRateLimiter(), userCtrl.Login)

	// Admin back-office
	admin := api.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.AdminOnly())
	{
		admin.POST("/users", userCtrl.Register)

		admin.GET("/orders", orderCtrl.GetOrders)

		admin.POST("/food", foodCtrl.CreateFood)
		admin.PUT("/food/:food_id", foodCtrl.UpdateFood)
		admin.DELETE("/food/:food_id", foodCtrl.DeleteFood)

		admin.GET("/ingredients", inventoryCtrl.GetIngredients)
		admin.POST("/ingredients", inventoryCtrl.CreateIngredient)
		admin.PUT("/ingredients/:ingredient_id", inventoryCtrl.UpdateIngredient)
		admin.GET("/inventory/dashboard", inventoryCtrl.GetDashboard)
		admin.GET("/inventory/near-expiry", inventoryCtrl.GetNearExpiry)
		admin.POST("/inventory/analyze", inventoryCtrl.AnalyzeInventory)

		admin.GET("/alerts", inventoryCtrl.GetAlerts)
		admin.PATCH("/alerts/:alert_id/read", inventoryCtrl.MarkAlertRead)

		admin.GET("/ws", wsCtrl.AdminFeed)
	}

	return r
}
