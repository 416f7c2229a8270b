package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

type InventoryController struct {
	Inventory *services.InventoryService
}

func NewInventoryController(inventory *services.InventoryService) *InventoryController {
	return &InventoryController{Inventory: inventory}
}

func (ic *InventoryController) GetIngredients(c *gin.Context) {
	ingredients, err := ic.Inventory.GetIngredients(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of ingredients", ingredients)
}

func (ic *InventoryController) GetDashboard(c *gin.Context) {
	dash, err := ic.Inventory.GetDashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Inventory dashboard", dash)
}

// GetNearExpiry -> ?days=7 window, soonest first
func (ic *InventoryController) GetNearExpiry(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("days must be a non-negative integer"))
		return
	}

	ingredients, err := ic.Inventory.GetNearExpiry(c.Request.Context(), days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Near-expiry ingredients", ingredients)
}

// GetAlerts -> ?is_read=false (default) or true
func (ic *InventoryController) GetAlerts(c *gin.Context) {
	isRead := c.DefaultQuery("is_read", "false") == "true"

	alerts, err := ic.Inventory.GetAlerts(c.Request.Context(), isRead)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of alerts", alerts)
}

func (ic *InventoryController) MarkAlertRead(c *gin.Context) {
	id, err := parseID(c, "alert_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := ic.Inventory.MarkAlertRead(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Alert marked as read", gin.H{"alert_id": id})
}

// AnalyzeInventory -> admin-triggered batch alert generation
func (ic *InventoryController) AnalyzeInventory(c *gin.Context) {
	created, err := ic.Inventory.AnalyzeInventory(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Inventory analyzed", gin.H{"alerts_created": created})
}

func (ic *InventoryController) CreateIngredient(c *gin.Context) {
	var input services.IngredientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ing, err := ic.Inventory.CreateIngredient(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Ingredient created", ing)
}

func (ic *InventoryController) UpdateIngredient(c *gin.Context) {
	id, err := parseID(c, "ingredient_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var input services.IngredientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ing, err := ic.Inventory.UpdateIngredient(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ingredient updated", ing)
}
