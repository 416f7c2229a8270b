package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

type FoodController struct {
	Food *services.FoodService
}

func NewFoodController(food *services.FoodService) *FoodController {
	return &FoodController{Food: food}
}

// GetMenu -> full menu with ingredient requirements, for the storefront
func (fc *FoodController) GetMenu(c *gin.Context) {
	items, err := fc.Food.GetFoodItems(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", items)
}

func (fc *FoodController) GetFoodByID(c *gin.Context) {
	id, err := parseID(c, "food_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := fc.Food.GetFoodItemByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Food item", item)
}

// CreateFood -> admin adds a menu item with its ingredient links
func (fc *FoodController) CreateFood(c *gin.Context) {
	var input services.FoodItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := fc.Food.CreateFoodItem(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Food item created", item)
}

func (fc *FoodController) UpdateFood(c *gin.Context) {
	id, err := parseID(c, "food_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var input services.FoodItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := fc.Food.UpdateFoodItem(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Food item updated", item)
}

func (fc *FoodController) DeleteFood(c *gin.Context) {
	id, err := parseID(c, "food_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := fc.Food.DeleteFoodItem(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Food item deleted", gin.H{"food_id": id})
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
