package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

// SuggestionController exposes the suggestion gateway. The provider fails
// open by contract, so these handlers only ever see empty results, never
// upstream errors.
type SuggestionController struct {
	Provider services.Provider
}

func NewSuggestionController(provider services.Provider) *SuggestionController {
	return &SuggestionController{Provider: provider}
}

func (sc *SuggestionController) GetPairing(c *gin.Context) {
	id, err := parseID(c, "food_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	suggestion, _ := sc.Provider.SuggestPairing(c.Request.Context(), id)
	utils.RespondJSON(c, http.StatusOK, "Pairing suggestion", suggestion)
}

// GetUpsells -> body carries the cart's food item ids
func (sc *SuggestionController) GetUpsells(c *gin.Context) {
	type reqBody struct {
		FoodItemIDs []uint `json:"food_item_ids" binding:"required"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	suggestions, _ := sc.Provider.SuggestUpsells(c.Request.Context(), body.FoodItemIDs)
	utils.RespondJSON(c, http.StatusOK, "Upsell suggestions", suggestions)
}

func (sc *SuggestionController) GetMenuSuggestions(c *gin.Context) {
	suggestions, _ := sc.Provider.SuggestMenu(c.Request.Context())
	utils.RespondJSON(c, http.StatusOK, "Menu suggestions", suggestions)
}

func (sc *SuggestionController) GetNextOrderSuggestions(c *gin.Context) {
	id, err := parseID(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	suggestions, _ := sc.Provider.SuggestNextOrder(c.Request.Context(), id)
	utils.RespondJSON(c, http.StatusOK, "Next order suggestions", suggestions)
}
