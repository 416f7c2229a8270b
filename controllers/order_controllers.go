package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> customer checkout. An optional Idempotency-Key header
// lets the client retry safely after a network failure.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	type reqBody struct {
		Items []services.CartItem `json:"items" binding:"required"`
	}

	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")

	orderID, err := oc.Orders.CreateOrder(c.Request.Context(), body.Items, idempotencyKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{"order_id": orderID})
}

// GetOrders -> admin paginated order listing
func (oc *OrderController) GetOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	result, err := oc.Orders.GetOrders(c.Request.Context(), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", result)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := parseID(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}
