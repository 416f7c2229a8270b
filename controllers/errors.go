package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinsom/curryleaf/services"
	"github.com/ashwinsom/curryleaf/utils"
)

var (
	ErrNoPermission = errors.New("you don't have permission to access this resource")
	ErrOrderFailed  = errors.New("order could not be processed, please try again")
)

// respondServiceError maps service errors onto HTTP statuses. Validation
// and stock rejections keep their specific message; storage failures are
// collapsed into a generic one so internals never leak to customers.
func respondServiceError(c *gin.Context, err error) {
	var notFound *services.NotFoundError
	var insufficient *services.InsufficientStockError
	var validation *services.ValidationError

	switch {
	case errors.Is(err, services.ErrEmptyCart):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.As(err, &validation):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.As(err, &notFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.As(err, &insufficient):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.ErrorLogger.Printf("internal error: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, ErrOrderFailed)
	}
}
