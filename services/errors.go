package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation failures are reported to the caller before any write happens;
// controllers map them to 4xx responses. Anything else that escapes a
// service is a storage failure and surfaces as a generic 5xx.

var ErrEmptyCart = errors.New("cart is empty")

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// InsufficientStockError names the ingredient and both amounts so the UI
// can show an actionable message.
type InsufficientStockError struct {
	Ingredient string
	Required   decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s. Required: %s, Available: %s",
		e.Ingredient, e.Required.String(), e.Available.String())
}
