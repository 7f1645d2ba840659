package services

import "errors"

// Validation errors: the request is rejected and no state is mutated.
var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	ErrInvalidAmount   = errors.New("order total amount must be positive")
)

// Not-found and conflict errors.
var (
	ErrItemNotFound  = errors.New("item not found in cart")
	ErrCartEmpty     = errors.New("cart has no items")
	ErrCartNotActive = errors.New("cart is not active")
)
