package service

import "errors"

// Common service errors
var (
	// ErrEmptyCart is returned when an order is placed with no items
	ErrEmptyCart = errors.New("cart must contain at least one item")

	// ErrInvalidQuantity is returned when a cart line has a non-positive quantity
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidUnitPrice is returned when a cart line has a negative unit price
	ErrInvalidUnitPrice = errors.New("unit price must not be negative")

	// ErrInvalidOrderContext is returned when an order names neither a customer
	// nor an account contact, or both
	ErrInvalidOrderContext = errors.New("order must belong to exactly one of a customer or an account contact")

	// ErrInvalidStatusTransition is returned when a status change is not allowed
	// by the transition map
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrOrderStatusConflict is returned when the order's status changed under
	// a concurrent writer before the transition was applied
	ErrOrderStatusConflict = errors.New("order status was changed by another request")

	// ErrOrderNotFound is returned when an order is not found
	ErrOrderNotFound = errors.New("order not found")

	// ErrProfileNotFound is returned when a profile is not found
	ErrProfileNotFound = errors.New("profile not found")

	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrProductNotFound is returned when a product is not found
	ErrProductNotFound = errors.New("product not found")

	// ErrCategoryNotFound is returned when a category is not found
	ErrCategoryNotFound = errors.New("category not found")

	// ErrRelationshipNotFound is returned when a contact-account link is not found
	ErrRelationshipNotFound = errors.New("relationship not found")

	// ErrNoRecipient is returned when no notification recipient can be resolved
	// for an order
	ErrNoRecipient = errors.New("no notification recipient for order")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrProfileExists is returned when inviting an email that already has a
	// signed-up profile
	ErrProfileExists = errors.New("a profile with this email already exists")

	// ErrEmailDispatchFailed is returned when the invite email could not be
	// sent; the invitation itself is still persisted
	ErrEmailDispatchFailed = errors.New("invitation saved but email dispatch failed")
)
