// Package services holds the storefront business logic: catalog
// synchronization over the persistent cache, discount application and the
// per-user order drafts. This file centralizes the service-level error values
// so handlers can map them to HTTP results consistently.
package services

import "errors"

// Catalog errors.
var (
	// ErrProductNotFound indicates the upstream shop has no such product.
	ErrProductNotFound = errors.New("product not found")

	// ErrSectionNotFound indicates the upstream shop has no such section.
	ErrSectionNotFound = errors.New("section not found")

	// ErrEmptyQuery is returned by local search for a blank query.
	ErrEmptyQuery = errors.New("search query is empty")
)

// Discount errors.
var (
	// ErrEmptyCode is returned when a discount code is blank.
	ErrEmptyCode = errors.New("discount code is empty")

	// ErrDiscountNotFound indicates the code is unknown upstream.
	ErrDiscountNotFound = errors.New("discount not found")

	// ErrNoActiveDiscount is returned when no discount is applied to the cart.
	ErrNoActiveDiscount = errors.New("no active discount")

	// ErrInvalidCartTotal is returned for a negative cart total.
	ErrInvalidCartTotal = errors.New("cart total must not be negative")
)

// Order errors.
var (
	// ErrDraftNotFound indicates the draft does not exist, expired, or belongs
	// to another user.
	ErrDraftNotFound = errors.New("order draft not found")

	// ErrTooManyDrafts is returned when a user exceeds the open draft cap.
	ErrTooManyDrafts = errors.New("too many open order drafts")
)
