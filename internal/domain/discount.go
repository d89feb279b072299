package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount amount is computed.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is a normalized discount definition. Nil bounds and dates are unset.
type Discount struct {
	Code      string           `json:"code"`
	Type      DiscountType     `json:"type"`
	Value     decimal.Decimal  `json:"value"`
	MinPrice  *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice  *decimal.Decimal `json:"max_price,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
}

// AppliedDiscount is the persisted form of the discount currently applied to
// the cart.
type AppliedDiscount struct {
	Discount  Discount  `json:"discount"`
	Amount    int64     `json:"amount"`
	NewTotal  int64     `json:"new_total"`
	AppliedAt time.Time `json:"applied_at"`
}
