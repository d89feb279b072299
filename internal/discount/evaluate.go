// Package discount validates a discount code against a cart and computes the
// deduction. Evaluate is pure: time only enters through its now argument.
package discount

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

var (
	ErrNotStarted      = errors.New("discount not started yet")
	ErrExpired         = errors.New("discount expired")
	ErrBelowMinimum    = errors.New("cart total below minimum for discount")
	ErrAboveMaximum    = errors.New("cart total above maximum for discount")
	ErrUnsupportedType = errors.New("discount has unsupported type")
	ErrInvalidValue    = errors.New("discount has invalid value")
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of Evaluate. When Valid is false, Err holds one of
// the package sentinels and the amounts are zero.
type Result struct {
	Valid    bool
	Amount   int64
	NewTotal int64
	Err      error
}

// Evaluate checks d against cartTotal (whole currency units) at now. The
// first failing check wins, in this order: start date, end date, minimum,
// maximum, type, value. A valid amount is clamped to cartTotal so NewTotal is
// never negative.
//
// Amounts are rounded half away from zero to whole units.
func Evaluate(d domain.Discount, cartTotal int64, now time.Time) Result {
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return invalid(ErrNotStarted)
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return invalid(ErrExpired)
	}
	total := decimal.NewFromInt(cartTotal)
	if d.MinPrice != nil && total.LessThan(*d.MinPrice) {
		return invalid(ErrBelowMinimum)
	}
	if d.MaxPrice != nil && total.GreaterThan(*d.MaxPrice) {
		return invalid(ErrAboveMaximum)
	}

	var amount decimal.Decimal
	switch d.Type {
	case domain.DiscountPercentage:
		amount = total.Mul(d.Value).Div(hundred).Round(0)
	case domain.DiscountFixed:
		amount = d.Value.Round(0)
	default:
		return invalid(ErrUnsupportedType)
	}
	if !amount.IsPositive() {
		return invalid(ErrInvalidValue)
	}

	if amount.GreaterThan(total) {
		amount = total
	}
	a := amount.IntPart()
	newTotal := cartTotal - a
	if newTotal < 0 {
		newTotal = 0
	}
	return Result{Valid: true, Amount: a, NewTotal: newTotal}
}

func invalid(err error) Result {
	return Result{Err: err}
}
