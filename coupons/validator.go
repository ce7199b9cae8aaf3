package coupons

import (
	"time"

	"github.com/Govind-619/storefront/models"
	"github.com/shopspring/decimal"
)

// RestoreUsageOnCancel controls whether cancelling an order gives its coupon
// use back. Usage is consumed at checkout and kept.
const RestoreUsageOnCancel = false

var hundred = decimal.NewFromInt(100)

// IsValid reports whether the coupon can be used at now.
func IsValid(c *models.Coupon, now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	return c.UsageLimit == nil || c.UsageCount < *c.UsageLimit
}

// Discount is the amount the coupon takes off itemsTotal, rounded to cents.
// It never exceeds itemsTotal and is never negative.
func Discount(c *models.Coupon, itemsTotal decimal.Decimal) decimal.Decimal {
	if c == nil || !itemsTotal.IsPositive() || !c.Discount.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountFixed:
		amount = decimal.Min(c.Discount, itemsTotal)
	default:
		amount = itemsTotal.Mul(c.Discount).Div(hundred)
	}
	amount = amount.Round(2)
	if amount.GreaterThan(itemsTotal) {
		amount = itemsTotal
	}
	return amount
}

// Apply returns the discount and the resulting total for itemsTotal. An
// invalid coupon yields no discount.
func Apply(c *models.Coupon, itemsTotal decimal.Decimal, now time.Time) (discount, total decimal.Decimal) {
	if IsValid(c, now) {
		discount = Discount(c, itemsTotal)
	}
	return discount, itemsTotal.Sub(discount)
}
