package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how Coupon.Discount is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"uniqueIndex;size:15;not null" json:"code"`
	Discount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount"`
	DiscountType DiscountType    `gorm:"size:10;not null;default:'percentage'" json:"discount_type"`
	Active       bool            `gorm:"not null" json:"active"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidUntil   time.Time       `json:"valid_until"`
	UsageLimit   *int            `json:"usage_limit"` // nil means unlimited
	UsageCount   int             `gorm:"not null;default:0" json:"usage_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
