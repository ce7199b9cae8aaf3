package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated owner of carts and orders. Registration and
// token issuance live outside this service; only the fields needed for
// ownership checks and notifications are kept here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	IsBlocked bool      `json:"is_blocked" gorm:"default:false"`
	IsAdmin   bool      `json:"is_admin" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxDiscountPercent caps Product.Discount when computing the final price.
const MaxDiscountPercent = 100

// Product is a catalog entry. The catalog itself is managed elsewhere; this
// service reads prices and owns the stock counter.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Discount    int             `gorm:"not null;default:0" json:"discount"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FinalPrice is the unit price after the product discount, which is clamped
// to [0, 100] percent.
func (p Product) FinalPrice() decimal.Decimal {
	discount := p.Discount
	if discount > MaxDiscountPercent {
		discount = MaxDiscountPercent
	}
	if discount < 0 {
		discount = 0
	}
	return p.Price.Mul(decimal.NewFromInt(int64(100 - discount))).Div(decimal.NewFromInt(100))
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}
