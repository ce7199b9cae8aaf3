package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrCartInactive is returned when a line is written to a checked-out cart.
var ErrCartInactive = errors.New("cannot modify items of an inactive cart")

// Cart is the user's mutable basket. Exactly one cart per user is active;
// the partial unique index enforces it at the storage layer.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_carts_active_user,unique,where:active = true" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	CouponID  *uint      `json:"coupon_id"`
	Coupon    *Coupon    `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemsTotal sums the live line totals. Items must be loaded with Product.
func (c Cart) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CartItem is one (product, quantity) line of a cart.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineTotal is the product's final price times the quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.FinalPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// BeforeSave rejects writes to lines whose cart is no longer active.
func (i *CartItem) BeforeSave(tx *gorm.DB) error {
	var active bool
	if err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&Cart{}).
		Select("active").
		Where("id = ?", i.CartID).
		Scan(&active).Error; err != nil {
		return err
	}
	if !active {
		return ErrCartInactive
	}
	return nil
}
