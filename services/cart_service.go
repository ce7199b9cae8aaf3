package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Govind-619/storefront/coupons"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartService manages the user's active cart.
type CartService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db, now: time.Now}
}

// CartLine is one priced line of a cart summary.
type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	InStock   bool            `json:"in_stock"`
}

// CartSummary is the cart as the customer sees it, priced at live prices.
type CartSummary struct {
	CartID     uint            `json:"cart_id"`
	Items      []CartLine      `json:"items"`
	ItemsTotal decimal.Decimal `json:"items_total"`
	CouponCode string          `json:"coupon_code,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// getOrCreateActive returns the user's active cart, creating it if absent.
// A concurrent creator losing the unique index race re-reads the winner's cart.
func getOrCreateActive(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ? AND active = ?", userID, true).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.InternalError("Failed to load cart", err)
	}

	// The nested transaction is a savepoint, so a failed insert leaves the
	// outer transaction usable for the re-read.
	cart = models.Cart{UserID: userID, Active: true}
	createErr := tx.Transaction(func(inner *gorm.DB) error {
		return inner.Create(&cart).Error
	})
	if createErr != nil {
		var existing models.Cart
		if err := tx.Where("user_id = ? AND active = ?", userID, true).First(&existing).Error; err == nil {
			return &existing, nil
		}
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return nil, utils.ConflictError(utils.ReasonDuplicateActiveCart, "Another active cart exists for this user", createErr)
		}
		return nil, utils.InternalError("Failed to create cart", createErr)
	}
	utils.LogDebug("Created active cart %d for user %d", cart.ID, userID)
	return &cart, nil
}

func cartWriteError(err error, message string) error {
	if errors.Is(err, models.ErrCartInactive) {
		return utils.ConflictError(utils.ReasonCartInactive, "Cart has already been checked out", err)
	}
	if utils.IsAppError(err) {
		return err
	}
	return utils.InternalError(message, err)
}

// GetOrCreateActive returns the user's active cart.
func (s *CartService) GetOrCreateActive(ctx context.Context, userID uint) (*models.Cart, error) {
	return getOrCreateActive(s.db.WithContext(ctx), userID)
}

// AddItem puts qty of the product in the cart, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, qty int) (*CartSummary, error) {
	if qty < 1 {
		qty = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateActive(tx, userID)
		if err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError(utils.ReasonProductNotFound, "Product not found", err)
			}
			return utils.InternalError("Failed to load product", err)
		}
		if !product.InStock() {
			return utils.ConflictError(utils.ReasonOutOfStock, product.Name+" is out of stock", nil)
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += qty
			if err := tx.Save(&item).Error; err != nil {
				return cartWriteError(err, "Failed to update cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
			if err := tx.Create(&item).Error; err != nil {
				return cartWriteError(err, "Failed to add cart item")
			}
		default:
			return utils.InternalError("Failed to load cart item", err)
		}
		utils.LogInfo("User %d added %d x product %d to cart %d", userID, qty, productID, cart.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID)
}

// RemoveItem deletes the product's line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*CartSummary, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateActive(tx, userID)
		if err != nil {
			return err
		}
		res := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Delete(&models.CartItem{})
		if res.Error != nil {
			return utils.InternalError("Failed to remove cart item", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.NotFoundError(utils.ReasonCartItemNotFound, "Item not in cart", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID)
}

// SetQuantity replaces the line's quantity; qty <= 0 removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID uint, qty int) (*CartSummary, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateActive(tx, userID)
		if err != nil {
			return err
		}
		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError(utils.ReasonCartItemNotFound, "Item not in cart", err)
			}
			return utils.InternalError("Failed to load cart item", err)
		}
		item.Quantity = qty
		if err := tx.Save(&item).Error; err != nil {
			return cartWriteError(err, "Failed to update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID)
}

// ApplyCoupon attaches the coupon with code to the cart if it is usable now.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uint, code string) (*CartSummary, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, utils.ValidationError(utils.ReasonInvalidRequest, "Coupon code is required", nil)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateActive(tx, userID)
		if err != nil {
			return err
		}

		var coupon models.Coupon
		if err := tx.Where("code = ?", code).First(&coupon).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError(utils.ReasonCouponNotFound, "Coupon not found", err)
			}
			return utils.InternalError("Failed to load coupon", err)
		}
		if !coupons.IsValid(&coupon, s.now()) {
			return utils.ConflictError(utils.ReasonCouponInvalid, "Coupon is not valid", nil)
		}

		if err := tx.Model(cart).Update("coupon_id", coupon.ID).Error; err != nil {
			return utils.InternalError("Failed to apply coupon", err)
		}
		utils.LogInfo("Coupon %s applied to cart %d", coupon.Code, cart.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID)
}

// ClearCoupon detaches any coupon from the cart.
func (s *CartService) ClearCoupon(ctx context.Context, userID uint) (*CartSummary, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateActive(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(cart).Update("coupon_id", nil).Error; err != nil {
			return utils.InternalError("Failed to clear coupon", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID)
}

// Summary prices the active cart. The coupon only discounts while valid.
func (s *CartService) Summary(ctx context.Context, userID uint) (*CartSummary, error) {
	db := s.db.WithContext(ctx)
	cart, err := getOrCreateActive(db, userID)
	if err != nil {
		return nil, err
	}
	if err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Preload("Items.Product").Preload("Coupon").First(cart, cart.ID).Error; err != nil {
		return nil, utils.InternalError("Failed to load cart", err)
	}
	return summarize(cart, s.now()), nil
}

func summarize(cart *models.Cart, now time.Time) *CartSummary {
	summary := &CartSummary{
		CartID:     cart.ID,
		Items:      make([]CartLine, 0, len(cart.Items)),
		ItemsTotal: cart.ItemsTotal(),
	}
	for _, item := range cart.Items {
		summary.Items = append(summary.Items, CartLine{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			UnitPrice: item.Product.FinalPrice(),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
			InStock:   item.Product.InStock(),
		})
	}
	if cart.Coupon != nil {
		summary.CouponCode = cart.Coupon.Code
	}
	summary.Discount, summary.Total = coupons.Apply(cart.Coupon, summary.ItemsTotal, now)
	return summary
}
