package services

import (
	"context"

	"github.com/Govind-619/storefront/coupons"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService reads the user's orders and edits pending ones.
type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// ItemQuantity sets the quantity of one order line.
type ItemQuantity struct {
	ProductID uint `json:"product_id"`
	Quantity  *int `json:"quantity"`
}

// OrderUpdate lists the fields to change; nil and empty values are left alone.
type OrderUpdate struct {
	Phone   string         `json:"phone"`
	Address string         `json:"address"`
	Items   []ItemQuantity `json:"items"`
}

// OrderUpdateResult describes the order after an edit. Deleted is set when
// the edit removed the last line and with it the order.
type OrderUpdateResult struct {
	OrderID        uint            `json:"order_id"`
	Deleted        bool            `json:"deleted"`
	Phone          string          `json:"phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

// List returns one page of the user's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID uint, page *utils.Pagination) ([]models.Order, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, utils.InternalError("Failed to count orders", err)
	}

	var orders []models.Order
	if err := db.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, utils.InternalError("Failed to fetch orders", err)
	}
	return orders, total, nil
}

// Get returns the user's order with its lines and products.
func (s *OrderService) Get(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Coupon").
		Preload("User").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		return nil, orderNotFound(err)
	}
	return &order, nil
}

// UpdateOrder edits contact details and line quantities of a pending order
// and recomputes its totals with the coupon it was placed with. A quantity
// of zero or less removes the line; lines not on the order are ignored.
func (s *OrderService) UpdateOrder(ctx context.Context, userID, orderID uint, update OrderUpdate) (*OrderUpdateResult, error) {
	phone := utils.NormalizePhone(update.Phone)
	if phone != "" {
		if ok, msg := utils.ValidatePhone(phone); !ok {
			return nil, utils.ValidationError(utils.ReasonInvalidRequest, msg, nil)
		}
	}
	address := utils.SanitizeString(update.Address)

	var result OrderUpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", orderID, userID).
			First(&order).Error; err != nil {
			return orderNotFound(err)
		}
		if order.Status != models.OrderStatusPending {
			return utils.ConflictError(utils.ReasonOrderNotPending, "Only pending orders can be updated", nil)
		}

		updates := map[string]interface{}{}
		if phone != "" {
			updates["phone"] = phone
			order.Phone = phone
		}
		if address != "" {
			updates["address"] = address
			order.Address = address
		}

		if len(update.Items) > 0 {
			if order.PaymentReference != nil {
				return utils.ConflictError(utils.ReasonPaymentInProgress, "Items cannot change after payment has been initiated", nil)
			}

			for _, change := range update.Items {
				if change.Quantity == nil {
					continue
				}
				q := tx.Model(&models.OrderItem{}).Where("order_id = ? AND product_id = ?", order.ID, change.ProductID)
				var err error
				if *change.Quantity <= 0 {
					err = q.Delete(&models.OrderItem{}).Error
				} else {
					err = q.Update("quantity", *change.Quantity).Error
				}
				if err != nil {
					return utils.InternalError("Failed to update order item", err)
				}
			}

			var items []models.OrderItem
			if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
				return utils.InternalError("Failed to load order items", err)
			}
			if len(items) == 0 {
				if err := tx.Delete(&order).Error; err != nil {
					return utils.InternalError("Failed to delete order", err)
				}
				utils.LogInfo("Order %d deleted by user %d: no items left", order.ID, userID)
				result = OrderUpdateResult{OrderID: order.ID, Deleted: true}
				return nil
			}

			order.Items = items
			itemsTotal := order.ItemsTotal()
			discount := decimal.Zero
			if order.CouponID != nil {
				var coupon models.Coupon
				if err := tx.First(&coupon, *order.CouponID).Error; err != nil {
					return utils.InternalError("Failed to load coupon", err)
				}
				discount = coupons.Discount(&coupon, itemsTotal)
			}
			order.DiscountAmount = discount
			order.TotalPrice = itemsTotal.Sub(discount)
			updates["discount_amount"] = order.DiscountAmount
			updates["total_price"] = order.TotalPrice
		}

		if len(updates) > 0 {
			if err := tx.Model(&order).Updates(updates).Error; err != nil {
				return utils.InternalError("Failed to update order", err)
			}
		}

		result = OrderUpdateResult{
			OrderID:        order.ID,
			Phone:          order.Phone,
			Address:        order.Address,
			DiscountAmount: order.DiscountAmount,
			TotalPrice:     order.TotalPrice,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Order %d updated by user %d", orderID, userID)
	return &result, nil
}
