package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Govind-619/storefront/coupons"
	"github.com/Govind-619/storefront/inventory"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutRequest is what the customer submits to place an order.
type CheckoutRequest struct {
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method"`
}

// OrderReceipt is returned after a successful checkout.
type OrderReceipt struct {
	OrderID        uint                 `json:"order_id"`
	Status         models.OrderStatus   `json:"status"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	Message        string               `json:"message"`
	ItemsTotal     decimal.Decimal      `json:"items_total"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TotalPrice     decimal.Decimal      `json:"total_price"`
}

// CheckoutService turns the active cart into an order.
type CheckoutService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
	now        func() time.Time
}

func NewCheckoutService(db *gorm.DB, dispatcher *notify.Dispatcher) *CheckoutService {
	return &CheckoutService{db: db, dispatcher: dispatcher, now: time.Now}
}

// Checkout places an order from the user's active cart. COD orders take
// stock immediately; online orders take it when payment settles. Nothing is
// persisted unless every step succeeds.
func (s *CheckoutService) Checkout(ctx context.Context, userID uint, req CheckoutRequest) (*OrderReceipt, error) {
	receipt, order, err := s.checkout(ctx, userID, req)

	method := string(receipt.PaymentMethod)
	if method == "" {
		method = "unknown"
	}
	utils.CheckoutTotal.WithLabelValues(method, utils.Result(err)).Inc()

	if err != nil {
		utils.LogError("Checkout failed for user %d: %v", userID, err)
		return nil, err
	}
	utils.LogInfo("Checkout: order %d placed by user %d, method %s, total %s", order.ID, userID, order.PaymentMethod, order.TotalPrice.StringFixed(2))
	dispatch(ctx, s.db, s.dispatcher, order.Created())
	return &receipt, nil
}

func (s *CheckoutService) checkout(ctx context.Context, userID uint, req CheckoutRequest) (OrderReceipt, *models.Order, error) {
	var receipt OrderReceipt
	var order models.Order

	method, methodOK := models.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	receipt.PaymentMethod = method
	phone := utils.NormalizePhone(req.Phone)
	address := utils.SanitizeString(req.Address)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND active = ?", userID, true).
			First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ValidationError(utils.ReasonEmptyCart, "Cart is empty", nil)
			}
			return utils.InternalError("Failed to load cart", err)
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cart.ID).Order("product_id ASC").Find(&items).Error; err != nil {
			return utils.InternalError("Failed to load cart items", err)
		}
		if len(items) == 0 {
			return utils.ValidationError(utils.ReasonEmptyCart, "Cart is empty", nil)
		}

		if errs := utils.ValidateContact(phone, address); len(errs) > 0 {
			if phone == "" || address == "" {
				return utils.ValidationError(utils.ReasonMissingContactInfo, "Phone and address are required", errs)
			}
			return utils.ValidationError(utils.ReasonInvalidRequest, errs.Error(), errs)
		}
		if !methodOK {
			return utils.ValidationError(utils.ReasonInvalidPaymentMethod, "Payment method must be cod or online", nil)
		}

		status := models.InitialStatus(method)
		orderItems := make([]models.OrderItem, 0, len(items))
		itemsTotal := decimal.Zero
		for _, item := range items {
			qty := item.Quantity
			if method == models.PaymentMethodOnline {
				// Capped to current stock; nothing is reserved until payment settles.
				if item.Product.Stock < qty {
					qty = item.Product.Stock
				}
				if qty <= 0 {
					return utils.ConflictError(utils.ReasonInsufficientStock,
						"Insufficient stock for "+item.Product.Name+": only 0 available", nil)
				}
			}
			unit := item.Product.FinalPrice()
			orderItems = append(orderItems, models.OrderItem{
				ProductID: item.ProductID,
				Quantity:  qty,
				Price:     unit,
			})
			itemsTotal = itemsTotal.Add(unit.Mul(decimal.NewFromInt(int64(qty))))
		}

		var coupon *models.Coupon
		if cart.CouponID != nil {
			var c models.Coupon
			err := tx.First(&c, *cart.CouponID).Error
			switch {
			case err == nil:
				if coupons.IsValid(&c, s.now()) {
					coupon = &c
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return utils.InternalError("Failed to load coupon", err)
			}
		}
		discount := decimal.Zero
		if coupon != nil {
			discount = coupons.Discount(coupon, itemsTotal)
		}

		order = models.Order{
			UserID:         userID,
			TotalPrice:     itemsTotal.Sub(discount),
			DiscountAmount: discount,
			Phone:          phone,
			Address:        address,
			Status:         status,
			PaymentMethod:  method,
			Items:          orderItems,
		}
		if coupon != nil {
			order.CouponID = &coupon.ID
		}
		if err := tx.Create(&order).Error; err != nil {
			return utils.InternalError("Failed to create order", err)
		}

		if method == models.PaymentMethodCOD {
			if err := inventory.Settle(tx, orderLines(order.Items)); err != nil {
				return stockError(err, utils.ReasonInsufficientStock)
			}
		}

		if coupon != nil {
			res := tx.Model(&models.Coupon{}).
				Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", coupon.ID).
				Update("usage_count", gorm.Expr("usage_count + ?", 1))
			if res.Error != nil {
				return utils.InternalError("Failed to record coupon usage", res.Error)
			}
			if res.RowsAffected == 0 {
				return utils.ConflictError(utils.ReasonCouponExhausted, "Coupon usage limit reached", nil)
			}
		}

		if err := tx.Model(&cart).Update("active", false).Error; err != nil {
			return utils.InternalError("Failed to close cart", err)
		}
		if err := tx.Create(&models.Cart{UserID: userID, Active: true}).Error; err != nil {
			return utils.InternalError("Failed to open a new cart", err)
		}

		receipt = OrderReceipt{
			OrderID:        order.ID,
			Status:         order.Status,
			PaymentMethod:  method,
			Message:        receiptMessage(order.Status),
			ItemsTotal:     itemsTotal,
			DiscountAmount: discount,
			TotalPrice:     order.TotalPrice,
		}
		return nil
	})
	if err != nil {
		return receipt, nil, err
	}
	return receipt, &order, nil
}

func receiptMessage(status models.OrderStatus) string {
	if status == models.OrderStatusPending {
		return "Order created. Payment required."
	}
	return "Order placed. Pay cash on delivery."
}
