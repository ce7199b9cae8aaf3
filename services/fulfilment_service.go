package services

import (
	"context"
	"strings"

	"github.com/Govind-619/storefront/coupons"
	"github.com/Govind-619/storefront/inventory"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FulfilmentStatuses are the statuses an admin may move an order to. Paid is
// reached only through settlement.
var FulfilmentStatuses = []models.OrderStatus{
	models.OrderStatusShipped,
	models.OrderStatusDelivered,
	models.OrderStatusCancelled,
}

// FulfilmentService applies the admin side of the order lifecycle.
type FulfilmentService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
}

func NewFulfilmentService(db *gorm.DB, dispatcher *notify.Dispatcher) *FulfilmentService {
	return &FulfilmentService{db: db, dispatcher: dispatcher}
}

// ParseFulfilmentStatus accepts any case and surrounding blanks.
func ParseFulfilmentStatus(s string) (models.OrderStatus, bool) {
	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, allowed := range FulfilmentStatuses {
		if status == allowed {
			return status, true
		}
	}
	return "", false
}

// UpdateStatus moves the order along the state machine. Cancelling an order
// whose stock was already taken (cod or paid) puts the stock back. Asking
// for the current status changes nothing.
func (s *FulfilmentService) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	next, ok := ParseFulfilmentStatus(status)
	if !ok {
		return nil, utils.ValidationError(utils.ReasonInvalidRequest, "Status must be one of shipped, delivered, cancelled", nil)
	}

	var order models.Order
	var change *models.StatusChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return orderNotFound(err)
		}
		from := order.Status

		var err error
		change, err = order.TransitionTo(next)
		if err != nil {
			return utils.ConflictError(utils.ReasonInvalidTransition,
				"Order cannot move from "+string(from)+" to "+string(next), err)
		}
		if change == nil {
			return nil
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Update("status", next)
		if res.Error != nil {
			return utils.InternalError("Failed to update order status", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError(utils.ReasonInvalidTransition, "Order changed during the update", nil)
		}

		if next != models.OrderStatusCancelled {
			return nil
		}
		if coupons.RestoreUsageOnCancel && order.CouponID != nil {
			if err := tx.Model(&models.Coupon{}).
				Where("id = ? AND usage_count > 0", *order.CouponID).
				Update("usage_count", gorm.Expr("usage_count - 1")).Error; err != nil {
				return utils.InternalError("Failed to restore coupon usage", err)
			}
		}
		if from == models.OrderStatusPending {
			// Nothing was taken from stock yet; close the open payment.
			return tx.Model(&models.Payment{}).
				Where("order_id = ? AND status = ?", order.ID, models.PaymentStatusPending).
				Update("status", models.PaymentStatusFailed).Error
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return utils.InternalError("Failed to load order items", err)
		}
		if err := inventory.Restock(tx, orderLines(items)); err != nil {
			return utils.InternalError("Failed to restock cancelled order", err)
		}
		utils.LogDebug("Restocked %d lines of cancelled order %d", len(items), order.ID)
		return nil
	})
	if err != nil {
		if !utils.IsAppError(err) {
			err = utils.InternalError("Failed to update order status", err)
		}
		return nil, err
	}

	if change == nil {
		utils.LogInfo("Order %d already %s, nothing to do", order.ID, order.Status)
		return &order, nil
	}
	utils.LogInfo("Order %d moved from %s to %s", order.ID, change.From, change.To)
	dispatch(ctx, s.db, s.dispatcher, *change)
	return &order, nil
}
