// Package services holds the cart, checkout, order and settlement
// operations. Each runs its writes in one transaction and dispatches
// notifications only after commit.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Govind-619/storefront/inventory"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/utils"
	"gorm.io/gorm"
)

// dispatch loads the order owner and hands change to the dispatcher.
func dispatch(ctx context.Context, db *gorm.DB, d *notify.Dispatcher, change models.StatusChange) {
	if d == nil {
		return
	}
	var user models.User
	if err := db.WithContext(ctx).First(&user, change.UserID).Error; err != nil {
		utils.LogError("Failed to load user %d for order %d notification: %v", change.UserID, change.OrderID, err)
		return
	}
	d.Dispatch(change, user)
}

// orderLines converts order items into ledger lines.
func orderLines(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

// stockError maps a ledger shortfall to the conflict the caller sees.
func stockError(err error, reason string) error {
	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		return utils.ConflictError(reason,
			fmt.Sprintf("Insufficient stock for %s: only %d available", stockErr.ProductName, stockErr.Available), err)
	}
	if utils.IsAppError(err) {
		return err
	}
	return utils.InternalError("Failed to reserve stock", err)
}

func orderNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFoundError(utils.ReasonOrderNotFound, "Order not found", err)
	}
	return utils.InternalError("Failed to load order", err)
}
