package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status constants
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment records the gateway side of an order. Order.Status stays the
// source of truth; this row is kept for reconciliation.
type Payment struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	OrderID         uint            `json:"order_id" gorm:"uniqueIndex;not null"`
	Provider        string          `json:"provider" gorm:"size:50;not null"`
	ExternalOrderID string          `json:"external_order_id" gorm:"size:255;index"`
	TransactionID   string          `json:"transaction_id" gorm:"size:255"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Status          string          `json:"status" gorm:"size:20;not null"` // pending, success, failed
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
