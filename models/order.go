package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of fulfilment states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCOD       OrderStatus = "cod"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod chosen at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// ParsePaymentMethod normalises user input. Anything other than "online"
// and "cod" is rejected.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentMethodCOD, PaymentMethodOnline:
		return PaymentMethod(s), true
	}
	return "", false
}

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid order status transition")

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusCOD:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus is the status an order is created in for the given method.
func InitialStatus(method PaymentMethod) OrderStatus {
	if method == PaymentMethodOnline {
		return OrderStatusPending
	}
	return OrderStatusCOD
}

// StatusChange describes a committed (or about to be committed) transition.
// From is empty for the creation transition.
type StatusChange struct {
	OrderID uint
	UserID  uint
	From    OrderStatus
	To      OrderStatus
	Total   decimal.Decimal
	At      time.Time
}

// Created reports whether the change is the order's creation.
func (s StatusChange) Created() bool {
	return s.From == ""
}

type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	User             User            `gorm:"foreignKey:UserID" json:"-"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CouponID         *uint           `json:"coupon_id"`
	Coupon           *Coupon         `gorm:"foreignKey:CouponID" json:"-"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	Phone            string          `gorm:"size:20;not null" json:"phone"`
	Address          string          `gorm:"type:text;not null" json:"address"`
	Status           OrderStatus     `gorm:"size:20;not null;index" json:"status"`
	PaymentMethod    PaymentMethod   `gorm:"size:10;not null" json:"payment_method"`
	PaymentReference *string         `gorm:"uniqueIndex" json:"payment_reference,omitempty"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Created returns the creation event for a freshly inserted order.
func (o *Order) Created() StatusChange {
	return StatusChange{OrderID: o.ID, UserID: o.UserID, To: o.Status, Total: o.TotalPrice, At: o.CreatedAt}
}

// TransitionTo moves the order to next. Re-applying the current status is a
// no-op and returns a nil change; any edge outside the table is an error.
func (o *Order) TransitionTo(next OrderStatus) (*StatusChange, error) {
	if o.Status == next {
		return nil, nil
	}
	if !CanTransition(o.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	change := &StatusChange{
		OrderID: o.ID,
		UserID:  o.UserID,
		From:    o.Status,
		To:      next,
		Total:   o.TotalPrice,
		At:      time.Now(),
	}
	o.Status = next
	return change, nil
}

// ItemsTotal sums captured unit prices times quantities.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// Total is the captured unit price times the quantity.
func (i OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
