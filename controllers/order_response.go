package controllers

import (
	"time"

	"github.com/Govind-619/storefront/models"
	"github.com/shopspring/decimal"
)

type OrderItemResponse struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

type OrderSummaryResponse struct {
	ID            uint                 `json:"id"`
	Status        models.OrderStatus   `json:"status"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	ItemCount     int                  `json:"item_count"`
	CreatedAt     time.Time            `json:"created_at"`
}

type OrderDetailsResponse struct {
	ID               uint                 `json:"id"`
	Status           models.OrderStatus   `json:"status"`
	PaymentMethod    models.PaymentMethod `json:"payment_method"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	Phone            string               `json:"phone"`
	Address          string               `json:"address"`
	CouponCode       string               `json:"coupon_code,omitempty"`
	ItemsTotal       decimal.Decimal      `json:"items_total"`
	DiscountAmount   decimal.Decimal      `json:"discount_amount"`
	TotalPrice       decimal.Decimal      `json:"total_price"`
	Items            []OrderItemResponse  `json:"items"`
	CreatedAt        time.Time            `json:"created_at"`
}

func orderSummary(order models.Order) OrderSummaryResponse {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return OrderSummaryResponse{
		ID:            order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalPrice:    order.TotalPrice,
		ItemCount:     count,
		CreatedAt:     order.CreatedAt,
	}
}

func orderDetails(order *models.Order) OrderDetailsResponse {
	resp := OrderDetailsResponse{
		ID:             order.ID,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		Phone:          order.Phone,
		Address:        order.Address,
		ItemsTotal:     order.ItemsTotal(),
		DiscountAmount: order.DiscountAmount,
		TotalPrice:     order.TotalPrice,
		Items:          make([]OrderItemResponse, 0, len(order.Items)),
		CreatedAt:      order.CreatedAt,
	}
	if order.PaymentReference != nil {
		resp.PaymentReference = *order.PaymentReference
	}
	if order.Coupon != nil {
		resp.CouponCode = order.Coupon.Code
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Total:     item.Total(),
		})
	}
	return resp
}
