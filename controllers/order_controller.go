package controllers

import (
	"github.com/Govind-619/storefront/services"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
)

// ListOrders returns the user's orders, newest first.
func (h *Handlers) ListOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page := utils.NewPagination(c)

	orders, total, err := h.Orders.List(c.Request.Context(), userID, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	resp := make([]OrderSummaryResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, orderSummary(order))
	}
	utils.SuccessWithPagination(c, "Orders retrieved successfully", resp, total, page.Page, page.Limit)
}

// GetOrderDetails returns one of the user's orders with its lines.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), userID, orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Order details retrieved successfully", orderDetails(order))
}

// UpdateOrder edits the contact details and quantities of a pending order.
func (h *Handlers) UpdateOrder(c *gin.Context) {
	utils.LogInfo("UpdateOrder called")
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req services.OrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	result, err := h.Orders.UpdateOrder(c.Request.Context(), userID, orderID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if result.Deleted {
		utils.Success(c, "Order deleted because it has no items left", result)
		return
	}
	utils.Success(c, "Order updated successfully", result)
}
