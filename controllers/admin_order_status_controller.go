package controllers

import (
	"github.com/Govind-619/storefront/middleware"
	"github.com/Govind-619/storefront/services"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
)

// AdminUpdateOrderStatus moves an order to shipped, delivered or cancelled.
func (h *Handlers) AdminUpdateOrderStatus(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		utils.LogError("Admin not found in context")
		utils.Unauthorized(c, "Admin not found in context")
		return
	}

	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid status in request: %v", err)
		utils.BadRequest(c, "Status is required", gin.H{"valid_statuses": services.FulfilmentStatuses})
		return
	}
	utils.LogDebug("Admin %d requested order %d status %s", admin.ID, orderID, req.Status)

	order, err := h.Fulfilment.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Order status updated successfully", gin.H{
		"order_id": order.ID,
		"status":   order.Status,
	})
}
