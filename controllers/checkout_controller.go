package controllers

import (
	"github.com/Govind-619/storefront/services"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
)

// PlaceOrder places an order from the active cart. Retries carrying the same
// Idempotency-Key are answered by the idempotency middleware.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	utils.LogInfo("PlaceOrder called")
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid checkout request for user ID: %d: %v", userID, err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	receipt, err := h.Checkout.Checkout(c.Request.Context(), userID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, receipt.Message, receipt)
}
