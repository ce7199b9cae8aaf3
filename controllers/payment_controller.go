package controllers

import (
	"io"
	"net/http"

	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds the notification body read before verification.
const maxWebhookBody = 1 << 20

// InitiatePayment opens a gateway session for a pending online order.
func (h *Handlers) InitiatePayment(c *gin.Context) {
	utils.LogInfo("InitiatePayment called")
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	initiation, err := h.Settlement.Initiate(c.Request.Context(), userID, orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if initiation.PaymentURL == "" {
		utils.Success(c, "Order settled, nothing to pay", initiation)
		return
	}
	utils.Success(c, "Payment session created", initiation)
}

// PaymentStatus polls the gateway for an order whose notification has not
// arrived yet.
func (h *Handlers) PaymentStatus(c *gin.Context) {
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
	if order.PaymentReference == nil {
		utils.Success(c, "Payment not initiated", gin.H{"order_id": order.ID, "status": order.Status, "paid": false})
		return
	}

	paid, err := h.Settlement.CheckStatus(c.Request.Context(), *order.PaymentReference)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	status := order.Status
	if paid {
		status = models.OrderStatusPaid
	}
	utils.Success(c, "Payment status retrieved", gin.H{"order_id": order.ID, "status": status, "paid": paid})
}

// PaymentWebhook receives server-to-server notifications from the gateway.
// The raw body is verified before anything is parsed.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequest(c, "Unreadable body", nil)
		return
	}
	signature := h.Settlement.WebhookSignature(c.Request.Header, c.Request.URL.Query())

	order, err := h.Settlement.HandleNotification(c.Request.Context(), body, signature)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "order_id": order.ID, "order_status": order.Status})
}

// PaymentCallback handles the signed redirect the customer's browser returns
// with after paying.
func (h *Handlers) PaymentCallback(c *gin.Context) {
	order, err := h.Settlement.HandleRedirect(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Payment processed", gin.H{"order_id": order.ID, "status": order.Status})
}
