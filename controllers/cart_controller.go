package controllers

import (
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
)

// GetCart returns the active cart priced at current prices.
func (h *Handlers) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	summary, err := h.Cart.Summary(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Cart retrieved successfully", summary)
}

// AddToCart adds a quantity of a product, merging with an existing line.
func (h *Handlers) AddToCart(c *gin.Context) {
	utils.LogInfo("AddToCart called")
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid request format for user ID: %d: %v", userID, err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	summary, err := h.Cart.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.LogInfo("Product %d added to cart for user ID: %d", req.ProductID, userID)
	utils.Success(c, "Item added to cart", summary)
}

// UpdateCartItem sets the quantity of a line; zero removes it.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}

	var req struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "quantity is required", err.Error())
		return
	}

	summary, err := h.Cart.SetQuantity(c.Request.Context(), userID, productID, *req.Quantity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Cart updated", summary)
}

// RemoveFromCart deletes a line from the cart.
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}

	summary, err := h.Cart.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Item removed from cart", summary)
}

// ApplyCoupon attaches a valid coupon to the cart.
func (h *Handlers) ApplyCoupon(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Coupon code is required", err.Error())
		return
	}

	summary, err := h.Cart.ApplyCoupon(c.Request.Context(), userID, req.Code)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.LogInfo("Coupon %s applied for user ID: %d", summary.CouponCode, userID)
	utils.Success(c, "Coupon applied successfully", summary)
}

// RemoveCoupon detaches the cart's coupon.
func (h *Handlers) RemoveCoupon(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	summary, err := h.Cart.ClearCoupon(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Coupon removed", summary)
}
