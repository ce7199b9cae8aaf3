package controllers

import (
	"strconv"

	"github.com/Govind-619/storefront/middleware"
	"github.com/Govind-619/storefront/services"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
)

// Handlers binds the HTTP surface to the services.
type Handlers struct {
	Cart       *services.CartService
	Checkout   *services.CheckoutService
	Orders     *services.OrderService
	Settlement *services.SettlementService
	Fulfilment *services.FulfilmentService
	Currency   string
}

// currentUserID returns the authenticated user's id, writing a 401 when the auth
// middleware did not run.
func currentUserID(c *gin.Context) (uint, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "Unauthorized")
		return 0, false
	}
	return user.ID, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.LogError("Invalid %s parameter %q", name, c.Param(name))
		utils.BadRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}
