package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// DownloadInvoice generates and returns a PDF invoice for the order
func (h *Handlers) DownloadInvoice(c *gin.Context) {
	utils.LogInfo("Starting invoice download process")
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

	buf, err := renderInvoice(order, h.Currency)
	if err != nil {
		utils.RespondError(c, utils.InternalError("Failed to generate invoice", err))
		return
	}
	utils.LogInfo("PDF invoice generated successfully for order ID: %d", orderID)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%d.pdf", order.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func renderInvoice(order *models.Order, currency string) (*bytes.Buffer, error) {
	money := func(v decimal.Decimal) string {
		return v.StringFixed(2) + " " + currency
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, utils.AppName)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "INVOICE")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, "Order ID: "+strconv.Itoa(int(order.ID)))
	pdf.Cell(60, 8, "Order Date: "+order.CreatedAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(8)
	pdf.Cell(50, 8, "Payment Method: "+string(order.PaymentMethod))
	pdf.Cell(60, 8, "Status: "+string(order.Status))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "Billed To:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 8, order.User.Username)
	pdf.Ln(6)
	pdf.Cell(100, 8, order.User.Email)
	pdf.Ln(6)
	pdf.Cell(100, 8, "Phone: "+order.Phone)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "Shipping Address:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 6, order.Address, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(70, 8, "Product", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	for _, item := range order.Items {
		pdf.CellFormat(70, 8, item.Product.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, strconv.Itoa(item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, money(item.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, money(item.Total()), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(130, 8, "Subtotal:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(40, 8, money(order.ItemsTotal()), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	label := "Discount:"
	if order.Coupon != nil {
		label = "Discount (" + order.Coupon.Code + "):"
	}
	pdf.CellFormat(130, 8, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(40, 8, money(order.DiscountAmount), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(130, 10, "Grand Total:", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 10, money(order.TotalPrice), "", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 12)
	pdf.Cell(0, 10, "Thank you for shopping with "+utils.AppName+"!")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
