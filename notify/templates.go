package notify

import (
	"fmt"

	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
)

const supportPhone = "+20123456789"

var customerTemplates = map[models.OrderStatus]string{
	models.OrderStatusPending: `Hello %[1]s,

Your order #%[2]d has been placed and is waiting for payment.
Total: %[3]s %[4]s

Thank you for shopping with us.
%[5]s`,

	models.OrderStatusCOD: `Hello %[1]s,

Thank you for your order #%[2]d.
Total: %[3]s %[4]s, cash on delivery.
You will get an email once the order is shipped.
Delivery fees are due even if the order is refused at the door.

Thank you for shopping with us.
%[5]s`,

	models.OrderStatusPaid: `Hello %[1]s,

Thank you for your payment for order #%[2]d.
Total: %[3]s %[4]s
You will get an email once the order is shipped.

Thank you for shopping with us.
%[5]s`,

	models.OrderStatusShipped: `Hello %[1]s,

Your order #%[2]d has been shipped and is on its way to you.
For any problems please contact us at ` + supportPhone + `.

Thank you for shopping with us.
%[5]s`,

	models.OrderStatusDelivered: `Hello %[1]s,

Your order #%[2]d has been delivered.
For any problems please contact us at ` + supportPhone + `.
We look forward to seeing you again!

%[5]s`,

	models.OrderStatusCancelled: `Hello %[1]s,

Your order #%[2]d has been cancelled.

Thank you for shopping with us.
%[5]s`,
}

// CustomerMessage renders the message the order owner gets for change.
func CustomerMessage(change models.StatusChange, username, currency string) (subject, body string, ok bool) {
	tmpl, ok := customerTemplates[change.To]
	if !ok {
		return "", "", false
	}
	subject = fmt.Sprintf("Order #%d Update", change.OrderID)
	body = fmt.Sprintf(tmpl, username, change.OrderID, change.Total.StringFixed(2), currency, utils.AppName)
	return subject, body, true
}

// AdminMessage renders the status change notice for the shop admin.
func AdminMessage(change models.StatusChange, username, currency string) (subject, body string) {
	subject = fmt.Sprintf("Order #%d Status Updated", change.OrderID)
	body = fmt.Sprintf("Order ID: %d\nCustomer: %s\nOld Status: %s\nNew Status: %s\nTotal: %s %s\n",
		change.OrderID, username, change.From, change.To, change.Total.StringFixed(2), currency)
	return subject, body
}
