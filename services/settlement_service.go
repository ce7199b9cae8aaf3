package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Govind-619/storefront/gateway"
	"github.com/Govind-619/storefront/inventory"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settlement sources, used as the metrics label.
const (
	SourceWebhook  = "webhook"
	SourceRedirect = "redirect"
	SourcePoll     = "poll"
	SourceFree     = "zero_total"
)

// PaymentInitiation is what the client needs to send the customer to pay.
type PaymentInitiation struct {
	OrderID         uint               `json:"order_id"`
	Status          models.OrderStatus `json:"status"`
	Provider        string             `json:"provider"`
	ExternalOrderID string             `json:"external_order_id,omitempty"`
	PaymentURL      string             `json:"payment_url,omitempty"`
	Params          map[string]string  `json:"params,omitempty"`
}

// SettlementService reconciles gateway payments with pending orders.
type SettlementService struct {
	db         *gorm.DB
	gw         gateway.Gateway
	dispatcher *notify.Dispatcher
	currency   string
}

func NewSettlementService(db *gorm.DB, gw gateway.Gateway, dispatcher *notify.Dispatcher, currency string) *SettlementService {
	return &SettlementService{db: db, gw: gw, dispatcher: dispatcher, currency: currency}
}

// Initiate opens a payment session for a pending order. The gateway is
// called before any row is locked; only the returned reference is stored.
func (s *SettlementService) Initiate(ctx context.Context, userID, orderID uint) (*PaymentInitiation, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("User").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		return nil, orderNotFound(err)
	}
	if order.Status != models.OrderStatusPending {
		return nil, utils.ConflictError(utils.ReasonOrderNotPending, "Order is not awaiting payment", nil)
	}

	if !order.TotalPrice.IsPositive() {
		settled, err := s.settle(ctx, SourceFree, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("id = ?", order.ID)
		}, "")
		if err != nil {
			return nil, err
		}
		return &PaymentInitiation{OrderID: settled.ID, Status: settled.Status, Provider: s.gw.Name()}, nil
	}

	req := gateway.PaymentRequest{
		OrderID:     order.ID,
		AmountCents: gateway.AmountCents(order.TotalPrice),
		Currency:    s.currency,
		Customer: gateway.Customer{
			Name:    order.User.Username,
			Email:   order.User.Email,
			Phone:   order.Phone,
			Address: order.Address,
		},
	}
	if order.PaymentReference != nil {
		req.ExistingReference = *order.PaymentReference
	}

	session, err := s.gw.CreateSession(ctx, req)
	if err != nil {
		return nil, utils.DependencyError("Payment gateway is unavailable", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("payment_reference", session.ExternalOrderID)
		if res.Error != nil {
			return utils.InternalError("Failed to store payment reference", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError(utils.ReasonOrderNotPending, "Order is not awaiting payment", nil)
		}

		var payment models.Payment
		return tx.Where(models.Payment{OrderID: order.ID}).
			Assign(map[string]interface{}{
				"provider":          s.gw.Name(),
				"external_order_id": session.ExternalOrderID,
				"amount":            order.TotalPrice,
				"status":            models.PaymentStatusPending,
			}).
			FirstOrCreate(&payment).Error
	})
	if err != nil {
		if !utils.IsAppError(err) {
			err = utils.InternalError("Failed to record payment", err)
		}
		return nil, err
	}

	utils.LogInfo("Payment initiated for order %d via %s, reference %s", order.ID, s.gw.Name(), session.ExternalOrderID)
	return &PaymentInitiation{
		OrderID:         order.ID,
		Status:          order.Status,
		Provider:        s.gw.Name(),
		ExternalOrderID: session.ExternalOrderID,
		PaymentURL:      session.PaymentURL,
		Params:          session.Params,
	}, nil
}

// WebhookSignature extracts the signature for the configured gateway.
func (s *SettlementService) WebhookSignature(header http.Header, query url.Values) string {
	return s.gw.WebhookSignature(header, query)
}

// HandleNotification verifies and applies a gateway push notification.
func (s *SettlementService) HandleNotification(ctx context.Context, body []byte, signature string) (*models.Order, error) {
	n, err := s.gw.VerifyWebhook(body, signature)
	if err != nil {
		return nil, s.rejected(SourceWebhook, err)
	}
	return s.apply(ctx, SourceWebhook, n)
}

// HandleRedirect verifies and applies the signed redirect the customer
// returns with.
func (s *SettlementService) HandleRedirect(ctx context.Context, query url.Values) (*models.Order, error) {
	n, err := s.gw.VerifyRedirect(query)
	if err != nil {
		return nil, s.rejected(SourceRedirect, err)
	}
	return s.apply(ctx, SourceRedirect, n)
}

// CheckStatus asks the gateway whether the external order is paid and
// settles it if so. An order already paid locally is reported without a
// remote call.
func (s *SettlementService) CheckStatus(ctx context.Context, externalOrderID string) (bool, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("payment_reference = ?", externalOrderID).First(&order).Error; err != nil {
		return false, orderNotFound(err)
	}
	if order.Status == models.OrderStatusPaid {
		return true, nil
	}

	n, err := s.gw.Inquire(ctx, externalOrderID)
	if err != nil {
		return false, utils.DependencyError("Payment gateway is unavailable", err)
	}
	n.ExternalOrderID = externalOrderID

	settled, err := s.apply(ctx, SourcePoll, n)
	if err != nil {
		return false, err
	}
	return settled.Status == models.OrderStatusPaid, nil
}

func (s *SettlementService) rejected(source string, err error) error {
	utils.SettlementTotal.WithLabelValues(source, "rejected").Inc()
	if errors.Is(err, gateway.ErrInvalidSignature) {
		utils.LogSecurity("Rejected %s %s callback: %v", s.gw.Name(), source, err)
		return utils.AuthenticityError("Invalid signature", err)
	}
	return utils.ValidationError(utils.ReasonInvalidRequest, "Invalid payment callback", err)
}

func (s *SettlementService) apply(ctx context.Context, source string, n *gateway.Notification) (*models.Order, error) {
	switch n.Status {
	case gateway.StatusSucceeded:
		return s.settle(ctx, source, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("payment_reference = ?", n.ExternalOrderID)
		}, n.TransactionID)
	case gateway.StatusFailed:
		return s.markFailed(ctx, n)
	default:
		var order models.Order
		if err := s.db.WithContext(ctx).Where("payment_reference = ?", n.ExternalOrderID).First(&order).Error; err != nil {
			return nil, orderNotFound(err)
		}
		return &order, nil
	}
}

// settle moves the order found by find from pending to paid and takes its
// stock. Replays against a paid order succeed without effect.
func (s *SettlementService) settle(ctx context.Context, source string, find func(*gorm.DB) *gorm.DB, transactionID string) (*models.Order, error) {
	var order models.Order
	var change *models.StatusChange

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(tx.Clauses(clause.Locking{Strength: "UPDATE"})).First(&order).Error; err != nil {
			return orderNotFound(err)
		}
		if order.Status == models.OrderStatusPaid {
			return nil
		}

		var err error
		change, err = order.TransitionTo(models.OrderStatusPaid)
		if err != nil {
			return utils.ConflictError(utils.ReasonInvalidTransition, "Order cannot be marked paid from "+string(order.Status), err)
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return utils.InternalError("Failed to load order items", err)
		}
		if err := inventory.Settle(tx, orderLines(items)); err != nil {
			utils.LogError("SETTLEMENT FAILED: order %d was paid but stock could not be reserved: %v", order.ID, err)
			return stockError(err, utils.ReasonSettlementFailed)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("status", models.OrderStatusPaid)
		if res.Error != nil {
			return utils.InternalError("Failed to mark order paid", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError(utils.ReasonInvalidTransition, "Order changed during settlement", nil)
		}

		reference := ""
		if order.PaymentReference != nil {
			reference = *order.PaymentReference
		}
		var payment models.Payment
		return tx.Where(models.Payment{OrderID: order.ID}).
			Attrs(map[string]interface{}{
				"provider":          s.gw.Name(),
				"external_order_id": reference,
				"amount":            order.TotalPrice,
			}).
			Assign(map[string]interface{}{
				"status":         models.PaymentStatusSuccess,
				"transaction_id": transactionID,
			}).
			FirstOrCreate(&payment).Error
	})

	switch {
	case err != nil:
		utils.SettlementTotal.WithLabelValues(source, utils.Result(err)).Inc()
		if !utils.IsAppError(err) {
			err = utils.InternalError("Failed to settle payment", err)
		}
		return nil, err
	case change == nil:
		utils.SettlementTotal.WithLabelValues(source, "replay").Inc()
		utils.LogInfo("Settlement: order %d already paid, %s ignored", order.ID, source)
		return &order, nil
	}

	utils.SettlementTotal.WithLabelValues(source, "success").Inc()
	utils.LogInfo("Settlement: order %d paid via %s", order.ID, source)
	dispatch(ctx, s.db, s.dispatcher, *change)
	return &order, nil
}

// markFailed records a declined payment. The order stays as it is so the
// customer can try again.
func (s *SettlementService) markFailed(ctx context.Context, n *gateway.Notification) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_reference = ?", n.ExternalOrderID).First(&order).Error; err != nil {
			return orderNotFound(err)
		}
		return tx.Model(&models.Payment{}).
			Where("order_id = ? AND status <> ?", order.ID, models.PaymentStatusSuccess).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusFailed,
				"transaction_id": n.TransactionID,
			}).Error
	})
	if err != nil {
		if !utils.IsAppError(err) {
			err = utils.InternalError("Failed to record payment failure", err)
		}
		return nil, err
	}
	utils.LogInfo("Payment for order %d declined (transaction %s)", order.ID, n.TransactionID)
	return &order, nil
}
