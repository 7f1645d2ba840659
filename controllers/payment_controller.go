package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/services"
)

// PaymentAPI covers QR generation and webhook reconciliation.
type PaymentAPI interface {
	GenerateQR(ctx context.Context, orderID primitive.ObjectID) (*services.QRResult, error)
	Reconcile(ctx context.Context, event models.SepayWebhookEvent) (services.ReconciliationResult, error)
}

// OrderStatusAPI exposes the polling view the payment page renders.
type OrderStatusAPI interface {
	GetStatus(ctx context.Context, orderID primitive.ObjectID) (*models.OrderStatusView, error)
}

type PaymentController struct {
	payments   PaymentAPI
	orders     OrderStatusAPI
	webhookKey string
}

// NewPaymentController builds the SePay endpoints. webhookKey may be empty,
// in which case the webhook is accepted without authentication.
func NewPaymentController(payments PaymentAPI, orders OrderStatusAPI, webhookKey string) *PaymentController {
	return &PaymentController{payments: payments, orders: orders, webhookKey: webhookKey}
}

type generateQRRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// GenerateQR creates (or replays) the payment request for an order.
func (pc *PaymentController) GenerateQR(c *gin.Context) {
	var req generateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid orderId"})
		return
	}

	result, err := pc.payments.GenerateQR(c, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// OrderStatus is the polling endpoint the payment page hits while waiting
// for the bank transfer to land.
func (pc *PaymentController) OrderStatus(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid orderId"})
		return
	}

	status, err := pc.orders.GetStatus(c, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Webhook ingests SePay transfer notifications. The provider retries on any
// non-200, so every business outcome acknowledges with 200; only an
// infrastructure fault (or a rejected key) breaks that contract.
func (pc *PaymentController) Webhook(c *gin.Context) {
	if !pc.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid api key"})
		return
	}

	var event models.SepayWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		zap.L().Warn("Unparseable webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": "BAD PAYLOAD"})
		return
	}

	result, err := pc.payments.Reconcile(c, event)
	if err != nil {
		zap.L().Error("Webhook reconciliation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
		return
	}

	switch result.Outcome {
	case services.ReconcileUpdated, services.ReconcileAlreadyPaid:
		c.JSON(http.StatusOK, gin.H{"ok": true, "updated": true, "orderId": result.OrderID})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": result.Reason})
	}
}

// authorized checks the webhook key against the headers SePay can be
// configured to send. An unconfigured key disables the check.
func (pc *PaymentController) authorized(c *gin.Context) bool {
	if pc.webhookKey == "" {
		return true
	}
	for _, h := range []string{"x-api-key", "api_key", "api-key"} {
		if c.GetHeader(h) == pc.webhookKey {
			return true
		}
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == pc.webhookKey {
		return true
	}
	// SePay's dashboard labels the scheme "Apikey".
	if strings.HasPrefix(auth, "Apikey ") && strings.TrimPrefix(auth, "Apikey ") == pc.webhookKey {
		return true
	}
	return false
}
