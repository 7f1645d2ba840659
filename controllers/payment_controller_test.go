package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kriscao123/freshfood-backend/controllers"
	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
	"github.com/kriscao123/freshfood-backend/services"
)

// ---- concrete mocks ----

type mockPaymentAPI struct {
	qr        *services.QRResult
	qrErr     error
	result    services.ReconciliationResult
	recErr    error
	lastEvent models.SepayWebhookEvent
}

func (m *mockPaymentAPI) GenerateQR(ctx context.Context, orderID primitive.ObjectID) (*services.QRResult, error) {
	if m.qrErr != nil {
		return nil, m.qrErr
	}
	return m.qr, nil
}

func (m *mockPaymentAPI) Reconcile(ctx context.Context, event models.SepayWebhookEvent) (services.ReconciliationResult, error) {
	m.lastEvent = event
	if m.recErr != nil {
		return services.ReconciliationResult{}, m.recErr
	}
	return m.result, nil
}

type mockStatusAPI struct {
	status *models.OrderStatusView
	err    error
}

func (m *mockStatusAPI) GetStatus(ctx context.Context, orderID primitive.ObjectID) (*models.OrderStatusView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

// ---- helpers ----

func setupPaymentRouter(payments controllers.PaymentAPI, orders controllers.OrderStatusAPI, webhookKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	c := controllers.NewPaymentController(payments, orders, webhookKey)

	g := r.Group("/api/sepay")
	g.POST("/generate-qr", c.GenerateQR)
	g.GET("/order-status/:orderId", c.OrderStatus)
	g.POST("/webhook", c.Webhook)
	return r
}

func postWebhook(r *gin.Engine, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch v := payload.(type) {
	case string:
		buf.WriteString(v)
	default:
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/sepay/webhook", &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, val := range headers {
		req.Header.Set(k, val)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- generate-qr ----

func TestGenerateQR_Success(t *testing.T) {
	orderID := primitive.NewObjectID()
	svc := &mockPaymentAPI{qr: &services.QRResult{
		OrderID:     orderID.Hex(),
		PaymentCode: "SEVQRAB12CD",
		Amount:      150000,
		QRUrl:       "https://qr.sepay.vn/img?acc=123&bank=MB&amount=150000&des=SEVQRAB12CD",
	}}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/sepay/generate-qr", gin.H{"orderId": orderID.Hex()})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp services.QRResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SEVQRAB12CD", resp.PaymentCode)
	assert.Equal(t, int64(150000), resp.Amount)
}

func TestGenerateQR_MissingOrderID(t *testing.T) {
	r := setupPaymentRouter(&mockPaymentAPI{}, &mockStatusAPI{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/sepay/generate-qr", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateQR_BadOrderID(t *testing.T) {
	r := setupPaymentRouter(&mockPaymentAPI{}, &mockStatusAPI{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/sepay/generate-qr", gin.H{"orderId": "zzz"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateQR_OrderNotFound(t *testing.T) {
	svc := &mockPaymentAPI{qrErr: repository.ErrOrderNotFound}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/sepay/generate-qr", gin.H{"orderId": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateQR_ZeroAmount(t *testing.T) {
	svc := &mockPaymentAPI{qrErr: services.ErrInvalidAmount}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/sepay/generate-qr", gin.H{"orderId": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- order-status ----

func TestOrderStatus_Success(t *testing.T) {
	orderID := primitive.NewObjectID()
	svc := &mockStatusAPI{status: &models.OrderStatusView{
		OrderID:       orderID.Hex(),
		OrderStatus:   models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPaid,
		TotalAmount:   150000,
	}}
	r := setupPaymentRouter(&mockPaymentAPI{}, svc, "")

	req := httptest.NewRequest(http.MethodGet, "/api/sepay/order-status/"+orderID.Hex(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.OrderStatusView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.PaymentStatusPaid, resp.PaymentStatus)
}

func TestOrderStatus_NotFound(t *testing.T) {
	svc := &mockStatusAPI{err: repository.ErrOrderNotFound}
	r := setupPaymentRouter(&mockPaymentAPI{}, svc, "")

	req := httptest.NewRequest(http.MethodGet, "/api/sepay/order-status/"+primitive.NewObjectID().Hex(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderStatus_BadID(t *testing.T) {
	r := setupPaymentRouter(&mockPaymentAPI{}, &mockStatusAPI{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/sepay/order-status/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- webhook ----

func TestWebhook_Updated(t *testing.T) {
	orderID := primitive.NewObjectID()
	svc := &mockPaymentAPI{result: services.ReconciliationResult{
		Outcome: services.ReconcileUpdated,
		OrderID: orderID.Hex(),
	}}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := postWebhook(r, gin.H{
		"id":             int64(92704),
		"transferAmount": int64(150000),
		"content":        "CK tu NGUYEN VAN A SEVQRAB12CD",
		"referenceCode":  "FT25061123456",
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, true, resp["updated"])
	assert.Equal(t, orderID.Hex(), resp["orderId"])
	assert.Equal(t, int64(150000), svc.lastEvent.TransferAmount)
}

func TestWebhook_AlreadyPaidStillAcknowledges(t *testing.T) {
	orderID := primitive.NewObjectID()
	svc := &mockPaymentAPI{result: services.ReconciliationResult{
		Outcome: services.ReconcileAlreadyPaid,
		OrderID: orderID.Hex(),
	}}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := postWebhook(r, gin.H{"content": "SEVQRAB12CD"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["updated"])
}

func TestWebhook_IgnoredWithReason(t *testing.T) {
	svc := &mockPaymentAPI{result: services.ReconciliationResult{
		Outcome: services.ReconcileIgnored,
		Reason:  services.ReasonNoCodeFound,
	}}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := postWebhook(r, gin.H{"content": "thanh toan tien dien"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, services.ReasonNoCodeFound, resp["ignored"])
	assert.NotContains(t, resp, "updated")
}

func TestWebhook_BadJSONStillAcknowledges(t *testing.T) {
	r := setupPaymentRouter(&mockPaymentAPI{}, &mockStatusAPI{}, "")

	w := postWebhook(r, "{broken", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "BAD PAYLOAD", resp["ignored"])
}

func TestWebhook_InfrastructureFault500(t *testing.T) {
	svc := &mockPaymentAPI{recErr: errors.New("mongo: connection reset")}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := postWebhook(r, gin.H{"content": "SEVQRAB12CD"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_KeyUnconfiguredAcceptsAll(t *testing.T) {
	svc := &mockPaymentAPI{result: services.ReconciliationResult{
		Outcome: services.ReconcileIgnored, Reason: services.ReasonNoCodeFound,
	}}
	r := setupPaymentRouter(svc, &mockStatusAPI{}, "")

	w := postWebhook(r, gin.H{"content": "x"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_KeyAcceptedVariants(t *testing.T) {
	for _, headers := range []map[string]string{
		{"x-api-key": "secret"},
		{"api_key": "secret"},
		{"api-key": "secret"},
		{"Authorization": "Bearer secret"},
		{"Authorization": "Apikey secret"},
	} {
		svc := &mockPaymentAPI{result: services.ReconciliationResult{
			Outcome: services.ReconcileIgnored, Reason: services.ReasonNoCodeFound,
		}}
		r := setupPaymentRouter(svc, &mockStatusAPI{}, "secret")

		w := postWebhook(r, gin.H{"content": "x"}, headers)
		assert.Equal(t, http.StatusOK, w.Code, "headers %v", headers)
	}
}

func TestWebhook_KeyRejected(t *testing.T) {
	r := setupPaymentRouter(&mockPaymentAPI{}, &mockStatusAPI{}, "secret")

	w := postWebhook(r, gin.H{"content": "x"}, map[string]string{"x-api-key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
