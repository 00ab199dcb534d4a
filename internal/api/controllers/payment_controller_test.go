package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgo/internal/models/db_models"
	"tripgo/internal/services"
	"tripgo/pkg/utils"
)

type fakePaymentService struct {
	lastWebhook *services.GatewayWebhook
	result      *services.ReconcileResult
	err         error
}

func (f *fakePaymentService) InitiatePayment(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID, provider db_models.PaymentProvider, forceNew bool) (*services.InitiatePaymentResult, error) {
	return nil, f.err
}

func (f *fakePaymentService) ConfirmFromWebhook(ctx context.Context, wh services.GatewayWebhook) (*services.ReconcileResult, error) {
	f.lastWebhook = &wh
	return f.result, f.err
}

func webhookRouter(svc services.PaymentServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payments/webhook", NewPaymentController(svc).HandleWebhook)
	return r
}

func TestHandleWebhook_JSONBody(t *testing.T) {
	svc := &fakePaymentService{result: &services.ReconcileResult{Outcome: services.OutcomePaid}}
	r := webhookRouter(svc)

	body := map[string]interface{}{
		"merchantId": "12345",
		"posId":      "12345",
		"sessionId":  "TG1234567890001-1",
		"amount":     50000,
		"currency":   "PLN",
		"orderId":    "987654321",
		"sign":       "deadbeef",
	}
	raw, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"paid"`)

	require.NotNil(t, svc.lastWebhook)
	assert.Equal(t, "TG1234567890001-1", svc.lastWebhook.SessionID)
	assert.Equal(t, int64(50000), svc.lastWebhook.Amount)
	assert.Equal(t, "987654321", svc.lastWebhook.OrderID)
}

func TestHandleWebhook_FormBodyWithPrefixedFields(t *testing.T) {
	svc := &fakePaymentService{result: &services.ReconcileResult{Outcome: services.OutcomeAlreadyPaid}}
	r := webhookRouter(svc)

	form := url.Values{}
	form.Set("p24_merchant_id", "12345")
	form.Set("p24_pos_id", "12345")
	form.Set("p24_session_id", "TG1234567890001-2")
	form.Set("p24_amount", "50000")
	form.Set("p24_currency", "PLN")
	form.Set("p24_order_id", "987654321")
	form.Set("p24_sign", "deadbeef")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"already_paid"`)

	require.NotNil(t, svc.lastWebhook)
	assert.Equal(t, "TG1234567890001-2", svc.lastWebhook.SessionID)
}

func TestHandleWebhook_MissingFields(t *testing.T) {
	svc := &fakePaymentService{}
	r := webhookRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{"sessionId":"TG1-1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required webhook fields")
	assert.Nil(t, svc.lastWebhook, "service must not be called for malformed webhooks")
}

func TestHandleWebhook_FractionalAmountRejected(t *testing.T) {
	svc := &fakePaymentService{}
	r := webhookRouter(svc)

	body := `{"merchantId":"1","posId":"1","sessionId":"TG1-1","amount":500.75,"currency":"PLN","orderId":"9","sign":"s"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "non-integer")
	assert.Nil(t, svc.lastWebhook, "fractional amounts must never be truncated and forwarded")
}

func TestHandleWebhook_InvalidAmount(t *testing.T) {
	svc := &fakePaymentService{}
	r := webhookRouter(svc)

	body := `{"merchantId":"1","posId":"1","sessionId":"TG1-1","amount":"fifty","currency":"PLN","orderId":"9","sign":"s"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid amount")
}

func TestHandleWebhook_GatewayUnavailable(t *testing.T) {
	svc := &fakePaymentService{err: utils.ErrGatewayUnavailable}
	r := webhookRouter(svc)

	body := `{"merchantId":"1","posId":"1","sessionId":"TG1-1","amount":"100","currency":"PLN","orderId":"9","sign":"s"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code,
		"infrastructure faults must be 5xx so the provider redelivers")
}
