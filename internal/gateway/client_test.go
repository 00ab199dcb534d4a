package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFields() SignedFields {
	return SignedFields{
		MerchantID: "12345",
		PosID:      "12345",
		SessionID:  "TG1234567890001-1",
		Amount:     50000,
		Currency:   "PLN",
		OrderID:    "987654321",
	}
}

func TestSignAndVerifySignature(t *testing.T) {
	c := NewClient(Config{CRCKey: "topsecret"}, zap.NewNop())

	f := testFields()
	sign := c.Sign(f)
	require.Len(t, sign, 64)

	assert.True(t, c.VerifySignature(f, sign))
	assert.True(t, c.VerifySignature(f, strings.ToUpper(sign)), "case of the hex digest must not matter")

	tampered := f
	tampered.Amount = 50001
	assert.False(t, c.VerifySignature(tampered, sign))

	other := NewClient(Config{CRCKey: "differentsecret"}, zap.NewNop())
	assert.False(t, other.VerifySignature(f, sign))
}

func TestRegisterTransaction(t *testing.T) {
	var got registerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"token":"abc123"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		MerchantID: "12345",
		PosID:      "12345",
		CRCKey:     "topsecret",
		BaseURL:    srv.URL,
		ReturnURL:  "https://shop.example/return",
	}, zap.NewNop())

	url, err := c.RegisterTransaction(context.Background(), RegisterParams{
		SessionID:   "TG1234567890001-1",
		Amount:      50000,
		Currency:    "PLN",
		Description: "Order TG1234567890001",
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/trnRequest/abc123", url)

	assert.Equal(t, "TG1234567890001-1", got.SessionID)
	assert.Equal(t, int64(50000), got.Amount)
	assert.Equal(t, "https://shop.example/return", got.ReturnURL)
	assert.NotEmpty(t, got.Sign)
}

func TestRegisterTransaction_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid merchant"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{CRCKey: "topsecret", BaseURL: srv.URL}, zap.NewNop())

	_, err := c.RegisterTransaction(context.Background(), RegisterParams{SessionID: "TG1-1", Amount: 100, Currency: "PLN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestVerifyTransaction_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/transaction/verify", r.URL.Path)

		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Sign)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"success"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{CRCKey: "topsecret", BaseURL: srv.URL}, zap.NewNop())

	res, err := c.VerifyTransaction(context.Background(), testFields())
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
}

func TestVerifyTransaction_DeclinedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"transaction declined"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{CRCKey: "topsecret", BaseURL: srv.URL}, zap.NewNop())

	res, err := c.VerifyTransaction(context.Background(), testFields())
	require.NoError(t, err, "a reachable provider saying no is a business outcome")
	assert.False(t, res.Succeeded())
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "transaction declined", res.Message)
}

func TestVerifyTransaction_TransportErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{CRCKey: "topsecret", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())

	res, err := c.VerifyTransaction(context.Background(), testFields())
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestVerifyResultSucceeded(t *testing.T) {
	assert.True(t, (&VerifyResult{Status: "SUCCESS"}).Succeeded())
	assert.False(t, (&VerifyResult{Status: "pending"}).Succeeded())

	var nilResult *VerifyResult
	assert.False(t, nilResult.Succeeded())
}
