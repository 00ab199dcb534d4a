package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type Config struct {
	MerchantID string
	PosID      string
	CRCKey     string // shared secret used to sign webhook fields
	APIKey     string
	BaseURL    string // provider REST API base, e.g. https://sandbox.gateway.example/api/v1
	ReturnURL  string
	Timeout    time.Duration // bound on register/verify calls
}

// SignedFields is the canonical set of webhook fields covered by the
// signature and echoed back on the authoritative verify call.
type SignedFields struct {
	MerchantID string
	PosID      string
	SessionID  string
	Amount     int64
	Currency   string
	OrderID    string // provider-side transaction id
}

type RegisterParams struct {
	SessionID   string
	Amount      int64
	Currency    string
	Description string
}

type VerifyResult struct {
	Status  string
	Message string
}

func (r *VerifyResult) Succeeded() bool {
	return r != nil && strings.EqualFold(r.Status, "success")
}

// Client talks to the payment provider. It never touches the store:
// verification is a pure question, reconciliation happens elsewhere.
type Client interface {
	Sign(f SignedFields) string
	VerifySignature(f SignedFields, sign string) bool
	RegisterTransaction(ctx context.Context, p RegisterParams) (string, error)
	VerifyTransaction(ctx context.Context, f SignedFields) (*VerifyResult, error)
}

type client struct {
	cfg    Config
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		rc.SetBasicAuth(cfg.PosID, cfg.APIKey)
	}
	return &client{cfg: cfg, http: rc, logger: logger}
}

func canonical(f SignedFields) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%s",
		f.MerchantID, f.PosID, f.SessionID, f.Amount, f.Currency, f.OrderID)
}

func (c *client) Sign(f SignedFields) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.CRCKey))
	mac.Write([]byte(canonical(f)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is a fast local check only. Providers are known to
// vary signature formats across environments, so a mismatch is surfaced
// to the caller as a boolean and must not block processing on its own;
// the remote verify call is the authoritative gate.
func (c *client) VerifySignature(f SignedFields, sign string) bool {
	want := c.Sign(f)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(sign)))
}

type registerRequest struct {
	MerchantID  string `json:"merchantId"`
	PosID       string `json:"posId"`
	SessionID   string `json:"sessionId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	ReturnURL   string `json:"urlReturn"`
	Sign        string `json:"sign"`
}

type registerResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
	Error string `json:"error"`
}

// RegisterTransaction opens a transaction at the provider and returns
// the URL the customer is redirected to.
func (c *client) RegisterTransaction(ctx context.Context, p RegisterParams) (string, error) {
	sign := c.Sign(SignedFields{
		MerchantID: c.cfg.MerchantID,
		PosID:      c.cfg.PosID,
		SessionID:  p.SessionID,
		Amount:     p.Amount,
		Currency:   p.Currency,
	})

	var out registerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(registerRequest{
			MerchantID:  c.cfg.MerchantID,
			PosID:       c.cfg.PosID,
			SessionID:   p.SessionID,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Description: p.Description,
			ReturnURL:   c.cfg.ReturnURL,
			Sign:        sign,
		}).
		SetResult(&out).
		Post("/transaction/register")
	if err != nil {
		return "", fmt.Errorf("gateway register: %w", err)
	}
	if resp.IsError() || out.Data.Token == "" {
		return "", fmt.Errorf("gateway register: status %d: %s", resp.StatusCode(), out.Error)
	}

	return fmt.Sprintf("%s/trnRequest/%s", strings.TrimRight(c.cfg.BaseURL, "/"), out.Data.Token), nil
}

type verifyRequest struct {
	MerchantID string `json:"merchantId"`
	PosID      string `json:"posId"`
	SessionID  string `json:"sessionId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	OrderID    string `json:"orderId"`
	Sign       string `json:"sign"`
}

type verifyResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
	Error string `json:"error"`
}

// VerifyTransaction asks the provider whether the transaction truly
// succeeded server-side. A reachable provider answering anything other
// than success is a business outcome; a transport error or timeout is
// an infrastructure fault and is returned as err so the caller can let
// the provider retry the webhook later.
func (c *client) VerifyTransaction(ctx context.Context, f SignedFields) (*VerifyResult, error) {
	var out verifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(verifyRequest{
			MerchantID: f.MerchantID,
			PosID:      f.PosID,
			SessionID:  f.SessionID,
			Amount:     f.Amount,
			Currency:   f.Currency,
			OrderID:    f.OrderID,
			Sign:       c.Sign(f),
		}).
		SetResult(&out).
		SetError(&out).
		Put("/transaction/verify")
	if err != nil {
		return nil, fmt.Errorf("gateway verify: %w", err)
	}

	status := out.Data.Status
	message := out.Data.Message
	if status == "" {
		if resp.IsError() {
			status = "error"
			if message == "" {
				message = out.Error
			}
		} else {
			status = "unknown"
		}
	}

	c.logger.Debug("gateway verify response",
		zap.String("session_id", f.SessionID),
		zap.Int("http_status", resp.StatusCode()),
		zap.String("status", status))

	return &VerifyResult{Status: status, Message: message}, nil
}
