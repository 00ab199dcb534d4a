package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripgo/internal/models/db_models"
	"tripgo/internal/models/request_models"
	"tripgo/internal/models/response_models"
	"tripgo/internal/services"
	"tripgo/pkg/utils"
)

type PaymentController struct {
	paymentService services.PaymentServiceInterface
}

func NewPaymentController(paymentService services.PaymentServiceInterface) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

// InitiatePayment godoc
// @Summary Start or resume a payment attempt for an order
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePaymentRequest true "Initiate Payment Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/initiate [post]
func (p *PaymentController) InitiatePayment(c *gin.Context) {
	var request request_models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	result, err := p.paymentService.InitiatePayment(
		c.Request.Context(), accountID, request.OrderID,
		db_models.PaymentProvider(request.Provider), request.ForceNew)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.InitiatePaymentResponse{
		PaymentID:        result.Payment.ID,
		Status:           string(result.Payment.Status),
		RedirectURL:      result.RedirectURL,
		InstructionsSent: result.InstructionsSent,
	}, "Payment initiated")
}

// HandleWebhook is the provider's server-to-server notification. Any
// definitively resolved outcome acks 200 so the provider stops
// redelivering; 5xx is reserved for infrastructure faults where a retry
// is wanted.
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	wh, err := bindWebhook(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := p.paymentService.ConfirmFromWebhook(c.Request.Context(), *wh)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "outcome": string(result.Outcome)})
}

// Providers are inconsistent about webhook field naming across
// environments; each logical field is accepted under its bare,
// snake_case and prefixed spelling.
var webhookFieldAliases = map[string][]string{
	"merchantId": {"merchantId", "merchant_id", "p24_merchant_id"},
	"posId":      {"posId", "pos_id", "p24_pos_id"},
	"sessionId":  {"sessionId", "session_id", "p24_session_id"},
	"amount":     {"amount", "p24_amount"},
	"currency":   {"currency", "p24_currency"},
	"orderId":    {"orderId", "order_id", "p24_order_id"},
	"sign":       {"sign", "signature", "p24_sign"},
}

func bindWebhook(c *gin.Context) (*services.GatewayWebhook, error) {
	fields, err := webhookFields(c)
	if err != nil {
		return nil, err
	}

	get := func(name string) (string, bool) {
		for _, alias := range webhookFieldAliases[name] {
			if v, ok := fields[alias]; ok && v != "" {
				return v, true
			}
		}
		return "", false
	}

	var missing []string
	required := []string{"merchantId", "posId", "sessionId", "amount", "currency", "orderId", "sign"}
	values := map[string]string{}
	for _, name := range required {
		v, ok := get(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		values[name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required webhook fields: %s", strings.Join(missing, ", "))
	}

	amount, err := strconv.ParseInt(values["amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %q", values["amount"])
	}

	return &services.GatewayWebhook{
		MerchantID: values["merchantId"],
		PosID:      values["posId"],
		SessionID:  values["sessionId"],
		Amount:     amount,
		Currency:   values["currency"],
		OrderID:    values["orderId"],
		Sign:       values["sign"],
	}, nil
}

// webhookFields flattens the body to string values whether it arrived
// as JSON or form-encoded.
func webhookFields(c *gin.Context) (map[string]string, error) {
	contentType := c.ContentType()
	if strings.Contains(contentType, "json") || contentType == "" {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body")
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("invalid webhook payload")
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				fields[k] = val
			case float64:
				// Amounts are integral minor units; never truncate.
				if val != math.Trunc(val) {
					return nil, fmt.Errorf("non-integer value for field %q", k)
				}
				fields[k] = strconv.FormatInt(int64(val), 10)
			case json.Number:
				fields[k] = val.String()
			}
		}
		return fields, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form payload")
	}
	fields := make(map[string]string)
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields, nil
}

func requireAccountID(c *gin.Context) (uuid.UUID, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return uuid.Nil, false
	}
	accountID, err := uuid.Parse(userID)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "invalid user_id")
		return uuid.Nil, false
	}
	return accountID, true
}
