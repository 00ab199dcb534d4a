package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tripgo/internal/gateway"
	"tripgo/internal/models/db_models"
	"tripgo/internal/repositories"
	"tripgo/pkg/utils"
)

type PaymentConfig struct {
	BankDetails string // printed into manual-transfer instructions
	Loyalty     LoyaltyConfig
}

// GatewayWebhook is the provider notification normalized by the
// controller: field-name variants resolved, amount parsed to minor
// units.
type GatewayWebhook struct {
	MerchantID string
	PosID      string
	SessionID  string
	Amount     int64
	Currency   string
	OrderID    string // provider-side transaction id
	Sign       string
}

type WebhookOutcome string

const (
	OutcomePaid        WebhookOutcome = "paid"
	OutcomeAlreadyPaid WebhookOutcome = "already_paid"
	OutcomeFailed      WebhookOutcome = "failed"
	OutcomeRejected    WebhookOutcome = "rejected" // order not in a payable state
)

type ReconcileResult struct {
	Outcome      WebhookOutcome
	OrderNumber  string
	PaymentID    uuid.UUID
	PointsSpent  int64
	PointsEarned int64
}

type InitiatePaymentResult struct {
	Payment          *db_models.Payment
	RedirectURL      string
	InstructionsSent bool
}

type PaymentServiceInterface interface {
	InitiatePayment(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID, provider db_models.PaymentProvider, forceNew bool) (*InitiatePaymentResult, error)
	ConfirmFromWebhook(ctx context.Context, wh GatewayWebhook) (*ReconcileResult, error)
}

type paymentService struct {
	db        *gorm.DB
	gw        gateway.Client
	orderRepo repositories.OrderRepository
	mail      IMailService
	cfg       PaymentConfig
	logger    *zap.Logger
}

func NewPaymentService(db *gorm.DB, gw gateway.Client, orderRepo repositories.OrderRepository, mail IMailService, cfg PaymentConfig, logger *zap.Logger) PaymentServiceInterface {
	return &paymentService{
		db:        db,
		gw:        gw,
		orderRepo: orderRepo,
		mail:      mail,
		cfg:       cfg,
		logger:    logger,
	}
}

// ConfirmFromWebhook drives the webhook through signature check,
// authoritative verify and the single reconciliation transaction.
//
// Error return means infrastructure fault only: the controller turns it
// into a 5xx so the provider retries. Every business outcome, including
// verification failure and amount mismatch, resolves to a nil error and
// a 200 acknowledgement so the provider stops redelivering.
func (s *paymentService) ConfirmFromWebhook(ctx context.Context, wh GatewayWebhook) (*ReconcileResult, error) {
	number := baseOrderNumber(wh.SessionID)
	order, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if order == nil {
		return nil, utils.ErrOrderNotFound
	}

	fields := gateway.SignedFields{
		MerchantID: wh.MerchantID,
		PosID:      wh.PosID,
		SessionID:  wh.SessionID,
		Amount:     wh.Amount,
		Currency:   wh.Currency,
		OrderID:    wh.OrderID,
	}

	// Trust-but-verify: a signature mismatch is an audit signal, not a
	// rejection. The remote verify call below is the security boundary.
	if !s.gw.VerifySignature(fields, wh.Sign) {
		s.logger.Warn("webhook signature mismatch",
			zap.String("order_number", number),
			zap.String("session_id", wh.SessionID),
			zap.String("provider_order_id", wh.OrderID))
	}

	verify, err := s.gw.VerifyTransaction(ctx, fields)
	if err != nil {
		s.logger.Error("gateway verify unreachable",
			zap.String("order_number", number), zap.Error(err))
		return nil, utils.ErrGatewayUnavailable
	}

	if reason, kind, ok := confirmationGate(verify, wh.Amount, wh.Currency, order); !ok {
		s.logger.Error("webhook failed confirmation gate",
			zap.String("order_number", number),
			zap.String("kind", kind),
			zap.String("reason", reason))
		return s.markFailed(ctx, order, wh, reason, kind)
	}

	result, customerEmail, err := s.confirm(ctx, order.ID, wh)
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomePaid && customerEmail != "" {
		// Best-effort, outside the transaction: a mail failure never
		// fails the webhook or unwinds the commit.
		if mailErr := s.mail.SendPaymentConfirmation(customerEmail, result.OrderNumber, order.TotalMinor, order.Currency, result.PointsEarned); mailErr != nil {
			s.logger.Warn("payment confirmation mail failed",
				zap.String("order_number", result.OrderNumber), zap.Error(mailErr))
		}
	}

	return result, nil
}

// confirm is the atomic reconciliation transaction. The FOR UPDATE
// fetch of the order row serializes concurrent deliveries; whichever
// commits first establishes paid/confirmed state and the loser re-plans
// against it into a no-op.
func (s *paymentService) confirm(ctx context.Context, orderID uuid.UUID, wh GatewayWebhook) (*ReconcileResult, string, error) {
	var result ReconcileResult
	var customerEmail string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repositories.LockOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return utils.ErrOrderNotFound
		}

		payments, err := repositories.ListPaymentsTx(tx, order.ID)
		if err != nil {
			return err
		}

		var session *db_models.CheckoutSession
		if order.CheckoutSessionID != nil {
			session = &db_models.CheckoutSession{}
			if err := tx.Where("id = ?", *order.CheckoutSessionID).First(session).Error; err != nil {
				return err
			}
		}

		acct, err := repositories.GetOrCreateLoyaltyAccountTx(tx, order.AccountID)
		if err != nil {
			return err
		}
		ledger, err := repositories.LoadLedgerTx(tx, acct.ID)
		if err != nil {
			return err
		}
		var orderLedger []db_models.LoyaltyTransaction
		for _, e := range ledger {
			if e.OrderID != nil && *e.OrderID == order.ID {
				orderLedger = append(orderLedger, e)
			}
		}

		now := time.Now()
		plan, err := planConfirmation(reconcileSnapshot{
			Order:           order,
			Payments:        payments,
			Session:         session,
			OrderLedger:     orderLedger,
			AvailablePoints: availablePoints(ledger, now),
		}, db_models.ProviderGateway, s.cfg.Loyalty.EarnPercent)
		if err != nil {
			if err == utils.ErrOrderNotPayable {
				// Verified payment against a cancelled order: never mark it
				// paid. Record the delivery on the failure path and resolve.
				s.logger.Error("verified webhook for non-payable order",
					zap.String("order_number", order.Number),
					zap.String("order_status", string(order.Status)))
				result = ReconcileResult{Outcome: OutcomeRejected, OrderNumber: order.Number}
				return s.markFailedTx(tx, order, payments, wh, "order not payable", "order_conflict", &result)
			}
			return err
		}

		event := webhookEvent(wh, "paid", "")
		if plan.SpendShortfall > 0 {
			s.logger.Warn("point reservation no longer covered by ledger, clamping spend",
				zap.String("order_number", order.Number),
				zap.Int64("reserved", session.ReservedPoints),
				zap.Int64("spent", plan.SpendPoints),
				zap.Int64("shortfall", plan.SpendShortfall))
			event["points_shortfall"] = plan.SpendShortfall
		}

		switch plan.Action {
		case paymentReuse:
			result.Outcome = OutcomeAlreadyPaid
			result.PaymentID = plan.PaymentID
		case paymentUpdate:
			paidAt := now.Unix()
			payment := findPayment(payments, plan.PaymentID)
			if err := tx.Model(&db_models.Payment{}).
				Where("id = ?", plan.PaymentID).
				Updates(map[string]interface{}{
					"status":            db_models.PaymentStatusPaid,
					"paid_at":           paidAt,
					"session_id":        wh.SessionID,
					"provider_order_id": wh.OrderID,
					"provider_payload":  appendPayloadEvent(payment.ProviderPayload, event),
				}).Error; err != nil {
				return err
			}
			result.Outcome = OutcomePaid
			result.PaymentID = plan.PaymentID
		case paymentCreate:
			paidAt := now.Unix()
			payment := &db_models.Payment{
				OrderID:         order.ID,
				Provider:        db_models.ProviderGateway,
				Status:          db_models.PaymentStatusPaid,
				AmountMinor:     wh.Amount,
				Currency:        order.Currency,
				SessionID:       wh.SessionID,
				ProviderOrderID: wh.OrderID,
				PaidAt:          &paidAt,
				ProviderPayload: appendPayloadEvent(nil, event),
			}
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
			result.Outcome = OutcomePaid
			result.PaymentID = payment.ID
		}

		if plan.ConfirmOrder {
			if err := tx.Model(&db_models.Order{}).
				Where("id = ?", order.ID).
				Updates(map[string]interface{}{
					"status":       db_models.OrderStatusConfirmed,
					"confirmed_at": now.Unix(),
				}).Error; err != nil {
				return err
			}
		}

		if plan.MarkSessionPaid && session != nil {
			if err := tx.Model(&db_models.CheckoutSession{}).
				Where("id = ?", session.ID).
				Update("status", db_models.SessionStatusPaid).Error; err != nil {
				return err
			}
		}

		if plan.SpendPoints > 0 {
			if _, err := postSpendTx(tx, acct, plan.SpendPoints, order.ID, "points redeemed at checkout", now); err != nil {
				return err
			}
			result.PointsSpent = plan.SpendPoints
		}
		if plan.EarnPoints > 0 {
			if _, err := postEarnTx(tx, acct, plan.EarnPoints, order.ID,
				fmt.Sprintf("earned on order %s", order.Number), s.cfg.Loyalty.Validity, now); err != nil {
				return err
			}
			result.PointsEarned = plan.EarnPoints
		}

		result.OrderNumber = order.Number

		var account db_models.Account
		if err := tx.Where("id = ?", order.AccountID).First(&account).Error; err == nil {
			customerEmail = account.Email
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &result, customerEmail, nil
}

// markFailed records a definitive non-success outcome on the payment
// audit trail without touching order status or the ledger.
func (s *paymentService) markFailed(ctx context.Context, order *db_models.Order, wh GatewayWebhook, reason string, kind string) (*ReconcileResult, error) {
	result := ReconcileResult{Outcome: OutcomeFailed, OrderNumber: order.Number}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := repositories.LockOrderTx(tx, order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return utils.ErrOrderNotFound
		}
		payments, err := repositories.ListPaymentsTx(tx, locked.ID)
		if err != nil {
			return err
		}
		return s.markFailedTx(tx, locked, payments, wh, reason, kind, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *paymentService) markFailedTx(tx *gorm.DB, order *db_models.Order, payments []db_models.Payment, wh GatewayWebhook, reason string, kind string, result *ReconcileResult) error {
	plan := planFailure(payments, db_models.ProviderGateway)

	// A paid payment already on file wins; the late failure report is a
	// redelivery artifact and the whole thing is a no-op.
	if plan.AlreadyPaid {
		result.Outcome = OutcomeAlreadyPaid
		result.PaymentID = plan.PaymentID
		return nil
	}

	now := time.Now().Unix()
	event := webhookEvent(wh, kind, reason)

	if plan.UpdatePending {
		pending := findPayment(payments, plan.PaymentID)
		result.PaymentID = plan.PaymentID
		return tx.Model(&db_models.Payment{}).
			Where("id = ?", plan.PaymentID).
			Updates(map[string]interface{}{
				"status":            db_models.PaymentStatusFailed,
				"failed_at":         now,
				"provider_order_id": wh.OrderID,
				"provider_payload":  appendPayloadEvent(pending.ProviderPayload, event),
			}).Error
	}

	payment := &db_models.Payment{
		OrderID:         order.ID,
		Provider:        db_models.ProviderGateway,
		Status:          db_models.PaymentStatusFailed,
		AmountMinor:     wh.Amount,
		Currency:        wh.Currency,
		SessionID:       wh.SessionID,
		ProviderOrderID: wh.OrderID,
		FailedAt:        &now,
		ProviderPayload: appendPayloadEvent(nil, event),
	}
	if err := tx.Create(payment).Error; err != nil {
		return err
	}
	result.PaymentID = payment.ID
	return nil
}

// InitiatePayment starts (or re-surfaces) a payment attempt for a
// submitted order. Repeated calls return the existing pending/paid
// state; force_new cancels prior pending attempts for the provider and
// opens a fresh one.
func (s *paymentService) InitiatePayment(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID, provider db_models.PaymentProvider, forceNew bool) (*InitiatePaymentResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if order == nil || order.AccountID != accountID {
		return nil, utils.ErrOrderNotFound
	}
	if order.Status == db_models.OrderStatusCancelled || order.Status == db_models.OrderStatusDraft {
		return nil, utils.ErrOrderNotPayable
	}

	if paid := paidPayment(order.Payments, provider); paid != nil {
		return &InitiatePaymentResult{Payment: paid}, nil
	}

	if pending := latestPendingPayment(order.Payments, provider); pending != nil && !forceNew {
		return &InitiatePaymentResult{
			Payment:     pending,
			RedirectURL: payloadRedirectURL(pending.ProviderPayload),
		}, nil
	}

	if forceNew {
		err := s.db.WithContext(ctx).Model(&db_models.Payment{}).
			Where("order_id = ? AND provider = ? AND status = ?",
				order.ID, provider, db_models.PaymentStatusPending).
			Update("status", db_models.PaymentStatusCancelled).Error
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
	}

	switch provider {
	case db_models.ProviderGateway:
		return s.initiateGateway(ctx, order)
	case db_models.ProviderTransfer:
		return s.initiateTransfer(ctx, order)
	default:
		return nil, utils.ErrOrderNotPayable
	}
}

func (s *paymentService) initiateGateway(ctx context.Context, order *db_models.Order) (*InitiatePaymentResult, error) {
	sessionID := newAttemptSessionID(order.Number)

	redirectURL, err := s.gw.RegisterTransaction(ctx, gateway.RegisterParams{
		SessionID:   sessionID,
		Amount:      order.TotalMinor,
		Currency:    order.Currency,
		Description: fmt.Sprintf("Order %s", order.Number),
	})
	if err != nil {
		s.logger.Error("gateway register failed",
			zap.String("order_number", order.Number), zap.Error(err))
		return nil, utils.ErrGatewayUnavailable
	}

	payment := &db_models.Payment{
		OrderID:     order.ID,
		Provider:    db_models.ProviderGateway,
		Status:      db_models.PaymentStatusPending,
		AmountMinor: order.TotalMinor,
		Currency:    order.Currency,
		SessionID:   sessionID,
		ProviderPayload: appendPayloadEvent(nil, map[string]interface{}{
			"kind":         "registered",
			"session_id":   sessionID,
			"redirect_url": redirectURL,
			"at":           time.Now().Unix(),
		}),
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, utils.ErrDatabaseError
	}

	return &InitiatePaymentResult{Payment: payment, RedirectURL: redirectURL}, nil
}

func (s *paymentService) initiateTransfer(ctx context.Context, order *db_models.Order) (*InitiatePaymentResult, error) {
	payment := &db_models.Payment{
		OrderID:     order.ID,
		Provider:    db_models.ProviderTransfer,
		Status:      db_models.PaymentStatusPending,
		AmountMinor: order.TotalMinor,
		Currency:    order.Currency,
		ProviderPayload: appendPayloadEvent(nil, map[string]interface{}{
			"kind": "instructions_issued",
			"at":   time.Now().Unix(),
		}),
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, utils.ErrDatabaseError
	}

	sent := true
	var account db_models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", order.AccountID).First(&account).Error; err != nil {
		sent = false
	} else if err := s.mail.SendPaymentInstructions(account.Email, order.Number, order.TotalMinor, order.Currency, s.cfg.BankDetails); err != nil {
		s.logger.Warn("payment instructions mail failed",
			zap.String("order_number", order.Number), zap.Error(err))
		sent = false
	}

	return &InitiatePaymentResult{Payment: payment, InstructionsSent: sent}, nil
}

func newAttemptSessionID(orderNumber string) string {
	return fmt.Sprintf("%s-%d%04d", orderNumber, time.Now().Unix(), rand.Intn(10000))
}

func findPayment(payments []db_models.Payment, id uuid.UUID) *db_models.Payment {
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i]
		}
	}
	return &db_models.Payment{}
}

func webhookEvent(wh GatewayWebhook, kind string, reason string) map[string]interface{} {
	event := map[string]interface{}{
		"kind":              kind,
		"session_id":        wh.SessionID,
		"provider_order_id": wh.OrderID,
		"amount":            wh.Amount,
		"currency":          wh.Currency,
		"at":                time.Now().Unix(),
	}
	if reason != "" {
		event["reason"] = reason
	}
	return event
}

// appendPayloadEvent merges a new audit event into the payment's opaque
// payload without discarding anything already recorded there.
func appendPayloadEvent(payload datatypes.JSON, event map[string]interface{}) datatypes.JSON {
	doc := map[string]interface{}{}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &doc)
	}
	events, _ := doc["events"].([]interface{})
	doc["events"] = append(events, event)

	out, err := json.Marshal(doc)
	if err != nil {
		return payload
	}
	return out
}

func payloadRedirectURL(payload datatypes.JSON) string {
	doc := map[string]interface{}{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return ""
	}
	events, _ := doc["events"].([]interface{})
	for i := len(events) - 1; i >= 0; i-- {
		if ev, ok := events[i].(map[string]interface{}); ok {
			if u, ok := ev["redirect_url"].(string); ok && u != "" {
				return u
			}
		}
	}
	return ""
}
