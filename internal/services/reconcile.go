package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tripgo/internal/gateway"
	"tripgo/internal/models/db_models"
	"tripgo/pkg/utils"
)

// The reconciliation decision logic is kept free of I/O so the
// idempotency and race properties can be exercised directly. The
// payment service loads a snapshot under the order row lock, asks the
// planner what to do, and applies the result in the same transaction.

// reconcileSnapshot is a consistent view of everything the confirmation
// decision depends on, fetched inside the locked transaction.
type reconcileSnapshot struct {
	Order    *db_models.Order
	Payments []db_models.Payment
	Session  *db_models.CheckoutSession
	// OrderLedger holds the ledger entries already linked to this order.
	OrderLedger []db_models.LoyaltyTransaction
	// AvailablePoints is the ledger-derived spendable balance at plan
	// time; reserved points are clamped to it.
	AvailablePoints int64
}

type paymentAction int

const (
	paymentReuse paymentAction = iota // a paid payment already exists, leave it alone
	paymentUpdate
	paymentCreate
)

type reconcilePlan struct {
	Action    paymentAction
	PaymentID uuid.UUID // set for paymentReuse and paymentUpdate

	ConfirmOrder    bool
	MarkSessionPaid bool

	SpendPoints int64 // 0 when nothing to post
	// SpendShortfall is the part of the reservation the ledger could no
	// longer cover (earns expired since checkout, or a competing spend).
	SpendShortfall int64
	EarnPoints     int64
}

// planConfirmation decides the mutations for a successfully verified,
// amount-matched webhook. Re-running it against the state it produced
// yields a pure no-op, which is what makes webhook redelivery safe.
func planConfirmation(snap reconcileSnapshot, provider db_models.PaymentProvider, earnPercent int) (reconcilePlan, error) {
	order := snap.Order
	if order == nil {
		return reconcilePlan{}, utils.ErrOrderNotFound
	}
	if order.Status == db_models.OrderStatusCancelled || order.Status == db_models.OrderStatusDraft {
		return reconcilePlan{}, utils.ErrOrderNotPayable
	}

	plan := reconcilePlan{}

	if paid := paidPayment(snap.Payments, provider); paid != nil {
		plan.Action = paymentReuse
		plan.PaymentID = paid.ID
	} else if pending := latestPendingPayment(snap.Payments, provider); pending != nil {
		plan.Action = paymentUpdate
		plan.PaymentID = pending.ID
	} else {
		plan.Action = paymentCreate
	}

	plan.ConfirmOrder = order.Status != db_models.OrderStatusConfirmed

	if snap.Session != nil && snap.Session.Status != db_models.SessionStatusPaid {
		plan.MarkSessionPaid = true
	}

	if snap.Session != nil && snap.Session.ReservedPoints > 0 && !hasOrderEntry(snap.OrderLedger, db_models.LoyaltySpend) {
		// The reservation was a display-only hold; a shortfall must not
		// block confirming a captured payment. Spend what the ledger still
		// covers and surface the rest for the audit trail.
		spend := snap.Session.ReservedPoints
		if spend > snap.AvailablePoints {
			plan.SpendShortfall = spend - snap.AvailablePoints
			spend = snap.AvailablePoints
		}
		plan.SpendPoints = spend
	}
	if !hasOrderEntry(snap.OrderLedger, db_models.LoyaltyEarn) {
		plan.EarnPoints = pointsEarnedFor(order.TotalMinor, earnPercent)
	}

	return plan, nil
}

// confirmationGate decides whether a delivery that reached the provider
// verify step may proceed to reconciliation. A non-ok result carries the
// failure reason and audit kind for the FAILED payment record.
func confirmationGate(verify *gateway.VerifyResult, amount int64, currency string, order *db_models.Order) (reason string, kind string, ok bool) {
	if !verify.Succeeded() {
		return fmt.Sprintf("provider reported %s: %s", verify.Status, verify.Message), "provider_failure", false
	}
	if amount != order.TotalMinor || !strings.EqualFold(currency, order.Currency) {
		return fmt.Sprintf("amount mismatch: webhook %d %s, order %d %s",
			amount, currency, order.TotalMinor, order.Currency), "amount_mismatch", false
	}
	return "", "", true
}

type failurePlan struct {
	// AlreadyPaid short-circuits: a paid payment on file wins over a late
	// failure report.
	AlreadyPaid   bool
	UpdatePending bool // fail the latest pending attempt instead of creating a row
	PaymentID     uuid.UUID
}

func planFailure(payments []db_models.Payment, provider db_models.PaymentProvider) failurePlan {
	if paid := paidPayment(payments, provider); paid != nil {
		return failurePlan{AlreadyPaid: true, PaymentID: paid.ID}
	}
	if pending := latestPendingPayment(payments, provider); pending != nil {
		return failurePlan{UpdatePending: true, PaymentID: pending.ID}
	}
	return failurePlan{}
}

func paidPayment(payments []db_models.Payment, provider db_models.PaymentProvider) *db_models.Payment {
	for i := range payments {
		if payments[i].Provider == provider && payments[i].Status == db_models.PaymentStatusPaid {
			return &payments[i]
		}
	}
	return nil
}

func latestPendingPayment(payments []db_models.Payment, provider db_models.PaymentProvider) *db_models.Payment {
	var latest *db_models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Provider != provider || p.Status != db_models.PaymentStatusPending {
			continue
		}
		if latest == nil || p.CreatedAt >= latest.CreatedAt {
			latest = p
		}
	}
	return latest
}

func hasPaidPayment(payments []db_models.Payment) bool {
	for i := range payments {
		if payments[i].Status == db_models.PaymentStatusPaid {
			return true
		}
	}
	return false
}

func hasOrderEntry(entries []db_models.LoyaltyTransaction, entryType db_models.LoyaltyTransactionType) bool {
	for i := range entries {
		if entries[i].Type == entryType {
			return true
		}
	}
	return false
}

// shouldCancelOrder is the sweeper's re-check, evaluated on state
// re-read under the order row lock. A paid payment appearing between
// the candidate scan and the lock means the webhook won the race.
func shouldCancelOrder(order *db_models.Order, payments []db_models.Payment, ttlSeconds int64, nowUnix int64) bool {
	if order == nil || order.Status != db_models.OrderStatusSubmitted {
		return false
	}
	if nowUnix-order.CreatedAt < ttlSeconds {
		return false
	}
	return !hasPaidPayment(payments)
}

// baseOrderNumber maps a per-attempt gateway session id back to the
// logical order. Session ids are "<orderNumber>-<attempt>" and order
// numbers never contain a dash.
func baseOrderNumber(sessionID string) string {
	base, _, _ := strings.Cut(sessionID, "-")
	return base
}
