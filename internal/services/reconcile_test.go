package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgo/internal/gateway"
	"tripgo/internal/models/db_models"
	"tripgo/pkg/utils"
)

func submittedOrder(totalMinor int64) *db_models.Order {
	o := &db_models.Order{
		Number:     "TG1234567890001",
		Status:     db_models.OrderStatusSubmitted,
		TotalMinor: totalMinor,
		Currency:   "PLN",
	}
	o.ID = uuid.New()
	return o
}

func TestPlanConfirmation_FirstDelivery(t *testing.T) {
	order := submittedOrder(50000)
	session := &db_models.CheckoutSession{
		Status:         db_models.SessionStatusPending,
		ReservedPoints: 200,
	}

	plan, err := planConfirmation(reconcileSnapshot{
		Order:           order,
		Session:         session,
		AvailablePoints: 200,
	}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Equal(t, paymentCreate, plan.Action)
	assert.True(t, plan.ConfirmOrder)
	assert.True(t, plan.MarkSessionPaid)
	assert.Equal(t, int64(200), plan.SpendPoints)
	assert.Zero(t, plan.SpendShortfall)
	assert.Equal(t, int64(50), plan.EarnPoints)
}

func TestPlanConfirmation_ClampsSpendToAvailable(t *testing.T) {
	// Earns expired between checkout and payment: the reservation can no
	// longer be fully covered, but the captured payment must still confirm.
	order := submittedOrder(50000)
	session := &db_models.CheckoutSession{
		Status:         db_models.SessionStatusPending,
		ReservedPoints: 200,
	}

	plan, err := planConfirmation(reconcileSnapshot{
		Order:           order,
		Session:         session,
		AvailablePoints: 150,
	}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(150), plan.SpendPoints)
	assert.Equal(t, int64(50), plan.SpendShortfall)
	assert.True(t, plan.ConfirmOrder)
	assert.Equal(t, int64(50), plan.EarnPoints)
}

func TestPlanConfirmation_SkipsSpendWhenNothingAvailable(t *testing.T) {
	order := submittedOrder(50000)
	session := &db_models.CheckoutSession{
		Status:         db_models.SessionStatusPending,
		ReservedPoints: 200,
	}

	plan, err := planConfirmation(reconcileSnapshot{
		Order:           order,
		Session:         session,
		AvailablePoints: 0,
	}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Zero(t, plan.SpendPoints)
	assert.Equal(t, int64(200), plan.SpendShortfall)
	assert.True(t, plan.ConfirmOrder)
	assert.True(t, plan.MarkSessionPaid)
	assert.Equal(t, int64(50), plan.EarnPoints)
}

func TestPlanConfirmation_UpdatesLatestPendingAttempt(t *testing.T) {
	order := submittedOrder(50000)

	older := db_models.Payment{
		OrderID:  order.ID,
		Provider: db_models.ProviderGateway,
		Status:   db_models.PaymentStatusPending,
	}
	older.ID = uuid.New()
	older.CreatedAt = 100

	newer := db_models.Payment{
		OrderID:  order.ID,
		Provider: db_models.ProviderGateway,
		Status:   db_models.PaymentStatusPending,
	}
	newer.ID = uuid.New()
	newer.CreatedAt = 200

	plan, err := planConfirmation(reconcileSnapshot{
		Order:    order,
		Payments: []db_models.Payment{older, newer},
	}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Equal(t, paymentUpdate, plan.Action)
	assert.Equal(t, newer.ID, plan.PaymentID)
}

func TestPlanConfirmation_RedeliveryIsNoOp(t *testing.T) {
	// State as the first delivery left it: order confirmed, payment paid,
	// session paid, spend and earn already in the ledger.
	order := submittedOrder(50000)
	order.Status = db_models.OrderStatusConfirmed

	paid := db_models.Payment{
		OrderID:  order.ID,
		Provider: db_models.ProviderGateway,
		Status:   db_models.PaymentStatusPaid,
	}
	paid.ID = uuid.New()

	oid := order.ID
	ledger := []db_models.LoyaltyTransaction{
		{OrderID: &oid, Type: db_models.LoyaltySpend, Points: -200},
		{OrderID: &oid, Type: db_models.LoyaltyEarn, Points: 50},
	}

	plan, err := planConfirmation(reconcileSnapshot{
		Order:       order,
		Payments:    []db_models.Payment{paid},
		Session:     &db_models.CheckoutSession{Status: db_models.SessionStatusPaid, ReservedPoints: 200},
		OrderLedger: ledger,
	}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Equal(t, paymentReuse, plan.Action)
	assert.Equal(t, paid.ID, plan.PaymentID)
	assert.False(t, plan.ConfirmOrder)
	assert.False(t, plan.MarkSessionPaid)
	assert.Zero(t, plan.SpendPoints)
	assert.Zero(t, plan.EarnPoints)
}

func TestPlanConfirmation_NoSessionSkipsSpend(t *testing.T) {
	order := submittedOrder(30000)

	plan, err := planConfirmation(reconcileSnapshot{Order: order}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Zero(t, plan.SpendPoints)
	assert.Equal(t, int64(30), plan.EarnPoints)
	assert.False(t, plan.MarkSessionPaid)
}

func TestPlanConfirmation_RejectsUnpayableOrders(t *testing.T) {
	for _, status := range []db_models.OrderStatus{db_models.OrderStatusCancelled, db_models.OrderStatusDraft} {
		order := submittedOrder(50000)
		order.Status = status

		_, err := planConfirmation(reconcileSnapshot{Order: order}, db_models.ProviderGateway, 10)
		assert.ErrorIs(t, err, utils.ErrOrderNotPayable)
	}
}

func TestPlanConfirmation_MissingOrder(t *testing.T) {
	_, err := planConfirmation(reconcileSnapshot{}, db_models.ProviderGateway, 10)
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}

func TestPlanConfirmation_IgnoresOtherProviderPayments(t *testing.T) {
	order := submittedOrder(50000)

	transfer := db_models.Payment{
		OrderID:  order.ID,
		Provider: db_models.ProviderTransfer,
		Status:   db_models.PaymentStatusPending,
	}
	transfer.ID = uuid.New()

	plan, err := planConfirmation(reconcileSnapshot{
		Order:    order,
		Payments: []db_models.Payment{transfer},
	}, db_models.ProviderGateway, 10)
	require.NoError(t, err)

	assert.Equal(t, paymentCreate, plan.Action)
}

func TestConfirmationGate(t *testing.T) {
	order := submittedOrder(50000)

	reason, kind, ok := confirmationGate(&gateway.VerifyResult{Status: "success"}, 50000, "PLN", order)
	assert.True(t, ok)
	assert.Empty(t, reason)
	assert.Empty(t, kind)

	// Currency comparison is case-insensitive.
	_, _, ok = confirmationGate(&gateway.VerifyResult{Status: "success"}, 50000, "pln", order)
	assert.True(t, ok)

	reason, kind, ok = confirmationGate(&gateway.VerifyResult{Status: "error", Message: "declined"}, 50000, "PLN", order)
	assert.False(t, ok)
	assert.Equal(t, "provider_failure", kind)
	assert.Contains(t, reason, "declined")

	reason, kind, ok = confirmationGate(&gateway.VerifyResult{Status: "success"}, 49999, "PLN", order)
	assert.False(t, ok)
	assert.Equal(t, "amount_mismatch", kind)
	assert.Contains(t, reason, "49999")

	_, kind, ok = confirmationGate(&gateway.VerifyResult{Status: "success"}, 50000, "EUR", order)
	assert.False(t, ok)
	assert.Equal(t, "amount_mismatch", kind)
}

func TestPlanFailure(t *testing.T) {
	paid := db_models.Payment{Provider: db_models.ProviderGateway, Status: db_models.PaymentStatusPaid}
	paid.ID = uuid.New()
	pending := db_models.Payment{Provider: db_models.ProviderGateway, Status: db_models.PaymentStatusPending}
	pending.ID = uuid.New()

	plan := planFailure([]db_models.Payment{pending, paid}, db_models.ProviderGateway)
	assert.True(t, plan.AlreadyPaid, "a paid payment wins over a late failure report")
	assert.Equal(t, paid.ID, plan.PaymentID)

	plan = planFailure([]db_models.Payment{pending}, db_models.ProviderGateway)
	assert.False(t, plan.AlreadyPaid)
	assert.True(t, plan.UpdatePending)
	assert.Equal(t, pending.ID, plan.PaymentID)

	plan = planFailure(nil, db_models.ProviderGateway)
	assert.False(t, plan.AlreadyPaid)
	assert.False(t, plan.UpdatePending)
}

func TestShouldCancelOrder(t *testing.T) {
	const ttl = int64(7200)
	now := int64(1_700_000_000)

	fresh := submittedOrder(1000)
	fresh.CreatedAt = now - 60
	assert.False(t, shouldCancelOrder(fresh, nil, ttl, now))

	stale := submittedOrder(1000)
	stale.CreatedAt = now - 3*3600
	assert.True(t, shouldCancelOrder(stale, nil, ttl, now))

	paid := db_models.Payment{Status: db_models.PaymentStatusPaid}
	assert.False(t, shouldCancelOrder(stale, []db_models.Payment{paid}, ttl, now),
		"a paid payment appearing under the lock must veto cancellation")

	confirmed := submittedOrder(1000)
	confirmed.Status = db_models.OrderStatusConfirmed
	confirmed.CreatedAt = now - 3*3600
	assert.False(t, shouldCancelOrder(confirmed, nil, ttl, now))

	assert.False(t, shouldCancelOrder(nil, nil, ttl, now))
}

func TestBaseOrderNumber(t *testing.T) {
	assert.Equal(t, "TG1234567890001", baseOrderNumber("TG1234567890001-2"))
	assert.Equal(t, "TG1234567890001", baseOrderNumber("TG1234567890001"))
}
