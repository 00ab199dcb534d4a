package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tripgo/internal/models/db_models"
)

func earnEntry(points int64, expiresAt int64) db_models.LoyaltyTransaction {
	e := expiresAt
	return db_models.LoyaltyTransaction{
		Type:      db_models.LoyaltyEarn,
		Points:    points,
		ExpiresAt: &e,
	}
}

func TestAvailablePoints(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	entries := []db_models.LoyaltyTransaction{
		earnEntry(500, now.Add(time.Hour).Unix()),
		{Type: db_models.LoyaltySpend, Points: -200},
		{Type: db_models.LoyaltyAdjust, Points: 50},
	}
	assert.Equal(t, int64(350), availablePoints(entries, now))
}

func TestAvailablePoints_ExpiryBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	// Exactly at the expiry instant the earn is gone.
	atBoundary := []db_models.LoyaltyTransaction{earnEntry(100, now.Unix())}
	assert.Equal(t, int64(0), availablePoints(atBoundary, now))

	justBefore := []db_models.LoyaltyTransaction{earnEntry(100, now.Unix()+1)}
	assert.Equal(t, int64(100), availablePoints(justBefore, now))
}

func TestAvailablePoints_ExpiredEarnsDoNotFundOldSpends(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	// The earn expired but the spend it once funded remains in the log.
	// Available is floored at zero rather than going negative.
	entries := []db_models.LoyaltyTransaction{
		earnEntry(300, now.Add(-time.Hour).Unix()),
		{Type: db_models.LoyaltySpend, Points: -200},
	}
	assert.Equal(t, int64(0), availablePoints(entries, now))
}

func TestAvailablePoints_EarnWithoutExpiryNeverExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	entries := []db_models.LoyaltyTransaction{
		{Type: db_models.LoyaltyEarn, Points: 120},
	}
	assert.Equal(t, int64(120), availablePoints(entries, now))
}

func TestDerivedBalance_IgnoresExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	entries := []db_models.LoyaltyTransaction{
		earnEntry(300, now.Add(-time.Hour).Unix()),
		{Type: db_models.LoyaltySpend, Points: -200},
	}
	assert.Equal(t, int64(100), derivedBalance(entries))
	assert.Equal(t, int64(0), availablePoints(entries, now))
}

func TestPointsEarnedFor(t *testing.T) {
	// 10% of a 500.00 order, one point per major unit.
	assert.Equal(t, int64(50), pointsEarnedFor(50000, 10))
	assert.Equal(t, int64(0), pointsEarnedFor(99, 10))
	assert.Equal(t, int64(0), pointsEarnedFor(0, 10))
	assert.Equal(t, int64(0), pointsEarnedFor(-100, 10))
	assert.Equal(t, int64(0), pointsEarnedFor(50000, 0))
	assert.Equal(t, int64(25), pointsEarnedFor(50000, 5))
}
