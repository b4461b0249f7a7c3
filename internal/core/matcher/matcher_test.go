package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adledger/internal/core/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func plan(id int64, daily string, days int, createdAt time.Time) domain.Plan {
	p := domain.NewPlan("plan", dec(daily), days, dec(daily).Mul(decimal.NewFromInt(int64(days))).Mul(dec("1.5")))
	p.ID = id
	p.CreatedAt = createdAt
	return p
}

func match(t *testing.T, plans []domain.Plan, daily string, days int) *domain.Plan {
	t.Helper()
	d := dec(daily)
	return New(DefaultConfig()).Match(plans, &d, &days)
}

var (
	older = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

func TestExactMatch(t *testing.T) {
	plans := []domain.Plan{
		plan(1, "10.00", 5, older),
		plan(2, "20.00", 5, older),
	}
	got := match(t, plans, "10.00", 5)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestExactMatchWithinOneCent(t *testing.T) {
	plans := []domain.Plan{plan(1, "10.00", 5, older)}
	got := match(t, plans, "10.01", 5)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestExactPreferredOverNearest(t *testing.T) {
	plans := []domain.Plan{
		plan(1, "10.00", 5, older), // exact
		plan(2, "10.00", 6, newer), // nearer by recency but not exact
	}
	got := match(t, plans, "10.00", 5)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestMultipleExactMatchesPickMostRecent(t *testing.T) {
	plans := []domain.Plan{
		plan(1, "10.00", 5, older),
		plan(2, "10.00", 5, newer),
	}
	got := match(t, plans, "10.00", 5)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestNearestMatchWithinGate(t *testing.T) {
	plans := []domain.Plan{
		plan(1, "10.50", 6, older),
		plan(2, "30.00", 20, older),
	}
	got := match(t, plans, "10.00", 5)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestNearestMatchRejectedByBudgetGate(t *testing.T) {
	// Nearest plan differs by 3.00 in daily budget and 1 day: the
	// duration is fine but the budget gate (1.00) rejects it.
	plans := []domain.Plan{plan(1, "8.00", 11, older)}
	assert.Nil(t, match(t, plans, "5.00", 10))
}

func TestNearestMatchRejectedByDurationGate(t *testing.T) {
	plans := []domain.Plan{plan(1, "10.00", 9, older)}
	assert.Nil(t, match(t, plans, "10.00", 5))
}

func TestNearestTieBreaksOnRecency(t *testing.T) {
	plans := []domain.Plan{
		plan(1, "10.40", 5, older),
		plan(2, "9.60", 5, newer), // same |delta| of 0.40
	}
	got := match(t, plans, "10.00", 5)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestInactivePlansIgnored(t *testing.T) {
	p := plan(1, "10.00", 5, older)
	p.Active = false
	assert.Nil(t, match(t, []domain.Plan{p}, "10.00", 5))
}

func TestUnresolvedCampaignNeverMatches(t *testing.T) {
	m := New(DefaultConfig())
	plans := []domain.Plan{plan(1, "10.00", 5, older)}
	daily := dec("10.00")
	days := 5

	assert.Nil(t, m.Match(plans, nil, &days))
	assert.Nil(t, m.Match(plans, &daily, nil))
	assert.Nil(t, m.Match(nil, &daily, &days))
}
