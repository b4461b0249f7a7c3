// Package matcher resolves a normalized campaign to the best-fitting
// catalog plan, or to no plan at all. An exact match is always preferred
// over a nearest match; ties break deterministically on the most
// recently created plan. Returning no plan is a normal outcome.
package matcher

import (
	"github.com/shopspring/decimal"

	"adledger/internal/core/domain"
)

// Config holds the matching tolerances. Budgets compare as decimals to
// avoid float rounding at the tolerance boundary.
type Config struct {
	// ExactBudgetTolerance is the maximum daily-budget difference still
	// considered an exact match.
	ExactBudgetTolerance decimal.Decimal
	// NearestBudgetTolerance is the acceptance gate on the daily-budget
	// difference of the nearest candidate.
	NearestBudgetTolerance decimal.Decimal
	// NearestDurationTolerance is the acceptance gate on the duration
	// difference, in days.
	NearestDurationTolerance int
}

// DefaultConfig returns the production tolerances: one cent for exact
// matches, one unit of currency and two days for the nearest gate.
func DefaultConfig() Config {
	return Config{
		ExactBudgetTolerance:     decimal.RequireFromString("0.01"),
		NearestBudgetTolerance:   decimal.RequireFromString("1.00"),
		NearestDurationTolerance: 2,
	}
}

// Matcher scores plans against resolved campaigns. It is stateless and
// safe for concurrent use.
type Matcher struct {
	cfg Config
}

// New returns a Matcher with the given tolerances. Zero-value tolerances
// fall back to the defaults.
func New(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.ExactBudgetTolerance.IsZero() {
		cfg.ExactBudgetTolerance = def.ExactBudgetTolerance
	}
	if cfg.NearestBudgetTolerance.IsZero() {
		cfg.NearestBudgetTolerance = def.NearestBudgetTolerance
	}
	if cfg.NearestDurationTolerance == 0 {
		cfg.NearestDurationTolerance = def.NearestDurationTolerance
	}
	return &Matcher{cfg: cfg}
}

// Match returns the plan the campaign was most likely sold under, or nil
// when nothing fits within tolerance. A campaign without a resolved
// daily budget or duration cannot be matched.
func (m *Matcher) Match(plans []domain.Plan, dailyBudget *decimal.Decimal, durationDays *int) *domain.Plan {
	if dailyBudget == nil || durationDays == nil || len(plans) == 0 {
		return nil
	}

	if exact := m.exactMatch(plans, *dailyBudget, *durationDays); exact != nil {
		return exact
	}
	return m.nearestMatch(plans, *dailyBudget, *durationDays)
}

// exactMatch finds plans within one cent of the daily budget at the same
// duration. Several exact candidates resolve to the most recently
// created plan.
func (m *Matcher) exactMatch(plans []domain.Plan, daily decimal.Decimal, duration int) *domain.Plan {
	var best *domain.Plan
	for i := range plans {
		p := &plans[i]
		if !p.Active || p.DurationDays != duration {
			continue
		}
		if p.DailyBudget.Sub(daily).Abs().GreaterThan(m.cfg.ExactBudgetTolerance) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// nearestMatch scores every active plan by the sum of its budget and
// duration distances, then applies the acceptance gate to the winner.
func (m *Matcher) nearestMatch(plans []domain.Plan, daily decimal.Decimal, duration int) *domain.Plan {
	var (
		best      *domain.Plan
		bestScore decimal.Decimal
	)
	for i := range plans {
		p := &plans[i]
		if !p.Active {
			continue
		}
		score := p.DailyBudget.Sub(daily).Abs().
			Add(decimal.NewFromInt(int64(absInt(p.DurationDays - duration))))
		switch {
		case best == nil, score.LessThan(bestScore):
			best, bestScore = p, score
		case score.Equal(bestScore) && p.CreatedAt.After(best.CreatedAt):
			best = p
		}
	}
	if best == nil {
		return nil
	}
	if best.DailyBudget.Sub(daily).Abs().GreaterThan(m.cfg.NearestBudgetTolerance) {
		return nil
	}
	if absInt(best.DurationDays-duration) > m.cfg.NearestDurationTolerance {
		return nil
	}
	found := *best
	return &found
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
