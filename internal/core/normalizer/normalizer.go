// Package normalizer converts raw, inconsistently-encoded campaign
// snapshots into canonical budget, duration and lifecycle values.
//
// Resolution is a chain of pure strategies evaluated in priority order:
// explicit fields first, then cross-derivation, then hierarchy
// inheritance, then defaults. The normalizer never fails; a campaign
// with no budget signal anywhere resolves to an unknown budget level
// with zero remaining budget.
package normalizer

import (
	"time"

	"github.com/shopspring/decimal"

	"adledger/internal/core/domain"
)

// Config controls the fallback constants of the normalizer.
type Config struct {
	// DefaultDurationDays is used when neither timestamps nor the
	// campaign name yield a duration.
	DefaultDurationDays int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{DefaultDurationDays: 5}
}

// Normalizer resolves snapshots into ResolvedCampaign values. It is
// stateless and safe for concurrent use.
type Normalizer struct {
	cfg Config
}

// New returns a Normalizer with the given configuration. Zero or
// negative defaults fall back to DefaultConfig values.
func New(cfg Config) *Normalizer {
	if cfg.DefaultDurationDays <= 0 {
		cfg.DefaultDurationDays = DefaultConfig().DefaultDurationDays
	}
	return &Normalizer{cfg: cfg}
}

// Platform budget fields are ambiguously encoded: large values are minor
// units (cents), small values are already major units. Budgets at or
// above 10 and spend at or above 100 are treated as minor units. Known
// false positives exist for genuinely small decimal budgets.
var (
	minorUnitBudgetFloor = decimal.NewFromInt(10)
	minorUnitSpendFloor  = decimal.NewFromInt(100)
	hundred              = decimal.NewFromInt(100)
)

// Resolve derives the canonical view of a snapshot at the given instant.
// It is a pure function: identical input and reference time always yield
// identical output.
func (n *Normalizer) Resolve(snap domain.CampaignSnapshot, now time.Time) domain.ResolvedCampaign {
	res := domain.ResolvedCampaign{
		ID:          snap.ID,
		Name:        snap.Name,
		ActualSpend: normalizeSpend(snap.Spend),
		BudgetLevel: domain.BudgetLevelUnknown,
		Lifecycle:   domain.ClassifyLifecycle(snap, now),
	}

	duration := n.resolveDuration(snap, now)
	res.DurationDays = &duration

	res.DailyBudget = normalizeBudget(snap.DailyBudget)
	res.TotalBudget = normalizeBudget(snap.LifetimeBudget)
	if res.DailyBudget != nil || res.TotalBudget != nil {
		res.BudgetLevel = domain.BudgetLevelCampaign
	}

	for _, step := range budgetChain {
		step(&res, snap, duration)
	}

	if res.TotalBudget != nil {
		remaining := res.TotalBudget.Sub(res.ActualSpend)
		if remaining.IsPositive() {
			res.RemainingBudget = remaining
		}
	}
	return res
}

// budgetStep fills one still-unset budget field from another signal.
// Each step is independent and applied at most once per source; the
// cross-derivation steps appear twice so a field inherited late can
// still complete its counterpart.
type budgetStep func(res *domain.ResolvedCampaign, snap domain.CampaignSnapshot, durationDays int)

var budgetChain = []budgetStep{
	deriveDailyFromTotal,
	deriveTotalFromDaily,
	backfillFromSpend,
	inheritFromAdsets,
	deriveDailyFromTotal,
	deriveTotalFromDaily,
}

func deriveDailyFromTotal(res *domain.ResolvedCampaign, _ domain.CampaignSnapshot, durationDays int) {
	if res.DailyBudget != nil || res.TotalBudget == nil || durationDays <= 0 {
		return
	}
	daily := res.TotalBudget.Div(decimal.NewFromInt(int64(durationDays))).Round(2)
	res.DailyBudget = &daily
}

func deriveTotalFromDaily(res *domain.ResolvedCampaign, _ domain.CampaignSnapshot, durationDays int) {
	if res.TotalBudget != nil || res.DailyBudget == nil || durationDays <= 0 {
		return
	}
	total := res.DailyBudget.Mul(decimal.NewFromInt(int64(durationDays)))
	res.TotalBudget = &total
}

// backfillFromSpend assumes a fully spent budget when nothing else is
// known but money has moved.
func backfillFromSpend(res *domain.ResolvedCampaign, _ domain.CampaignSnapshot, durationDays int) {
	if res.DailyBudget != nil || res.TotalBudget != nil {
		return
	}
	if !res.ActualSpend.IsPositive() || durationDays <= 0 {
		return
	}
	daily := res.ActualSpend.Div(decimal.NewFromInt(int64(durationDays))).Round(2)
	total := res.ActualSpend
	res.DailyBudget = &daily
	res.TotalBudget = &total
	res.BudgetLevel = domain.BudgetLevelCampaign
}

// inheritFromAdsets pulls budgets configured one level down when the
// campaign itself carries none. The first adset providing each missing
// field wins.
func inheritFromAdsets(res *domain.ResolvedCampaign, snap domain.CampaignSnapshot, _ int) {
	for _, as := range snap.AdSets {
		if res.DailyBudget == nil {
			if daily := normalizeBudget(as.DailyBudget); daily != nil {
				res.DailyBudget = daily
				res.BudgetLevel = domain.BudgetLevelAdset
			}
		}
		if res.TotalBudget == nil {
			if total := normalizeBudget(as.LifetimeBudget); total != nil {
				res.TotalBudget = total
				res.BudgetLevel = domain.BudgetLevelAdset
			}
		}
		if res.DailyBudget != nil && res.TotalBudget != nil {
			return
		}
	}
}

func normalizeBudget(a domain.RawAmount) *decimal.Decimal {
	if !a.Valid || a.Value.IsNegative() {
		return nil
	}
	v := a.Value
	if v.GreaterThanOrEqual(minorUnitBudgetFloor) {
		v = v.Div(hundred)
	}
	return &v
}

func normalizeSpend(a domain.RawAmount) decimal.Decimal {
	if !a.Valid || a.Value.IsNegative() {
		return decimal.Zero
	}
	v := a.Value
	if v.GreaterThanOrEqual(minorUnitSpendFloor) {
		v = v.Div(hundred)
	}
	return v
}
