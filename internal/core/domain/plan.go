package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a pre-negotiated client advertising package: a fixed daily
// budget over a fixed number of days sold at a fixed price. TotalBudget
// and ProfitMargin are derived and stored denormalized so ledger rows
// can reference them without recomputation.
type Plan struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	DailyBudget  decimal.Decimal `json:"daily_budget"`
	DurationDays int             `json:"duration_days"`
	ClientPrice  decimal.Decimal `json:"client_price"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	Active       bool            `json:"active"`
	AdHoc        bool            `json:"ad_hoc"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewPlan builds a catalog plan, deriving total budget and profit margin.
func NewPlan(name string, dailyBudget decimal.Decimal, durationDays int, clientPrice decimal.Decimal) Plan {
	total := dailyBudget.Mul(decimal.NewFromInt(int64(durationDays)))
	return Plan{
		Name:         name,
		DailyBudget:  dailyBudget,
		DurationDays: durationDays,
		ClientPrice:  clientPrice,
		TotalBudget:  total,
		ProfitMargin: clientPrice.Sub(total),
		Active:       true,
	}
}

// NewAdHocPlan synthesizes a single-use plan sized to a campaign's actual
// spend, used when no catalog plan matches within tolerance. The client
// price equals the spend, so the derived margin is zero: an ad-hoc plan
// carries cost through the ledger, never profit. Ad-hoc plans are
// persisted inactive and excluded from the catalog.
func NewAdHocPlan(campaignName string, actualSpend decimal.Decimal, durationDays int) Plan {
	if durationDays <= 0 {
		durationDays = 1
	}
	return Plan{
		Name:         "ad-hoc: " + campaignName,
		DailyBudget:  actualSpend,
		DurationDays: durationDays,
		ClientPrice:  actualSpend,
		TotalBudget:  actualSpend,
		ProfitMargin: decimal.Zero,
		Active:       false,
		AdHoc:        true,
	}
}
