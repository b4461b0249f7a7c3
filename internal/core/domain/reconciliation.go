package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus tracks the lifecycle of a reconciliation record.
type ReconciliationStatus string

const (
	ReconciliationPending   ReconciliationStatus = "pending"
	ReconciliationPaused    ReconciliationStatus = "paused"
	ReconciliationCompleted ReconciliationStatus = "completed"
)

// Reconciliation links one observed campaign to a plan with the budget
// and spend variance at reconciliation time. At most one reconciliation
// ever exists per campaign id; the record is immutable after creation
// except through the spend-sync operation.
type Reconciliation struct {
	ID            int64                `json:"id"`
	CampaignID    string               `json:"campaign_id"`
	CampaignName  string               `json:"campaign_name"`
	PlanID        *int64               `json:"plan_id"`
	PlannedBudget decimal.Decimal      `json:"planned_budget"`
	ActualSpend   decimal.Decimal      `json:"actual_spend"`
	Variance      decimal.Decimal      `json:"variance"`
	VariancePct   decimal.Decimal      `json:"variance_pct"`
	Status        ReconciliationStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// VariancePct returns the variance as a percentage of the planned budget,
// rounded to four decimal places. A zero planned budget yields zero.
func VariancePct(plannedBudget, variance decimal.Decimal) decimal.Decimal {
	if !plannedBudget.IsPositive() {
		return decimal.Zero
	}
	return variance.Div(plannedBudget).Mul(hundred).Round(4)
}

// ApplySpend records a new actual spend from a spend-sync trigger,
// recomputing variance and flipping the status to completed once spend
// reaches the planned budget. It reports whether the reconciliation is
// now fully spent. No other field may change after creation.
func (r *Reconciliation) ApplySpend(actualSpend decimal.Decimal) bool {
	r.ActualSpend = actualSpend
	r.Variance = r.PlannedBudget.Sub(actualSpend)
	r.VariancePct = VariancePct(r.PlannedBudget, r.Variance)
	done := actualSpend.GreaterThanOrEqual(r.PlannedBudget)
	if done {
		r.Status = ReconciliationCompleted
	}
	return done
}
