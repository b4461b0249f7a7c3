package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetLevel records where in the campaign hierarchy the budget signal
// was found. Campaign-level budgets take precedence over adset-level ones.
type BudgetLevel string

const (
	BudgetLevelCampaign BudgetLevel = "campaign"
	BudgetLevelAdset    BudgetLevel = "adset"
	BudgetLevelUnknown  BudgetLevel = "unknown"
)

// Lifecycle is the reconciliation engine's view of a campaign's state,
// derived from the platform-reported status plus the schedule timestamps.
type Lifecycle string

const (
	LifecycleScheduled Lifecycle = "scheduled"
	LifecycleActive    Lifecycle = "active"
	LifecyclePaused    Lifecycle = "paused"
	LifecycleCompleted Lifecycle = "completed"
	LifecycleUnknown   Lifecycle = "unknown"
)

// ResolvedCampaign is a campaign snapshot after budget, duration and
// lifecycle normalization. It is recomputed every ingestion cycle and
// never persisted. Nil budget pointers mean the value could not be
// resolved from any source.
type ResolvedCampaign struct {
	ID              string
	Name            string
	DailyBudget     *decimal.Decimal
	TotalBudget     *decimal.Decimal
	DurationDays    *int
	ActualSpend     decimal.Decimal
	RemainingBudget decimal.Decimal
	BudgetLevel     BudgetLevel
	Lifecycle       Lifecycle
}

// ClassifyLifecycle derives the lifecycle state of a snapshot at the
// given instant. Schedule timestamps win over the reported status: a
// campaign before its start is scheduled and one past its stop is
// completed regardless of what the platform reports. Within range an
// active report means active; a paused report means paused; anything
// else is unknown and left for the next cycle.
func ClassifyLifecycle(snap CampaignSnapshot, now time.Time) Lifecycle {
	if snap.StartTime != nil && now.Before(*snap.StartTime) {
		return LifecycleScheduled
	}
	if snap.StopTime != nil && now.After(*snap.StopTime) {
		return LifecycleCompleted
	}
	switch strings.ToUpper(strings.TrimSpace(snap.Status)) {
	case "ACTIVE":
		return LifecycleActive
	case "PAUSED", "CAMPAIGN_PAUSED", "ADSET_PAUSED":
		return LifecyclePaused
	default:
		return LifecycleUnknown
	}
}
