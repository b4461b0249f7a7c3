package configs

import "time"

// Recon configures the reconciliation engine: the fallback constants of
// the budget normalizer, the plan matcher tolerances, the currency
// stamped on ledger rows and the pull-based scheduling. SeedPlans
// inserts a demo plan catalog on startup and is only meant for local
// development.
type Recon struct {
	// DefaultDurationDays is the campaign duration assumed when neither
	// timestamps nor the campaign name yield one.
	DefaultDurationDays int `env:"DEFAULT_DURATION_DAYS" envDefault:"5"`

	// Currency is the ISO code stamped on every ledger transaction.
	Currency string `env:"CURRENCY" envDefault:"USD"`

	// Accounts lists ads-platform account ids, comma separated.
	Accounts []string `env:"ACCOUNTS" envSeparator:","`

	// SourceURL is the base URL of the ads-platform snapshot endpoint.
	// Empty disables the pull path; snapshots then arrive only through
	// the run endpoint.
	SourceURL string `env:"SOURCE_URL"`

	// RunInterval schedules automatic RunAccounts passes. Zero disables
	// the scheduler.
	RunInterval time.Duration `env:"RUN_INTERVAL" envDefault:"0"`

	// ExactBudgetTolerance is the daily-budget window for an exact plan
	// match, in currency units.
	ExactBudgetTolerance float64 `env:"EXACT_BUDGET_TOLERANCE" envDefault:"0.01"`

	// NearestBudgetTolerance is the acceptance gate on the nearest
	// match's daily-budget difference.
	NearestBudgetTolerance float64 `env:"NEAREST_BUDGET_TOLERANCE" envDefault:"1"`

	// NearestDurationTolerance is the acceptance gate on the nearest
	// match's duration difference, in days.
	NearestDurationTolerance int `env:"NEAREST_DURATION_TOLERANCE" envDefault:"2"`

	// SeedPlans inserts a demo plan catalog on startup.
	SeedPlans bool `env:"SEED_PLANS" envDefault:"false"`
}
