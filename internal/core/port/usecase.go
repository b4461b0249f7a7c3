package port

import (
	"context"

	"github.com/shopspring/decimal"

	"adledger/internal/core/domain"
)

// Reconciler is the inbound port of the reconciliation engine. The
// surrounding application invokes it from a scheduled job or through the
// ops HTTP surface. Re-invoking a full pass is always safe: only
// unreconciled campaigns produce new records.
type Reconciler interface {
	// Run processes one batch of campaign snapshots sequentially. A
	// failure on one campaign is counted and does not stop the batch.
	Run(ctx context.Context, snapshots []domain.CampaignSnapshot) (*RunReport, error)

	// RunAccounts pulls snapshots from the configured snapshot source,
	// one account at a time. One account's fetch failure does not block
	// reconciliation of the others.
	RunAccounts(ctx context.Context) (*RunReport, error)

	// SyncSpend applies an externally observed actual spend to an
	// existing reconciliation. It never creates new ledger rows.
	SyncSpend(ctx context.Context, campaignID string, actualSpend decimal.Decimal) (*domain.Reconciliation, error)

	// ListReconciliations exposes the store for reporting.
	ListReconciliations(ctx context.Context, f ReconciliationFilter) ([]domain.Reconciliation, error)

	// ListTransactions exposes the ledger for reporting.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error)

	// ListPlans exposes the active plan catalog.
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}

// RunReport summarizes one reconciliation pass.
type RunReport struct {
	Processed      int `json:"processed"`
	Created        int `json:"created"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	AccountsFailed int `json:"accounts_failed,omitempty"`
}

// Merge folds another report into this one.
func (r *RunReport) Merge(other *RunReport) {
	if other == nil {
		return
	}
	r.Processed += other.Processed
	r.Created += other.Created
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.AccountsFailed += other.AccountsFailed
}
