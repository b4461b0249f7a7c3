package port

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"adledger/internal/core/domain"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// PlanCatalog is the read-only view of the negotiated plan catalog. The
// reconciliation engine never mutates it; ad-hoc plans are written
// through the ReconciliationStore so they share the ledger transaction.
type PlanCatalog interface {
	// ListActive returns all active catalog plans, excluding ad-hoc ones.
	ListActive(ctx context.Context) ([]domain.Plan, error)
	// GetByID returns a plan by id, or nil when it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Plan, error)
}

// ReconciliationStore is the outbound port for reconciliation and ledger
// persistence. Implementations must back the campaign-id uniqueness with
// a storage-level constraint: concurrent runs may race on the same
// campaign and exactly one writer may win.
type ReconciliationStore interface {
	// Exists reports whether a reconciliation already exists for the
	// campaign. It is a fast path only; CreateWithLedger is the guard.
	Exists(ctx context.Context, campaignID string) (bool, error)

	// CreateWithLedger atomically persists a reconciliation together
	// with its ledger rows and, when adHoc is non-nil, the synthesized
	// plan they reference. It returns false with a nil error when the
	// campaign is already reconciled, leaving the store untouched.
	// Either everything is written or nothing is.
	CreateWithLedger(ctx context.Context, rec *domain.Reconciliation, adHoc *domain.Plan, txs []domain.Transaction) (bool, error)

	// GetByCampaignID returns the reconciliation for a campaign, or
	// ErrNotFound.
	GetByCampaignID(ctx context.Context, campaignID string) (*domain.Reconciliation, error)

	// List returns reconciliations matching the filter.
	List(ctx context.Context, f ReconciliationFilter) ([]domain.Reconciliation, error)

	// ListTransactions returns ledger rows matching the filter.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error)

	// SyncSpend applies a new actual spend to an existing reconciliation
	// and its linked expense row in one transaction. It returns the
	// updated reconciliation, or ErrNotFound.
	SyncSpend(ctx context.Context, campaignID string, actualSpend decimal.Decimal) (*domain.Reconciliation, error)
}

// SnapshotSource is the ads-platform client collaborator. Fetching the
// nested campaign trees, including retries and backoff, is entirely its
// concern; the engine only consumes the result.
type SnapshotSource interface {
	FetchCampaigns(ctx context.Context, accountID string) ([]domain.CampaignSnapshot, error)
}

// ReconciliationFilter narrows reconciliation queries.
type ReconciliationFilter struct {
	Status     *domain.ReconciliationStatus
	CampaignID string
}

// TransactionFilter narrows ledger queries for downstream reporting.
type TransactionFilter struct {
	Status     *domain.TransactionStatus
	Type       *domain.TransactionType
	CampaignID string
	From       *time.Time
	To         *time.Time
}
