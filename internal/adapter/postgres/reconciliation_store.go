package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"adledger/internal/core/domain"
	"adledger/internal/core/port"
)

// ReconciliationStore implements port.ReconciliationStore using pgxpool
// for PostgreSQL. The at-most-once guarantee rests on the UNIQUE
// constraint on reconciliations.campaign_id: the insert races safely
// across concurrent passes and exactly one writer wins.
type ReconciliationStore struct {
	pool *pgxpool.Pool
}

// NewReconciliationStore returns a new store instance.
func NewReconciliationStore(pool *pgxpool.Pool) *ReconciliationStore {
	return &ReconciliationStore{pool: pool}
}

const reconciliationColumns = `id, campaign_id, campaign_name, plan_id, planned_budget, actual_spend, variance, variance_pct, status, created_at, updated_at`

// Exists reports whether a campaign is already reconciled.
func (s *ReconciliationStore) Exists(ctx context.Context, campaignID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reconciliations WHERE campaign_id = $1)`, campaignID).Scan(&exists)
	return exists, err
}

// CreateWithLedger writes the reconciliation, its optional ad-hoc plan
// and its ledger rows in one transaction. A conflict on campaign_id
// rolls everything back and reports created=false with no error: the
// campaign was reconciled by an earlier or concurrent pass.
func (s *ReconciliationStore) CreateWithLedger(ctx context.Context, rec *domain.Reconciliation, adHoc *domain.Plan, txs []domain.Transaction) (created bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !created {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			created, err = false, cerr
		}
	}()

	if adHoc != nil {
		err = tx.QueryRow(ctx,
			`INSERT INTO plans (name, daily_budget, duration_days, client_price, total_budget, profit_margin, active, ad_hoc)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
			adHoc.Name, adHoc.DailyBudget, adHoc.DurationDays, adHoc.ClientPrice,
			adHoc.TotalBudget, adHoc.ProfitMargin, adHoc.Active, adHoc.AdHoc,
		).Scan(&adHoc.ID, &adHoc.CreatedAt)
		if err != nil {
			return false, fmt.Errorf("insert ad-hoc plan: %w", err)
		}
		rec.PlanID = &adHoc.ID
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO reconciliations (campaign_id, campaign_name, plan_id, planned_budget, actual_spend, variance, variance_pct, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (campaign_id) DO NOTHING
		 RETURNING id, created_at, updated_at`,
		rec.CampaignID, rec.CampaignName, rec.PlanID, rec.PlannedBudget,
		rec.ActualSpend, rec.Variance, rec.VariancePct, rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already reconciled by an earlier or concurrent pass.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert reconciliation: %w", err)
	}

	for i := range txs {
		t := &txs[i]
		t.ReconciliationID = rec.ID
		if rec.PlanID != nil {
			t.PlanID = rec.PlanID
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO transactions (reconciliation_id, plan_id, reference, type, amount, currency, status, transaction_date)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
			t.ReconciliationID, t.PlanID, t.Reference, t.Type, t.Amount, t.Currency, t.Status, t.TransactionDate,
		).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return false, fmt.Errorf("insert %s transaction: %w", t.Type, err)
		}
	}

	created = true
	return true, nil
}

// GetByCampaignID returns the reconciliation for a campaign.
func (s *ReconciliationStore) GetByCampaignID(ctx context.Context, campaignID string) (*domain.Reconciliation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliations WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	rec, err := pgx.CollectOneRow(rows, scanReconciliation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns reconciliations matching the filter, newest first.
func (s *ReconciliationStore) List(ctx context.Context, f port.ReconciliationFilter) ([]domain.Reconciliation, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CampaignID != "" {
		args = append(args, f.CampaignID)
		where = append(where, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanReconciliation)
}

// ListTransactions returns ledger rows matching the filter, ordered by
// transaction date for reporting consumers.
func (s *ReconciliationStore) ListTransactions(ctx context.Context, f port.TransactionFilter) ([]domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if f.Type != nil {
		args = append(args, *f.Type)
		where = append(where, fmt.Sprintf("t.type = $%d", len(args)))
	}
	if f.CampaignID != "" {
		args = append(args, f.CampaignID)
		where = append(where, fmt.Sprintf("r.campaign_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("t.transaction_date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("t.transaction_date <= $%d", len(args)))
	}
	query := `SELECT t.id, t.reconciliation_id, t.plan_id, t.reference, t.type, t.amount, t.currency, t.status, t.transaction_date, t.created_at
		FROM transactions t
		JOIN reconciliations r ON r.id = t.reconciliation_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.transaction_date, t.id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var t domain.Transaction
		err := row.Scan(&t.ID, &t.ReconciliationID, &t.PlanID, &t.Reference, &t.Type,
			&t.Amount, &t.Currency, &t.Status, &t.TransactionDate, &t.CreatedAt)
		return t, err
	})
}

// SyncSpend locks the reconciliation row, applies the new spend and
// updates the linked expense transaction in the same database
// transaction. The expense amount tracks the spend; once fully spent
// both the reconciliation and the expense flip to completed.
func (s *ReconciliationStore) SyncSpend(ctx context.Context, campaignID string, actualSpend decimal.Decimal) (rec *domain.Reconciliation, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			rec, err = nil, cerr
		}
	}()

	rows, err := tx.Query(ctx,
		`SELECT `+reconciliationColumns+` FROM reconciliations WHERE campaign_id = $1 FOR UPDATE`, campaignID)
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectOneRow(rows, scanReconciliation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	fullySpent := found.ApplySpend(actualSpend)

	err = tx.QueryRow(ctx,
		`UPDATE reconciliations
		 SET actual_spend = $1, variance = $2, variance_pct = $3, status = $4, updated_at = now()
		 WHERE id = $5 RETURNING updated_at`,
		found.ActualSpend, found.Variance, found.VariancePct, found.Status, found.ID,
	).Scan(&found.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update reconciliation: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE transactions
		 SET amount = $1, status = CASE WHEN $2 THEN 'completed' ELSE status END
		 WHERE reconciliation_id = $3 AND type = 'expense'`,
		actualSpend, fullySpent, found.ID,
	); err != nil {
		return nil, fmt.Errorf("update expense transaction: %w", err)
	}

	return &found, nil
}

func scanReconciliation(row pgx.CollectableRow) (domain.Reconciliation, error) {
	var rec domain.Reconciliation
	err := row.Scan(
		&rec.ID,
		&rec.CampaignID,
		&rec.CampaignName,
		&rec.PlanID,
		&rec.PlannedBudget,
		&rec.ActualSpend,
		&rec.Variance,
		&rec.VariancePct,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
