package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"adledger/internal/core/domain"
	"adledger/internal/core/matcher"
	"adledger/internal/core/normalizer"
	"adledger/internal/core/port"
)

// Config holds the run-time options of the reconciliation engine.
type Config struct {
	// Currency stamps every ledger row. Multi-currency settlement is
	// not supported.
	Currency string
	// Accounts lists the ads-platform account ids pulled by RunAccounts.
	Accounts []string
}

// Reconciler implements port.Reconciler: it classifies each campaign's
// lifecycle, matches it against the plan catalog and writes at most one
// reconciliation with its ledger rows per campaign id, ever.
//
// Once a campaign is reconciled it is never revisited: a
// paused-to-active or scheduled-to-active transition does not
// re-trigger reconciliation. The only permitted mutation afterwards is
// SyncSpend.
type Reconciler struct {
	store      port.ReconciliationStore
	catalog    port.PlanCatalog
	source     port.SnapshotSource
	normalizer *normalizer.Normalizer
	matcher    *matcher.Matcher
	logger     *slog.Logger
	cfg        Config

	now func() time.Time
}

// NewReconciler wires the engine. source may be nil when the surrounding
// application pushes snapshots itself instead of having the engine pull.
func NewReconciler(store port.ReconciliationStore, catalog port.PlanCatalog, source port.SnapshotSource,
	n *normalizer.Normalizer, m *matcher.Matcher, logger *slog.Logger, cfg Config) *Reconciler {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Reconciler{
		store:      store,
		catalog:    catalog,
		source:     source,
		normalizer: n,
		matcher:    m,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run processes a batch of snapshots sequentially. Per-campaign failures
// are logged and counted; they never abort the batch.
func (r *Reconciler) Run(ctx context.Context, snapshots []domain.CampaignSnapshot) (*port.RunReport, error) {
	report := &port.RunReport{}
	now := r.now()
	for _, snap := range snapshots {
		report.Processed++
		created, err := r.processOne(ctx, snap, now)
		if err != nil {
			report.Failed++
			r.logger.Error("reconcile campaign",
				slog.String("campaign_id", snap.ID), slog.Any("error", err))
			continue
		}
		if created {
			report.Created++
		} else {
			report.Skipped++
		}
	}
	r.logger.Info("reconciliation pass finished",
		slog.Int("processed", report.Processed),
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, nil
}

// RunAccounts pulls snapshots from the configured source, isolating each
// account: a fetch failure on one account is logged and the pass moves
// on to the next.
func (r *Reconciler) RunAccounts(ctx context.Context) (*port.RunReport, error) {
	if r.source == nil {
		return nil, errors.New("no snapshot source configured")
	}
	total := &port.RunReport{}
	for _, account := range r.cfg.Accounts {
		snapshots, err := r.source.FetchCampaigns(ctx, account)
		if err != nil {
			total.AccountsFailed++
			r.logger.Error("fetch account campaigns",
				slog.String("account_id", account), slog.Any("error", err))
			continue
		}
		report, err := r.Run(ctx, snapshots)
		if err != nil {
			return nil, err
		}
		total.Merge(report)
	}
	return total, nil
}

// RunEvery invokes RunAccounts on a fixed interval until the context is
// cancelled. A non-positive interval returns immediately; pass failures
// are logged and the loop keeps ticking.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunAccounts(ctx); err != nil {
				r.logger.Error("scheduled reconciliation pass", slog.Any("error", err))
			}
		}
	}
}

// processOne runs the lifecycle state machine for a single campaign. It
// reports whether a reconciliation was created.
func (r *Reconciler) processOne(ctx context.Context, snap domain.CampaignSnapshot, now time.Time) (bool, error) {
	if snap.ID == "" {
		return false, errors.New("snapshot without campaign id")
	}

	// Fast path; the atomic insert in the store is the real guard
	// against concurrent passes.
	exists, err := r.store.Exists(ctx, snap.ID)
	if err != nil {
		return false, fmt.Errorf("check reconciliation: %w", err)
	}
	if exists {
		r.logger.Debug("campaign already reconciled", slog.String("campaign_id", snap.ID))
		return false, nil
	}

	res := r.normalizer.Resolve(snap, now)
	if res.BudgetLevel == domain.BudgetLevelUnknown {
		r.logger.Warn("campaign resolved without budget signal",
			slog.String("campaign_id", res.ID), slog.String("name", res.Name))
	}

	switch res.Lifecycle {
	case domain.LifecycleScheduled:
		r.logger.Info("campaign not started yet, skipping",
			slog.String("campaign_id", res.ID))
		return false, nil
	case domain.LifecycleUnknown:
		r.logger.Warn("campaign lifecycle unknown, skipping",
			slog.String("campaign_id", res.ID), slog.String("status", snap.Status))
		return false, nil
	case domain.LifecycleActive:
		return r.reconcileActive(ctx, res, now)
	case domain.LifecyclePaused:
		return r.reconcilePaused(ctx, res, now)
	case domain.LifecycleCompleted:
		return r.reconcileCompleted(ctx, res, now)
	default:
		return false, fmt.Errorf("unhandled lifecycle %q", res.Lifecycle)
	}
}

// reconcileActive creates a pending reconciliation. With a matched plan
// it opens the full three-row ledger; without one the reconciliation
// persists with a null plan and no ledger rows.
func (r *Reconciler) reconcileActive(ctx context.Context, res domain.ResolvedCampaign, now time.Time) (bool, error) {
	plan, err := r.matchPlan(ctx, res)
	if err != nil {
		return false, err
	}

	rec := &domain.Reconciliation{
		CampaignID:    res.ID,
		CampaignName:  res.Name,
		PlannedBudget: decimal.Zero,
		ActualSpend:   res.ActualSpend,
		Status:        domain.ReconciliationPending,
	}
	var txs []domain.Transaction
	if plan != nil {
		rec.PlanID = &plan.ID
		rec.PlannedBudget = plan.TotalBudget
		txs = r.ledgerRows(plan, now)
	} else {
		r.logger.Info("no plan matched for active campaign",
			slog.String("campaign_id", res.ID))
	}
	rec.Variance = rec.PlannedBudget.Sub(res.ActualSpend)

	return r.store.CreateWithLedger(ctx, rec, nil, txs)
}

// reconcilePaused records a paused campaign as a loss: planned budget is
// pinned to the actual spend and the only ledger row is the expense.
// When no catalog plan matches, an ad-hoc plan sized to the spend is
// synthesized so the ledger always references a plan.
func (r *Reconciler) reconcilePaused(ctx context.Context, res domain.ResolvedCampaign, now time.Time) (bool, error) {
	plan, err := r.matchPlan(ctx, res)
	if err != nil {
		return false, err
	}
	var adHoc *domain.Plan
	if plan == nil {
		p := r.adHocPlan(res)
		adHoc = &p
		plan = adHoc
	}

	rec := &domain.Reconciliation{
		CampaignID:    res.ID,
		CampaignName:  res.Name,
		PlannedBudget: res.ActualSpend,
		ActualSpend:   res.ActualSpend,
		Variance:      decimal.Zero,
		Status:        domain.ReconciliationPaused,
	}
	if adHoc == nil {
		rec.PlanID = &plan.ID
	}

	txs := []domain.Transaction{{
		PlanID:          rec.PlanID,
		Reference:       uuid.NewString(),
		Type:            domain.TransactionExpense,
		Amount:          res.ActualSpend,
		Currency:        r.cfg.Currency,
		Status:          domain.TransactionPending,
		TransactionDate: now,
	}}
	return r.store.CreateWithLedger(ctx, rec, adHoc, txs)
}

// reconcileCompleted closes the books on a finished campaign with final
// actuals and the full three-row ledger.
func (r *Reconciler) reconcileCompleted(ctx context.Context, res domain.ResolvedCampaign, now time.Time) (bool, error) {
	plan, err := r.matchPlan(ctx, res)
	if err != nil {
		return false, err
	}
	var adHoc *domain.Plan
	if plan == nil {
		p := r.adHocPlan(res)
		adHoc = &p
		plan = adHoc
	}

	variance := plan.TotalBudget.Sub(res.ActualSpend)
	rec := &domain.Reconciliation{
		CampaignID:    res.ID,
		CampaignName:  res.Name,
		PlannedBudget: plan.TotalBudget,
		ActualSpend:   res.ActualSpend,
		Variance:      variance,
		VariancePct:   domain.VariancePct(plan.TotalBudget, variance),
		Status:        domain.ReconciliationCompleted,
	}
	if adHoc == nil {
		rec.PlanID = &plan.ID
	}

	return r.store.CreateWithLedger(ctx, rec, adHoc, r.ledgerRows(plan, now))
}

// SyncSpend applies an externally supplied actual spend to an existing
// reconciliation and its expense row. It never creates ledger rows.
func (r *Reconciler) SyncSpend(ctx context.Context, campaignID string, actualSpend decimal.Decimal) (*domain.Reconciliation, error) {
	if actualSpend.IsNegative() {
		return nil, errors.New("actual spend cannot be negative")
	}
	rec, err := r.store.SyncSpend(ctx, campaignID, actualSpend)
	if err != nil {
		return nil, err
	}
	r.logger.Info("spend synced",
		slog.String("campaign_id", campaignID),
		slog.String("actual_spend", actualSpend.String()),
		slog.String("status", string(rec.Status)))
	return rec, nil
}

// ListReconciliations exposes stored reconciliations for reporting.
func (r *Reconciler) ListReconciliations(ctx context.Context, f port.ReconciliationFilter) ([]domain.Reconciliation, error) {
	return r.store.List(ctx, f)
}

// ListTransactions exposes the ledger for reporting.
func (r *Reconciler) ListTransactions(ctx context.Context, f port.TransactionFilter) ([]domain.Transaction, error) {
	return r.store.ListTransactions(ctx, f)
}

// ListPlans exposes the active plan catalog.
func (r *Reconciler) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return r.catalog.ListActive(ctx)
}

func (r *Reconciler) matchPlan(ctx context.Context, res domain.ResolvedCampaign) (*domain.Plan, error) {
	plans, err := r.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}
	return r.matcher.Match(plans, res.DailyBudget, res.DurationDays), nil
}

func (r *Reconciler) adHocPlan(res domain.ResolvedCampaign) domain.Plan {
	duration := 1
	if res.DurationDays != nil {
		duration = *res.DurationDays
	}
	return domain.NewAdHocPlan(res.Name, res.ActualSpend, duration)
}

// ledgerRows builds the canonical three-row ledger for a plan: the
// client's payment, the media spend owed to the platform and the margin.
// The expense and profit stay pending until the spend settles.
func (r *Reconciler) ledgerRows(plan *domain.Plan, now time.Time) []domain.Transaction {
	var planID *int64
	if plan.ID != 0 {
		planID = &plan.ID
	}
	row := func(t domain.TransactionType, amount decimal.Decimal, status domain.TransactionStatus) domain.Transaction {
		return domain.Transaction{
			PlanID:          planID,
			Reference:       uuid.NewString(),
			Type:            t,
			Amount:          amount,
			Currency:        r.cfg.Currency,
			Status:          status,
			TransactionDate: now,
		}
	}
	return []domain.Transaction{
		row(domain.TransactionIncome, plan.ClientPrice, domain.TransactionCompleted),
		row(domain.TransactionExpense, plan.TotalBudget, domain.TransactionPending),
		row(domain.TransactionProfit, plan.ProfitMargin, domain.TransactionPending),
	}
}
