package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adledger/internal/core/domain"
	"adledger/internal/core/matcher"
	"adledger/internal/core/normalizer"
	"adledger/internal/core/port"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func raw(s string) domain.RawAmount { return domain.NewRawAmount(dec(s)) }

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

var testNow = time.Date(2025, 9, 21, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory ReconciliationStore that enforces the same
// at-most-once semantics as the postgres implementation.
type fakeStore struct {
	recs       map[string]*domain.Reconciliation
	txs        map[string][]domain.Transaction
	adHocPlans []domain.Plan
	nextID     int64
	failCreate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recs: make(map[string]*domain.Reconciliation),
		txs:  make(map[string][]domain.Transaction),
	}
}

func (s *fakeStore) Exists(_ context.Context, campaignID string) (bool, error) {
	_, ok := s.recs[campaignID]
	return ok, nil
}

func (s *fakeStore) CreateWithLedger(_ context.Context, rec *domain.Reconciliation, adHoc *domain.Plan, txs []domain.Transaction) (bool, error) {
	if s.failCreate != nil {
		return false, s.failCreate
	}
	if _, ok := s.recs[rec.CampaignID]; ok {
		return false, nil
	}
	if adHoc != nil {
		s.nextID++
		adHoc.ID = s.nextID
		adHoc.CreatedAt = testNow
		s.adHocPlans = append(s.adHocPlans, *adHoc)
		rec.PlanID = &adHoc.ID
	}
	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = testNow
	rec.UpdatedAt = testNow
	stored := *rec
	s.recs[rec.CampaignID] = &stored
	for i := range txs {
		s.nextID++
		txs[i].ID = s.nextID
		txs[i].ReconciliationID = rec.ID
		if rec.PlanID != nil {
			txs[i].PlanID = rec.PlanID
		}
	}
	s.txs[rec.CampaignID] = append(s.txs[rec.CampaignID], txs...)
	return true, nil
}

func (s *fakeStore) GetByCampaignID(_ context.Context, campaignID string) (*domain.Reconciliation, error) {
	rec, ok := s.recs[campaignID]
	if !ok {
		return nil, port.ErrNotFound
	}
	found := *rec
	return &found, nil
}

func (s *fakeStore) List(_ context.Context, _ port.ReconciliationFilter) ([]domain.Reconciliation, error) {
	var out []domain.Reconciliation
	for _, rec := range s.recs {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) ListTransactions(_ context.Context, f port.TransactionFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for campaignID, txs := range s.txs {
		if f.CampaignID != "" && f.CampaignID != campaignID {
			continue
		}
		out = append(out, txs...)
	}
	return out, nil
}

func (s *fakeStore) SyncSpend(_ context.Context, campaignID string, actualSpend decimal.Decimal) (*domain.Reconciliation, error) {
	rec, ok := s.recs[campaignID]
	if !ok {
		return nil, port.ErrNotFound
	}
	fullySpent := rec.ApplySpend(actualSpend)
	txs := s.txs[campaignID]
	for i := range txs {
		if txs[i].Type != domain.TransactionExpense {
			continue
		}
		txs[i].Amount = actualSpend
		if fullySpent {
			txs[i].Status = domain.TransactionCompleted
		}
	}
	found := *rec
	return &found, nil
}

type fakeCatalog struct {
	plans []domain.Plan
}

func (c *fakeCatalog) ListActive(_ context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range c.plans {
		if p.Active && !p.AdHoc {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetByID(_ context.Context, id int64) (*domain.Plan, error) {
	for _, p := range c.plans {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

type fakeSource struct {
	snapshots map[string][]domain.CampaignSnapshot
	errs      map[string]error
}

func (s *fakeSource) FetchCampaigns(_ context.Context, accountID string) ([]domain.CampaignSnapshot, error) {
	if err := s.errs[accountID]; err != nil {
		return nil, err
	}
	return s.snapshots[accountID], nil
}

func starterPlan() domain.Plan {
	p := domain.NewPlan("Starter 5x10", dec("10.00"), 5, dec("75.00"))
	p.ID = 100
	p.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return p
}

func newTestReconciler(store *fakeStore, catalog *fakeCatalog, source port.SnapshotSource, accounts ...string) *Reconciler {
	r := NewReconciler(store, catalog, source,
		normalizer.New(normalizer.DefaultConfig()),
		matcher.New(matcher.DefaultConfig()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{Currency: "USD", Accounts: accounts})
	r.now = func() time.Time { return testNow }
	return r
}

// activeSnapshot is the canonical in-flight campaign: raw daily budget
// in cents, a five day schedule around testNow.
func activeSnapshot(id string) domain.CampaignSnapshot {
	return domain.CampaignSnapshot{
		ID:          id,
		Name:        "September push",
		Status:      "ACTIVE",
		DailyBudget: raw("1000"),
		StartTime:   ts("2025-09-19T00:00:00Z"),
		StopTime:    ts("2025-09-23T00:00:00Z"),
	}
}

func TestActiveCampaignWithExactMatchOpensThreeRowLedger(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)

	report, err := r.Run(context.Background(), []domain.CampaignSnapshot{activeSnapshot("c-1")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	rec := store.recs["c-1"]
	require.NotNil(t, rec)
	assert.Equal(t, domain.ReconciliationPending, rec.Status)
	require.NotNil(t, rec.PlanID)
	assert.Equal(t, int64(100), *rec.PlanID)
	assert.True(t, rec.PlannedBudget.Equal(dec("50.00")))
	assert.True(t, rec.Variance.Equal(dec("50.00")))

	txs := store.txs["c-1"]
	require.Len(t, txs, 3)
	byType := map[domain.TransactionType]domain.Transaction{}
	for _, tx := range txs {
		byType[tx.Type] = tx
		assert.Equal(t, rec.ID, tx.ReconciliationID)
		require.NotNil(t, tx.PlanID)
		assert.Equal(t, int64(100), *tx.PlanID)
		assert.Equal(t, "USD", tx.Currency)
		assert.NotEmpty(t, tx.Reference)
	}
	assert.True(t, byType[domain.TransactionIncome].Amount.Equal(dec("75.00")))
	assert.Equal(t, domain.TransactionCompleted, byType[domain.TransactionIncome].Status)
	assert.True(t, byType[domain.TransactionExpense].Amount.Equal(dec("50.00")))
	assert.Equal(t, domain.TransactionPending, byType[domain.TransactionExpense].Status)
	assert.True(t, byType[domain.TransactionProfit].Amount.Equal(dec("25.00")))
	assert.Equal(t, domain.TransactionPending, byType[domain.TransactionProfit].Status)

	// Profit is exactly client price minus total budget.
	assert.True(t, byType[domain.TransactionProfit].Amount.Equal(
		byType[domain.TransactionIncome].Amount.Sub(byType[domain.TransactionExpense].Amount)))
}

func TestPausedCampaignRecordsLossOnly(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)

	snap := activeSnapshot("c-2")
	snap.Status = "PAUSED"
	snap.Spend = raw("30")

	report, err := r.Run(context.Background(), []domain.CampaignSnapshot{snap})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	rec := store.recs["c-2"]
	require.NotNil(t, rec)
	assert.Equal(t, domain.ReconciliationPaused, rec.Status)
	assert.True(t, rec.PlannedBudget.Equal(dec("30")))
	assert.True(t, rec.Variance.IsZero())

	txs := store.txs["c-2"]
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionExpense, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(dec("30")))
	assert.Equal(t, domain.TransactionPending, txs[0].Status)
}

func TestPausedCampaignWithoutMatchSynthesizesAdHocPlan(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{}, nil)

	snap := activeSnapshot("c-3")
	snap.Status = "PAUSED"
	snap.Spend = raw("30")

	_, err := r.Run(context.Background(), []domain.CampaignSnapshot{snap})
	require.NoError(t, err)

	require.Len(t, store.adHocPlans, 1)
	adHoc := store.adHocPlans[0]
	assert.True(t, adHoc.AdHoc)
	assert.False(t, adHoc.Active)
	assert.True(t, adHoc.TotalBudget.Equal(dec("30")))

	rec := store.recs["c-3"]
	require.NotNil(t, rec)
	require.NotNil(t, rec.PlanID)
	assert.Equal(t, adHoc.ID, *rec.PlanID)
}

func TestRerunProducesNoNewRecords(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)
	batch := []domain.CampaignSnapshot{activeSnapshot("c-4")}

	first, err := r.Run(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := r.Run(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)

	assert.Len(t, store.recs, 1)
	assert.Len(t, store.txs["c-4"], 3)
}

func TestActiveCampaignWithoutMatchKeepsNullPlanAndEmptyLedger(t *testing.T) {
	store := newFakeStore()
	// Nearest plan differs by 3.00 daily budget: rejected by the gate.
	outOfRange := domain.NewPlan("Boost", dec("8.00"), 11, dec("100.00"))
	outOfRange.ID = 200
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{outOfRange}}, nil)

	snap := domain.CampaignSnapshot{
		ID:          "c-5",
		Name:        "Long tail",
		Status:      "ACTIVE",
		DailyBudget: raw("5"),
		StartTime:   ts("2025-09-15T00:00:00Z"),
		StopTime:    ts("2025-09-24T00:00:00Z"),
	}
	report, err := r.Run(context.Background(), []domain.CampaignSnapshot{snap})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	rec := store.recs["c-5"]
	require.NotNil(t, rec)
	assert.Nil(t, rec.PlanID)
	assert.True(t, rec.PlannedBudget.IsZero())
	assert.Empty(t, store.txs["c-5"])
}

func TestCompletedCampaignClosesWithAdHocPlan(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{}, nil)

	snap := domain.CampaignSnapshot{
		ID:        "c-6",
		Name:      "Finished run",
		Status:    "ACTIVE",
		Spend:     raw("4200"),
		StartTime: ts("2025-09-01T00:00:00Z"),
		StopTime:  ts("2025-09-10T00:00:00Z"),
	}
	_, err := r.Run(context.Background(), []domain.CampaignSnapshot{snap})
	require.NoError(t, err)

	rec := store.recs["c-6"]
	require.NotNil(t, rec)
	assert.Equal(t, domain.ReconciliationCompleted, rec.Status)
	assert.True(t, rec.PlannedBudget.Equal(dec("42")))
	assert.True(t, rec.Variance.IsZero())

	txs := store.txs["c-6"]
	require.Len(t, txs, 3)
	for _, tx := range txs {
		if tx.Type == domain.TransactionProfit {
			assert.True(t, tx.Amount.IsZero())
		}
	}
	require.Len(t, store.adHocPlans, 1)
}

func TestScheduledCampaignIsNotReconciled(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)

	snap := activeSnapshot("c-7")
	snap.StartTime = ts("2025-10-01T00:00:00Z")
	snap.StopTime = ts("2025-10-05T00:00:00Z")

	report, err := r.Run(context.Background(), []domain.CampaignSnapshot{snap})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, store.recs)
}

func TestRunIsolatesPerCampaignFailures(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)

	report, err := r.Run(context.Background(), []domain.CampaignSnapshot{
		{Name: "missing id", Status: "ACTIVE"},
		activeSnapshot("c-8"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Created)
	assert.NotNil(t, store.recs["c-8"])
}

func TestRunAccountsIsolatesFetchFailures(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		snapshots: map[string][]domain.CampaignSnapshot{
			"acct-good": {activeSnapshot("c-9")},
		},
		errs: map[string]error{"acct-bad": errors.New("platform unavailable")},
	}
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, source, "acct-bad", "acct-good")

	report, err := r.RunAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.AccountsFailed)
	assert.Equal(t, 1, report.Created)
	assert.NotNil(t, store.recs["c-9"])
}

func TestRunAccountsWithoutSource(t *testing.T) {
	r := newTestReconciler(newFakeStore(), &fakeCatalog{}, nil)
	_, err := r.RunAccounts(context.Background())
	assert.Error(t, err)
}

func TestSyncSpendCompletesReconciliationAndExpense(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)

	_, err := r.Run(context.Background(), []domain.CampaignSnapshot{activeSnapshot("c-10")})
	require.NoError(t, err)

	rec, err := r.SyncSpend(context.Background(), "c-10", dec("50.00"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationCompleted, rec.Status)
	assert.True(t, rec.Variance.IsZero())

	for _, tx := range store.txs["c-10"] {
		if tx.Type == domain.TransactionExpense {
			assert.True(t, tx.Amount.Equal(dec("50.00")))
			assert.Equal(t, domain.TransactionCompleted, tx.Status)
		}
	}
}

func TestSyncSpendUnknownCampaign(t *testing.T) {
	r := newTestReconciler(newFakeStore(), &fakeCatalog{}, nil)
	_, err := r.SyncSpend(context.Background(), "nope", dec("1"))
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestSyncSpendRejectsNegativeSpend(t *testing.T) {
	r := newTestReconciler(newFakeStore(), &fakeCatalog{}, nil)
	_, err := r.SyncSpend(context.Background(), "c", dec("-1"))
	assert.Error(t, err)
}

// signalSource reports each fetch on a channel so scheduler tests can
// wait for a pass without sleeping.
type signalSource struct {
	fetched chan struct{}
}

func (s *signalSource) FetchCampaigns(_ context.Context, _ string) ([]domain.CampaignSnapshot, error) {
	select {
	case s.fetched <- struct{}{}:
	default:
	}
	return nil, nil
}

func TestRunEveryInvokesScheduledPasses(t *testing.T) {
	source := &signalSource{fetched: make(chan struct{}, 1)}
	r := newTestReconciler(newFakeStore(), &fakeCatalog{}, source, "acct-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunEvery(ctx, time.Millisecond)
		close(done)
	}()

	select {
	case <-source.fetched:
	case <-time.After(time.Second):
		t.Fatal("no scheduled pass ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

func TestRunEveryDisabledByZeroInterval(t *testing.T) {
	r := newTestReconciler(newFakeStore(), &fakeCatalog{}, &fakeSource{}, "acct-1")
	// Returns immediately instead of blocking.
	r.RunEvery(context.Background(), 0)
}

func TestPersistenceFailureIsScopedToCampaign(t *testing.T) {
	store := newFakeStore()
	store.failCreate = errors.New("connection reset")
	r := newTestReconciler(store, &fakeCatalog{plans: []domain.Plan{starterPlan()}}, nil)

	report, err := r.Run(context.Background(), []domain.CampaignSnapshot{activeSnapshot("c-11")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Created)
}
