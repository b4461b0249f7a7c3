package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adledger/internal/core/domain"
	"adledger/internal/core/port"
)

// PlanRepository implements port.PlanCatalog using pgxpool for
// PostgreSQL. The reconciliation engine treats the catalog as read-only;
// Create exists for seeding and admin tooling.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository returns a new repository instance.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

const planColumns = `id, name, daily_budget, duration_days, client_price, total_budget, profit_margin, active, ad_hoc, created_at`

// ListActive returns the catalog of active plans, newest first. Ad-hoc
// plans are single-use and never part of the catalog.
func (r *PlanRepository) ListActive(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plans WHERE active AND NOT ad_hoc ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanPlan)
}

// GetByID returns a plan by id, or nil when it does not exist.
func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	p, err := pgx.CollectOneRow(rows, scanPlan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Deactivate retires a catalog plan so the matcher stops considering
// it. Existing reconciliations keep referencing it. Ad-hoc plans are
// already inactive and are not touched; an unknown or ad-hoc id returns
// port.ErrNotFound.
func (r *PlanRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE plans SET active = FALSE WHERE id = $1 AND NOT ad_hoc`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrNotFound
	}
	return nil
}

// Create inserts a catalog plan and fills in its id and creation time.
func (r *PlanRepository) Create(ctx context.Context, p *domain.Plan) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO plans (name, daily_budget, duration_days, client_price, total_budget, profit_margin, active, ad_hoc)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
		p.Name, p.DailyBudget, p.DurationDays, p.ClientPrice, p.TotalBudget, p.ProfitMargin, p.Active, p.AdHoc,
	).Scan(&p.ID, &p.CreatedAt)
}

func scanPlan(row pgx.CollectableRow) (domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.DailyBudget,
		&p.DurationDays,
		&p.ClientPrice,
		&p.TotalBudget,
		&p.ProfitMargin,
		&p.Active,
		&p.AdHoc,
		&p.CreatedAt,
	)
	return p, err
}
