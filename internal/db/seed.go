package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SeedPlans inserts a demo plan catalog. Existing plans with the same
// name are left untouched, so seeding is safe to repeat.
func SeedPlans(ctx context.Context, pool *pgxpool.Pool) error {
	type seedPlan struct {
		name        string
		daily       string
		days        int
		clientPrice string
	}
	seeds := []seedPlan{
		{"Starter 5x10", "10.00", 5, "75.00"},
		{"Starter 7x10", "10.00", 7, "100.00"},
		{"Boost 5x20", "20.00", 5, "140.00"},
		{"Boost 10x20", "20.00", 10, "270.00"},
		{"Premium 15x50", "50.00", 15, "1000.00"},
	}
	for _, s := range seeds {
		daily := decimal.RequireFromString(s.daily)
		price := decimal.RequireFromString(s.clientPrice)
		total := daily.Mul(decimal.NewFromInt(int64(s.days)))
		_, err := pool.Exec(ctx, `INSERT INTO plans
    (name, daily_budget, duration_days, client_price, total_budget, profit_margin, active, ad_hoc)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,FALSE)
ON CONFLICT (name) WHERE NOT ad_hoc DO NOTHING`,
			s.name, daily, s.days, price, total, price.Sub(total))
		if err != nil {
			return err
		}
	}
	return nil
}
