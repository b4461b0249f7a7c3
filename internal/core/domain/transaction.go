package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger row. A loss is represented as an expense
// row with no matching income row, never as a combined record.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
	TransactionProfit  TransactionType = "profit"
)

// TransactionStatus marks whether a ledger amount is settled.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
)

// Transaction is a single ledger entry tied to a reconciliation and,
// through it, to a plan. Rows are append-only except that a spend-sync
// may update the linked expense row's amount and status. Reference is a
// stable external key for downstream accounting exports.
type Transaction struct {
	ID               int64             `json:"id"`
	ReconciliationID int64             `json:"reconciliation_id"`
	PlanID           *int64            `json:"plan_id"`
	Reference        string            `json:"reference"`
	Type             TransactionType   `json:"type"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Status           TransactionStatus `json:"status"`
	TransactionDate  time.Time         `json:"transaction_date"`
	CreatedAt        time.Time         `json:"created_at"`
}
