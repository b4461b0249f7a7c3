package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"adledger/internal/core/domain"
	"adledger/internal/core/port"
)

// handleListReconciliations returns reconciliations filtered by the
// optional `status` and `campaign_id` query parameters. Invalid statuses
// produce HTTP 400.
func (h *Handler) handleListReconciliations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f port.ReconciliationFilter
	if s := q.Get("status"); s != "" {
		status := domain.ReconciliationStatus(s)
		switch status {
		case domain.ReconciliationPending, domain.ReconciliationPaused, domain.ReconciliationCompleted:
			f.Status = &status
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}
	f.CampaignID = q.Get("campaign_id")

	recs, err := h.svc.ListReconciliations(r.Context(), f)
	if err != nil {
		h.logger.Error("list reconciliations error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, recs)
}

// handleListTransactions returns ledger rows filtered by the optional
// `status`, `type`, `campaign_id`, `from` and `to` (RFC3339) query
// parameters. Invalid parameters produce HTTP 400.
func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f port.TransactionFilter

	if s := q.Get("status"); s != "" {
		status := domain.TransactionStatus(s)
		switch status {
		case domain.TransactionPending, domain.TransactionCompleted:
			f.Status = &status
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("type"); s != "" {
		txType := domain.TransactionType(s)
		switch txType {
		case domain.TransactionIncome, domain.TransactionExpense, domain.TransactionProfit:
			f.Type = &txType
		default:
			http.Error(w, "invalid type", http.StatusBadRequest)
			return
		}
	}
	f.CampaignID = q.Get("campaign_id")

	if s := q.Get("from"); s != "" {
		from, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid 'from' timestamp", http.StatusBadRequest)
			return
		}
		f.From = &from
	}
	if s := q.Get("to"); s != "" {
		to, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid 'to' timestamp", http.StatusBadRequest)
			return
		}
		f.To = &to
	}

	txs, err := h.svc.ListTransactions(r.Context(), f)
	if err != nil {
		h.logger.Error("list transactions error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, txs)
}

// handleListPlans returns the active plan catalog.
func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("list plans error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, plans)
}
