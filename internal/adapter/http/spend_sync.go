package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"adledger/internal/core/port"
)

// spendSyncRequest carries the externally observed spend for a campaign.
// Decimal accepts both JSON numbers and quoted strings.
type spendSyncRequest struct {
	ActualSpend decimal.Decimal `json:"actual_spend"`
}

// handleSpendSync applies a new actual spend to an existing
// reconciliation. It expects a {campaignID} path parameter. Unknown
// campaigns produce HTTP 404, malformed bodies HTTP 400. On success the
// updated reconciliation is returned.
func (h *Handler) handleSpendSync(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaign id", http.StatusBadRequest)
		return
	}
	var req spendSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ActualSpend.IsNegative() {
		http.Error(w, "actual_spend cannot be negative", http.StatusBadRequest)
		return
	}
	rec, err := h.svc.SyncSpend(r.Context(), campaignID, req.ActualSpend)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("spend sync error",
			slog.String("campaign_id", campaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, rec)
}
