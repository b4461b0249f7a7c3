package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"adledger/internal/core/domain"
)

// runRequest carries one batch of campaign snapshots pushed by the
// ingestion collaborator.
type runRequest struct {
	Snapshots []domain.CampaignSnapshot `json:"snapshots"`
}

// handleRun processes a batch of campaign snapshots and returns the run
// report. Re-invoking with the same campaigns is safe: already
// reconciled campaigns are counted as skipped. Parsing errors produce
// HTTP 400; internal errors HTTP 500.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	report, err := h.svc.Run(r.Context(), req.Snapshots)
	if err != nil {
		h.logger.Error("reconciliation run error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report)
}
