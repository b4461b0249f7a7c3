package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adledger/internal/core/port"
)

// Handler contains dependencies and routes. It is the inbound HTTP
// adapter of the surrounding application: a run trigger for the
// scheduler, the spend-sync hook and read-only ledger queries for
// reporting. Routes are registered on a chi.Router.
type Handler struct {
	svc    port.Reconciler
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured. It accepts a
// Reconciler implementation and a logger.
func NewHandler(svc port.Reconciler, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reconcile/run", h.handleRun)
		r.Post("/reconciliations/{campaignID}/spend-sync", h.handleSpendSync)
		r.Get("/reconciliations", h.handleListReconciliations)
		r.Get("/transactions", h.handleListTransactions)
		r.Get("/plans", h.handleListPlans)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

// writeJSON encodes v with the proper content type. Encoding failures
// are logged; headers are already gone at that point.
func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}
