package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Mutombwa/bard-reco/internal/api/dto"
	"github.com/Mutombwa/bard-reco/internal/domain/recon"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/storage"
)

// ReconcileHandler handles reconciliation and settlement requests.
type ReconcileHandler struct {
	*Base
	cfg    recon.Config
	logger *slog.Logger
}

// NewReconcileHandler creates a new reconcile handler. cfg supplies the
// matching configuration used when a request carries no override.
func NewReconcileHandler(repo storage.Repository, cfg recon.Config, logger *slog.Logger) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{
		Base:   NewBase(repo),
		cfg:    cfg,
		logger: logger,
	}
}

// Reconcile handles POST /api/reconcile - matches a ledger against a statement.
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	req, engine, ok := h.prepare(w, r)
	if !ok {
		return
	}

	result, err := engine.Reconcile(r.Context(), req.Ledger.ToDataset(), req.Statement.ToDataset())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.recordRun(storage.ModeReconcile, result)
	h.WriteJSON(w, http.StatusOK, dto.ReconcileResponse{Result: result})
}

// Settle handles POST /api/settle - runs the settlement cascade over a single
// debit/credit file. Only the ledger dataset of the request is used.
func (h *ReconcileHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return
	}
	if len(req.Ledger.Rows) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("ledger rows are required"))
		return
	}

	engine, ok := h.newEngine(w, req.Config)
	if !ok {
		return
	}

	result, err := engine.Settle(r.Context(), req.Ledger.ToDataset())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.recordRun(storage.ModeSettle, result)
	h.WriteJSON(w, http.StatusOK, dto.ReconcileResponse{Result: result})
}

// prepare decodes and validates a full two-dataset request and builds the
// engine for it.
func (h *ReconcileHandler) prepare(w http.ResponseWriter, r *http.Request) (*dto.ReconcileRequest, *recon.Engine, bool) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return nil, nil, false
	}
	if err := req.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return nil, nil, false
	}
	engine, ok := h.newEngine(w, req.Config)
	if !ok {
		return nil, nil, false
	}
	return &req, engine, true
}

func (h *ReconcileHandler) newEngine(w http.ResponseWriter, override *recon.Config) (*recon.Engine, bool) {
	cfg := h.cfg
	if override != nil {
		cfg = *override
	}
	engine, err := recon.New(cfg, h.logger)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return nil, false
	}
	return engine, true
}

// recordRun persists the audit record. Storage failures are logged but never
// fail the request; the caller already has the result.
func (h *ReconcileHandler) recordRun(mode string, result *recon.Result) {
	if err := h.repo.SaveRun(storage.NewRunRecord(mode, result)); err != nil {
		h.logger.Error("failed to record run", "run_id", result.RunID, "error", err)
	}
}

func (h *ReconcileHandler) writeEngineError(w http.ResponseWriter, err error) {
	var mapErr *recon.MappingError
	if errors.As(err, &mapErr) {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(mapErr.Error()))
		return
	}
	var cfgErr *recon.ConfigError
	if errors.As(err, &cfgErr) {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(cfgErr.Error()))
		return
	}
	h.logger.Error("engine run failed", "error", err)
	h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
}
