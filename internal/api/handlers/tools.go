package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/invest-sim/internal/ratesource"
	"github.com/wonny/invest-sim/internal/risk"
	"github.com/wonny/invest-sim/internal/scenario"
	"github.com/wonny/invest-sim/pkg/logger"
)

// ToolsHandler standalone calculators that do not run a full simulation
type ToolsHandler struct {
	risk   *risk.Engine
	rates  ratesource.Source
	logger *logger.Logger
}

// NewToolsHandler creates a new tools handler. rates may be nil.
func NewToolsHandler(rates ratesource.Source, log *logger.Logger) *ToolsHandler {
	var provider risk.RateProvider
	if rates != nil {
		provider = ratesource.AsProvider(rates)
	}
	return &ToolsHandler{
		risk:   risk.NewEngine(provider),
		rates:  rates,
		logger: log,
	}
}

// =============================================================================
// Implicit rate
// =============================================================================

// ImplicitRateRequest target balance to reverse into an annual rate
type ImplicitRateRequest struct {
	Target              float64 `json:"target"`
	InitialCapital      float64 `json:"initial_capital"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	Years               int     `json:"years"`
	Wide                bool    `json:"wide"`
}

// ImplicitRate solves for the annual rate that reaches the target
// POST /api/implicit-rate
func (h *ToolsHandler) ImplicitRate(w http.ResponseWriter, r *http.Request) {
	var req ImplicitRateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	opts := risk.DefaultImplicitRateOptions()
	if req.Wide {
		opts = risk.WideImplicitRateOptions()
	}

	rate, err := risk.FindImplicitRate(req.Target, req.InitialCapital, req.MonthlyContribution, req.Years, opts)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rate)
}

// =============================================================================
// Generated returns
// =============================================================================

// ReturnsResponse summary of a generated return matrix
type ReturnsResponse struct {
	Method      risk.ReturnMethod    `json:"method"`
	Years       int                  `json:"years"`
	Simulations int                  `json:"simulations"`
	Growth      risk.PercentileStats `json:"cumulative_growth"`
	Matrix      [][]float64          `json:"matrix,omitempty"`
}

// Returns generates annual return scenarios
// POST /api/returns?matrix=false
func (h *ToolsHandler) Returns(w http.ResponseWriter, r *http.Request) {
	var req scenario.ReturnsConfig
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	doc := scenario.Document{Years: req.Years, Returns: &req}
	cfg := doc.ReturnConfig()

	matrix, err := h.risk.Returns(cfg)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := ReturnsResponse{
		Method:      cfg.Method,
		Years:       cfg.Years,
		Simulations: cfg.Simulations,
		Growth:      risk.CalculatePercentileStats(risk.CumulativeGrowth(matrix)),
	}
	if queryBool(r, "matrix", false) {
		resp.Matrix = matrix
	}
	respondJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Risk-free rate
// =============================================================================

// RiskFreeRate current annual risk-free rate and where it came from
// GET /api/risk-free-rate
func (h *ToolsHandler) RiskFreeRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		respondError(w, http.StatusServiceUnavailable, "no risk-free rate source configured")
		return
	}

	quote, err := h.rates.Quote(r.Context())
	if errors.Is(err, ratesource.ErrUnavailable) {
		h.logger.WithError(err).Warn("Risk-free rate unavailable")
		respondError(w, http.StatusServiceUnavailable, "risk-free rate unavailable")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve risk-free rate")
		respondError(w, http.StatusInternalServerError, "failed to resolve risk-free rate")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}
