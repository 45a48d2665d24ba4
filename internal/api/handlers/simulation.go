package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/internal/scenario"
	"github.com/wonny/invest-sim/internal/store"
	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/logger"
)

// SimulationHandler handles simulation API endpoints
// ⭐ SSOT: 시뮬레이션 API 핸들러는 이 구조체에서만
type SimulationHandler struct {
	engine   *montecarlo.Engine
	runs     store.RunStore
	defaults config.SimulationConfig
	maxSims  int
	logger   *logger.Logger
	clock    func() time.Time
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(
	engine *montecarlo.Engine,
	runs store.RunStore,
	defaults config.SimulationConfig,
	maxSims int,
	log *logger.Logger,
) *SimulationHandler {
	if maxSims <= 0 {
		maxSims = montecarlo.MaxSimulations
	}
	return &SimulationHandler{
		engine:   engine,
		runs:     runs,
		defaults: defaults,
		maxSims:  maxSims,
		logger:   log,
		clock:    time.Now,
	}
}

// SimulationResponse result of one run plus request metadata
type SimulationResponse struct {
	*montecarlo.Result
	Name      string             `json:"name,omitempty"`
	InputHash string             `json:"input_hash"`
	Warnings  []scenario.Warning `json:"warnings,omitempty"`
	Saved     bool               `json:"saved"`
}

// prepared is a decoded, validated request
type prepared struct {
	doc   *scenario.Document
	input montecarlo.Input
	hash  string
}

// prepare decodes a scenario document and turns it into a validated input.
// The returned status is the one to answer with when err != nil.
func (h *SimulationHandler) prepare(body []byte) (*prepared, int, error) {
	doc, err := scenario.Parse(body, scenario.FormatJSON)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	hash, err := scenario.Hash(doc)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	in := doc.Input(h.defaults, h.clock())
	if err := in.Validate(); err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	if in.NumSimulations > h.maxSims {
		var v params.ValidationError
		v.Addf("num_simulations", "must be <= %d on this server, got %d", h.maxSims, in.NumSimulations)
		return nil, http.StatusUnprocessableEntity, v.Err()
	}
	return &prepared{doc: doc, input: in, hash: hash}, 0, nil
}

// execute runs a prepared request and stores the result when asked to
func (h *SimulationHandler) execute(ctx context.Context, p *prepared, save bool, progress montecarlo.ProgressFunc) (*SimulationResponse, error) {
	res, err := h.engine.RunWithProgress(ctx, p.input, progress)
	if err != nil {
		return nil, err
	}

	resp := &SimulationResponse{
		Result:    res,
		Name:      p.doc.Name,
		InputHash: p.hash,
		Warnings:  scenario.Lint(p.input),
	}
	if save {
		run, err := store.NewRun(res, p.hash, p.doc.Name)
		if err == nil {
			err = h.runs.Save(ctx, run)
		}
		if err != nil {
			h.logger.WithError(err).WithField("run_id", res.RunID).Error("Failed to save run")
		} else {
			resp.Saved = true
		}
	}
	return resp, nil
}

// trimmed drops the per-scenario arrays unless full output was requested
func trimmed(resp *SimulationResponse, full bool) *SimulationResponse {
	if full || resp.Result == nil {
		return resp
	}
	res := *resp.Result
	res.Samples = nil
	res.FinalBalances = nil
	out := *resp
	out.Result = &res
	return &out
}

// Create runs a simulation
// POST /api/simulations?save=true&full=false
func (h *SimulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	p, status, err := h.prepare(body)
	if err != nil {
		if status == http.StatusUnprocessableEntity {
			respondValidation(w, err)
			return
		}
		respondError(w, status, err.Error())
		return
	}

	save := queryBool(r, "save", true)
	full := queryBool(r, "full", false)

	resp, err := h.execute(r.Context(), p, save, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.WithError(err).Warn("Simulation cancelled by client")
			respondError(w, http.StatusServiceUnavailable, "simulation cancelled")
			return
		}
		h.logger.WithError(err).Error("Simulation failed")
		respondError(w, http.StatusInternalServerError, "simulation failed")
		return
	}

	status = http.StatusOK
	if resp.Saved {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/simulations/"+resp.RunID)
	}
	respondJSON(w, status, trimmed(resp, full))
}

// List returns stored run summaries, newest first
// GET /api/simulations?limit=50&offset=0&input_hash=...
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{InputHash: q.Get("input_hash")}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.runs.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get returns one stored run with its full result
// GET /api/simulations/{id}
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
