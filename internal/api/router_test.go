package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/invest-sim/internal/api/handlers"
	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/ratesource"
	"github.com/wonny/invest-sim/internal/store"
	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/logger"
	"github.com/wonny/invest-sim/pkg/redis"
)

const referenceDoc = `{
	"name": "reference",
	"initial_capital": {"min": 8000, "deterministic": 10000, "max": 12000},
	"monthly_contribution": 500,
	"annual_rate": {"min": 6, "deterministic": 10, "max": 14},
	"years": 10,
	"goal": 120000,
	"num_simulations": 1000,
	"seed": 42,
	"start_date": "2025-01-01"
}`

type testServer struct {
	*httptest.Server
	runs *store.Memory
}

func newTestServer(t *testing.T, limits *Limits) *testServer {
	t.Helper()
	log := logger.Nop()
	runs := store.NewMemory()
	rates := ratesource.NewManual(10.5)

	engine := montecarlo.NewEngine(montecarlo.Config{Workers: 2, BatchSize: 250}, log, ratesource.AsProvider(rates))
	defaults := config.SimulationConfig{NumSimulations: 1000, Distribution: "normal"}
	sims := handlers.NewSimulationHandler(engine, runs, defaults, 5000, log)

	router := NewRouter(Handlers{
		Simulations: sims,
		Tools:       handlers.NewToolsHandler(rates, log),
		Stream:      handlers.NewStreamHandler(sims, log),
	}, limits, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, runs: runs}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateSimulation(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := srv.do(t, http.MethodPost, "/api/simulations", referenceDoc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, _ := body["run_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/simulations/"+id, resp.Header.Get("Location"))
	assert.Equal(t, true, body["saved"])
	assert.Equal(t, "reference", body["name"])
	assert.Len(t, body["input_hash"], 64)
	assert.Equal(t, true, body["has_monte_carlo"])
	assert.NotContains(t, body, "samples")
	assert.NotContains(t, body, "final_balances")

	riskBody, ok := body["risk"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "manual", riskBody["risk_free_source"])

	t.Run("get", func(t *testing.T) {
		resp, run := srv.do(t, http.MethodGet, "/api/simulations/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, id, run["id"])
		assert.Equal(t, "reference", run["label"])
		result, ok := run["result"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, result, "final_balances")
	})

	t.Run("list", func(t *testing.T) {
		resp, list := srv.do(t, http.MethodGet, "/api/simulations?limit=10", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), list["count"])
	})

	t.Run("list filtered by another hash", func(t *testing.T) {
		_, list := srv.do(t, http.MethodGet, "/api/simulations?input_hash=nope", "")
		assert.Equal(t, float64(0), list["count"])
	})
}

func TestCreateSimulation_Options(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := srv.do(t, http.MethodPost, "/api/simulations?save=false&full=true", referenceDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["saved"])
	assert.Contains(t, body, "samples")
	assert.Contains(t, body, "final_balances")

	runs, err := srv.runs.List(t.Context(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCreateSimulation_Invalid(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"years":`, http.StatusBadRequest},
		{"unknown field", `{"years": 10, "colour": "red"}`, http.StatusBadRequest},
		{"constraint violations", `{"initial_capital": {"min": 5, "max": 5}, "monthly_contribution": -1, "annual_rate": 5, "years": 0, "goal": 1}`, http.StatusUnprocessableEntity},
		{"over server limit", `{"initial_capital": 1000, "monthly_contribution": 10, "annual_rate": {"min": 1, "max": 9}, "years": 5, "num_simulations": 9000}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.do(t, http.MethodPost, "/api/simulations", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
			if tt.status == http.StatusUnprocessableEntity {
				problems, ok := body["problems"].([]interface{})
				require.True(t, ok)
				assert.NotEmpty(t, problems)
			}
		})
	}
}

func TestGetSimulation_NotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := srv.do(t, http.MethodGet, "/api/simulations/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "run not found", body["error"])
}

func TestListSimulations_BadQuery(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := srv.do(t, http.MethodGet, "/api/simulations?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImplicitRate(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := srv.do(t, http.MethodPost, "/api/implicit-rate",
		`{"target": 117000, "initial_capital": 10000, "monthly_contribution": 500, "years": 10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["converged"])
	assert.InDelta(t, 9, body["rate"], 1.5)

	resp, _ = srv.do(t, http.MethodPost, "/api/implicit-rate", `{"target": 1000, "years": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReturns(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := srv.do(t, http.MethodPost, "/api/returns?matrix=true",
		`{"method": "normal", "years": 3, "simulations": 50, "mean": 0.08, "std_dev": 0.15, "seed": 7}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "normal", body["method"])
	matrix, ok := body["matrix"].([]interface{})
	require.True(t, ok)
	assert.Len(t, matrix, 50)

	resp, body = srv.do(t, http.MethodPost, "/api/returns", `{"method": "bootstrap", "years": 3, "simulations": 10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "insufficient data")
}

func TestRiskFreeRate(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := srv.do(t, http.MethodGet, "/api/risk-free-rate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10.5, body["rate"])
	assert.Equal(t, ratesource.SourceManual, body["source"])
}

func TestLimits(t *testing.T) {
	limits := NewLimits(config.APIConfig{RateLimitPerSecond: 0.001, RateLimitBurst: 1}, nil, nil)
	srv := newTestServer(t, limits)

	resp, _ := srv.do(t, http.MethodPost, "/api/simulations?save=false", referenceDoc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := srv.do(t, http.MethodPost, "/api/simulations?save=false", referenceDoc)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.NotEmpty(t, body["error"])

	// reads are not limited
	resp, _ = srv.do(t, http.MethodGet, "/api/simulations", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLimits_DisabledQuotaAllows(t *testing.T) {
	quota := redis.NewRateLimiter(redis.Disabled(), "test")
	limits := NewLimits(config.APIConfig{QuotaPerWindow: 1, QuotaWindow: time.Minute}, quota, nil)

	h := limits.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/simulations", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestLimits_DropsIdleClients(t *testing.T) {
	limits := NewLimits(config.APIConfig{RateLimitPerSecond: 1, RateLimitBurst: 1}, nil, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limits.clock = func() time.Time { return now }

	limits.limiter("a")
	now = now.Add(idleClientTTL + time.Second)
	limits.limiter("b")

	assert.Len(t, limits.clients, 1)
	assert.Contains(t, limits.clients, "b")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestStream(t *testing.T) {
	srv := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/simulations"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))

	type message struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong message
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "run",
		"payload": json.RawMessage(referenceDoc),
	}))

	progress := 0
	for {
		var msg message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "progress" {
			progress++
			continue
		}
		require.Equal(t, "result", msg.Type, string(msg.Payload))

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &result))
		assert.Equal(t, true, result["saved"])
		assert.Equal(t, float64(1000), result["num_simulations"])
		break
	}
	assert.Equal(t, 4, progress)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "run",
		"payload": json.RawMessage(`{"years": 0}`),
	}))
	var failure message
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "error", failure.Type)
	assert.Contains(t, string(failure.Payload), "invalid_input")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Contains(t, string(failure.Payload), "unknown_type")
}
