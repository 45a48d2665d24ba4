package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/invest-sim/internal/api/handlers"
	"github.com/wonny/invest-sim/pkg/logger"
)

// Handlers everything the router mounts
type Handlers struct {
	Simulations *handlers.SimulationHandler
	Tools       *handlers.ToolsHandler
	Stream      *handlers.StreamHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limits *Limits, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Simulations (CPU bound: limited per client)
	create := http.Handler(http.HandlerFunc(h.Simulations.Create))
	if limits != nil {
		create = limits.Middleware(create)
	}
	api.Handle("/simulations", create).Methods("POST")
	api.HandleFunc("/simulations", h.Simulations.List).Methods("GET")
	api.HandleFunc("/simulations/{id}", h.Simulations.Get).Methods("GET")

	// Calculators
	api.HandleFunc("/implicit-rate", h.Tools.ImplicitRate).Methods("POST")
	api.HandleFunc("/returns", h.Tools.Returns).Methods("POST")
	api.HandleFunc("/risk-free-rate", h.Tools.RiskFreeRate).Methods("GET")

	// Streaming
	if h.Stream != nil {
		stream := http.Handler(h.Stream)
		if limits != nil {
			stream = limits.Middleware(stream)
		}
		r.Handle("/ws/simulations", stream).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "invest-sim-api",
	})
}
