package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/invest-sim/pkg/logger"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler runs simulations over a WebSocket and reports progress
// ⭐ 연결당 동시 실행 1개. 연결이 끊기면 실행 중인 시뮬레이션 취소
type StreamHandler struct {
	sims   *SimulationHandler
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(sims *SimulationHandler, log *logger.Logger) *StreamHandler {
	return &StreamHandler{sims: sims, logger: log}
}

// StreamMessage client → server
type StreamMessage struct {
	Type    string          `json:"type"` // "run", "ping"
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StreamResponse server → client
type StreamResponse struct {
	Type    string      `json:"type"` // "progress", "result", "error", "pong"
	Payload interface{} `json:"payload,omitempty"`
}

// ProgressPayload scenarios finished so far
type ProgressPayload struct {
	Done    int     `json:"done"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ErrorPayload failure description
type ErrorPayload struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Problems []problem `json:"problems,omitempty"`
}

// wsConn serialises writes; gorilla allows one concurrent writer
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(resp StreamResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(resp)
}

// ServeHTTP upgrades and serves one connection
// GET /ws/simulations
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	h.handleConnection(&wsConn{conn: conn})
}

func (h *StreamHandler) handleConnection(c *wsConn) {
	defer c.conn.Close()

	log := h.logger.WithField("remote", c.conn.RemoteAddr().String())
	log.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	var (
		busyMu sync.Mutex
		busy   bool
	)

	for {
		var msg StreamMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket read error")
			} else {
				log.Info("WebSocket connection closed")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "ping":
			_ = c.send(StreamResponse{Type: "pong"})

		case "run":
			busyMu.Lock()
			if busy {
				busyMu.Unlock()
				h.sendError(c, "busy", "a simulation is already running on this connection", nil)
				continue
			}
			busy = true
			busyMu.Unlock()

			wg.Add(1)
			go func(payload json.RawMessage) {
				defer wg.Done()
				resp, ok := h.run(ctx, c, payload)

				// free before the final message goes out
				busyMu.Lock()
				busy = false
				busyMu.Unlock()

				if ok {
					if err := c.send(resp); err != nil {
						h.logger.WithError(err).Warn("Failed to send simulation outcome")
					}
				}
			}(msg.Payload)

		default:
			h.sendError(c, "unknown_type", "unknown message type: "+msg.Type, nil)
		}
	}
}

// run executes one simulation, streaming progress, and returns the final
// message (result or error). ok is false when the run was cancelled.
func (h *StreamHandler) run(ctx context.Context, c *wsConn, payload json.RawMessage) (StreamResponse, bool) {
	p, status, err := h.sims.prepare(payload)
	if err != nil {
		if status == http.StatusUnprocessableEntity {
			return errorResponse("invalid_input", "invalid input", problemsOf(err)), true
		}
		return errorResponse("invalid_payload", err.Error(), nil), true
	}

	progress := func(done, total int) {
		_ = c.send(StreamResponse{Type: "progress", Payload: ProgressPayload{
			Done:    done,
			Total:   total,
			Percent: float64(done) / float64(total) * 100,
		}})
	}

	resp, err := h.sims.execute(ctx, p, true, progress)
	if err != nil {
		if ctx.Err() != nil {
			h.logger.WithError(err).Info("Streamed simulation cancelled")
			return StreamResponse{}, false
		}
		h.logger.WithError(err).Error("Streamed simulation failed")
		return errorResponse("simulation_failed", "simulation failed", nil), true
	}
	return StreamResponse{Type: "result", Payload: trimmed(resp, false)}, true
}

func errorResponse(code, message string, problems []problem) StreamResponse {
	return StreamResponse{Type: "error", Payload: ErrorPayload{
		Code:     code,
		Message:  message,
		Problems: problems,
	}}
}

func (h *StreamHandler) sendError(c *wsConn, code, message string, problems []problem) {
	if err := c.send(errorResponse(code, message, problems)); err != nil {
		h.logger.WithError(err).Debug("Failed to send error")
	}
}
