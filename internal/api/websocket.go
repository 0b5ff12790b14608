package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qcatchat/catchat/internal/agent"
	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/metrics"
)

const (
	wsIdleTimeout  = 5 * time.Minute
	wsWriteTimeout = 10 * time.Second
	wsMaxFrameSize = 64 << 10
)

// WebSocketRequest is one inbound chat frame.
type WebSocketRequest struct {
	Message         string `json:"message"`
	UserID          userID `json:"user_id"`
	Mode            string `json:"mode"`
	QuantumComputer string `json:"quantum_computer"`
	Qubits          int    `json:"qubits"`
}

// WebSocketResponse answers one frame. Exactly one of Response or Error is set.
type WebSocketResponse struct {
	Response *core.StructuredReply `json:"response,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// handleWebSocket upgrades the connection and answers frames in order until
// the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		s.respondError(w, http.StatusServiceUnavailable, "chat is not available")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	metrics.ActiveWebsockets.Inc()
	defer metrics.ActiveWebsockets.Dec()

	ip := clientIP(r)
	ctx := r.Context()
	conn.SetReadLimit(wsMaxFrameSize)

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("websocket closed: %v", err)
			}
			return
		}

		resp := s.answerFrame(ctx, data, ip)

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			logging.Debug("websocket write failed: %v", err)
			return
		}
	}
}

// answerFrame routes one frame through the agent.
func (s *Server) answerFrame(ctx context.Context, data []byte, ip string) WebSocketResponse {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return WebSocketResponse{Error: "invalid frame"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return WebSocketResponse{Error: "message is required"}
	}

	uid := string(req.UserID)
	if uid == "" {
		uid = DefaultUserID
	}

	reply, err := s.agent.Handle(ctx, agent.Request{
		Message:         req.Message,
		UserID:          uid,
		Mode:            core.ParseMode(req.Mode),
		ClientIP:        ip,
		QuantumComputer: req.QuantumComputer,
		Qubits:          req.Qubits,
	})
	if err != nil {
		return WebSocketResponse{Error: err.Error()}
	}
	return WebSocketResponse{Response: &reply.Response}
}
