package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/qcatchat/catchat/internal/agent"
	"github.com/qcatchat/catchat/internal/core"
)

// userID accepts either a JSON string or number.
type userID string

func (u *userID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u = userID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id must be a string or number")
	}
	*u = userID(n.String())
	return nil
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message         string `json:"message"`
	Mode            string `json:"mode"`
	UserID          userID `json:"user_id"`
	QuantumComputer string `json:"quantum_computer"`
	Qubits          int    `json:"qubits"`
}

// ChatResponse wraps the structured reply.
type ChatResponse struct {
	Response core.StructuredReply `json:"response"`
}

func (s *Server) handleChatGet(w http.ResponseWriter, r *http.Request) {
	text := chi.URLParam(r, "text")
	s.chat(w, r, agent.Request{
		Message: text,
		UserID:  DefaultUserID,
		Mode:    core.ModeStandard,
	})
}

func (s *Server) handleChatPost(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	uid := string(req.UserID)
	if uid == "" {
		uid = DefaultUserID
	}

	s.chat(w, r, agent.Request{
		Message:         req.Message,
		UserID:          uid,
		Mode:            core.ParseMode(req.Mode),
		QuantumComputer: req.QuantumComputer,
		Qubits:          req.Qubits,
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request, req agent.Request) {
	if s.agent == nil {
		s.respondError(w, http.StatusServiceUnavailable, "chat is not available")
		return
	}
	req.ClientIP = clientIP(r)

	reply, err := s.agent.Handle(r.Context(), req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ChatResponse{Response: reply.Response})
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with any forwarded address.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// parseDays reads the optional days query parameter.
func parseDays(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: days must be an integer", core.ErrInvalidInput)
	}
	return days, nil
}
