package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harunnryd/mcprelay/internal/config"
	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/logger"
	"github.com/harunnryd/mcprelay/internal/tool"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

const maxChatBodyBytes = 1 << 20

type ChatRequest struct {
	Message *string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// Chatter is the part of Relay the HTTP surface depends on.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

type Handler struct {
	chat        Chatter
	registry    *tool.Registry
	unavailable string
	errorPrefix string
}

func NewHandler(chat Chatter, registry *tool.Registry, cfg config.RelayConfig) *Handler {
	unavailable := cfg.UnavailableMessage
	if unavailable == "" {
		unavailable = config.DefaultRelayUnavailableMessage
	}
	errorPrefix := cfg.ErrorPrefix
	if errorPrefix == "" {
		errorPrefix = config.DefaultRelayErrorPrefix
	}
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &Handler{chat: chat, registry: registry, unavailable: unavailable, errorPrefix: errorPrefix}
}

// Routes mounts POST /chat and GET /tools.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/tools", h.handleTools)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		slog.Debug("Chat request received", "request_id", reqID)
	}
	ctx, traceID := logger.EnsureTraceID(ctx)

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		slog.Warn("Invalid chat request body", "error", err, "trace_id", traceID)
		writeJSON(w, http.StatusBadRequest, ChatResponse{Response: "invalid request body: " + err.Error()})
		return
	}
	if req.Message == nil {
		writeJSON(w, http.StatusBadRequest, ChatResponse{Response: "invalid request body: missing \"message\""})
		return
	}

	answer, err := h.chat.Chat(ctx, *req.Message)
	if err != nil {
		writeJSON(w, http.StatusOK, ChatResponse{Response: h.failureText(err)})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: answer})
}

func (h *Handler) failureText(err error) string {
	if errors.Is(err, relayErrors.ErrSessionUnavailable) {
		return h.unavailable
	}
	return h.errorPrefix + strings.TrimSpace(err.Error())
}

func (h *Handler) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": h.registry.List(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
