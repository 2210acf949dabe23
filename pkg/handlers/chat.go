// Package handlers exposes the thin HTTP boundary around the pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/pipeline"
)

// maxChatBodyBytes bounds how large an incoming chat payload may be.
const maxChatBodyBytes = 64 * 1024

// Asker answers a single user question. Satisfied by pipeline.Controller.
type Asker interface {
	Ask(ctx context.Context, question string) (*pipeline.Result, error)
}

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply for POST /chat.
type ChatResponse struct {
	Reply    string `json:"reply"`
	ChartURL string `json:"chart_url,omitempty"`
}

// ChatHandler answers registry questions over HTTP.
type ChatHandler struct {
	pipeline Asker
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(p Asker, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{pipeline: p, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.Chat)
}

// Chat handles POST /chat requests.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a message field")
		return
	}
	if req.Message == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "message must not be empty")
		return
	}

	result, err := h.pipeline.Ask(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("Pipeline failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to answer the question")
		return
	}

	resp := ChatResponse{Reply: result.Answer, ChartURL: result.ChartURL}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}
