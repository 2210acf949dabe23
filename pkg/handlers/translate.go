package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/language"
)

// Translator converts text between English and Arabic. Satisfied by
// language.Normalizer.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, language.Lang, error)
}

// TranslateRequest is the payload for POST /translate. Target is optional;
// when empty the text is translated to the opposite language.
type TranslateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target,omitempty"`
}

// TranslateResponse is the reply for POST /translate.
type TranslateResponse struct {
	Translation    string `json:"translation"`
	SourceLanguage string `json:"source_language"`
}

// TranslateHandler exposes the standalone translation route.
type TranslateHandler struct {
	translator Translator
	logger     *zap.Logger
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(t Translator, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{translator: t, logger: logger}
}

// RegisterRoutes registers the translate handler's routes on the given mux.
func (h *TranslateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /translate", h.Translate)
}

// Translate handles POST /translate requests.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a text field")
		return
	}
	if req.Text == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "text must not be empty")
		return
	}

	translated, source, err := h.translator.Translate(r.Context(), req.Text, req.Target)
	if err != nil {
		h.logger.Error("Translation failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "translation_failed", "could not translate the text")
		return
	}

	resp := TranslateResponse{Translation: translated, SourceLanguage: string(source)}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode translate response", zap.Error(err))
	}
}
