package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Question  string `json:"question" validate:"required,max=4000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

// ChatResponse is returned by POST /api/chat
type ChatResponse struct {
	Success            bool                  `json:"success"`
	SessionID          string                `json:"session_id"`
	Answer             string                `json:"answer"`
	AnswerHTML         string                `json:"answer_html"`
	Found              bool                  `json:"found"`
	Origin             models.EvidenceOrigin `json:"origin"`
	StandaloneQuestion string                `json:"standalone_question"`
	Stages             []models.Stage        `json:"stages"`
}

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatService interfaces.ChatService
	markdown    goldmark.Markdown
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewChatHandler creates a new chat handler. timeout bounds each question; zero means none.
func NewChatHandler(
	chatService interfaces.ChatService,
	timeout time.Duration,
	logger arbor.ILogger,
) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		timeout: timeout,
		logger:  logger,
	}
}

// ChatHandler handles POST /api/chat requests
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ChatRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteServiceError(w, h.logger, err, "Invalid chat request")
		return
	}

	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.New().String()
	}

	h.logger.Info().
		Str("session_id", req.SessionID).
		Int("question_length", len(req.Question)).
		Msg("Processing chat request")

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.chatService.Ask(ctx, req.SessionID, req.Question)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to answer question")
		return
	}

	WriteJSON(w, http.StatusOK, ChatResponse{
		Success:            true,
		SessionID:          result.SessionID,
		Answer:             result.Answer,
		AnswerHTML:         h.renderMarkdown(result.Answer),
		Found:              result.Found,
		Origin:             result.Origin,
		StandaloneQuestion: result.StandaloneQuestion,
		Stages:             result.Stages,
	})
}

// GetHistoryHandler handles GET /api/chat/history?session_id=
func (h *ChatHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}

	turns, err := h.chatService.History(r.Context(), sessionID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to load history")
		return
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"session_id": sessionID,
		"turns":      turns,
	})
}

// ClearHistoryHandler handles DELETE /api/chat/history?session_id=
func (h *ChatHandler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}

	if err := h.chatService.ClearHistory(r.Context(), sessionID); err != nil {
		WriteServiceError(w, h.logger, err, "Failed to clear history")
		return
	}

	h.logger.Info().Str("session_id", sessionID).Msg("Conversation history cleared")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"session_id": sessionID,
	})
}

func requireSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session_id query parameter is required")
		return "", false
	}
	return sessionID, true
}

// renderMarkdown converts an answer to HTML, falling back to the raw text on failure
func (h *ChatHandler) renderMarkdown(markdown string) string {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(markdown), &buf); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to render answer markdown")
		return markdown
	}
	return buf.String()
}
