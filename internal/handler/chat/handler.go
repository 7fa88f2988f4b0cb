package chat

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/service/consult"
	"github.com/zhouzirui/legalease/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc    *chatService.Service
	consultSvc *consult.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, consultSvc *consult.Service) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		consultSvc: consultSvc,
	}
}

// RegisterRoutes 注册会话管理路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/clear", h.handleClear)
	r.Get("/transcript/{sessionID}", h.handleTranscript)
}

// RegisterModelRoutes 注册需要调用模型的路由
func (h *Handler) RegisterModelRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

type chatRequest struct {
	Message    string `json:"message"`
	IsDocument bool   `json:"is_document"`
	SessionID  string `json:"session_id"`
}

type chatResponse struct {
	Message   string            `json:"message"`
	HTML      string            `json:"html"`
	Category  *legal.Category   `json:"category,omitempty"`
	Risks     []legal.RiskLevel `json:"risks"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		log.Printf("[chat] create session failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleChat 处理一次问答
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "No message provided")
		return
	}

	ctx := r.Context()
	session, err := h.consultSvc.ResolveSession(ctx, payload.SessionID)
	if err != nil {
		respondServiceError(w, payload.SessionID, err)
		return
	}

	reply, err := h.consultSvc.Ask(ctx, session, payload.Message, payload.IsDocument)
	if err != nil {
		var genErr *consult.GenerationError
		if errors.As(err, &genErr) {
			log.Printf("[chat] generation failed for session=%s: %v", session.ID, err)
			failure := h.consultSvc.FailureResult(err)
			utils.RespondErrorHTML(w, http.StatusInternalServerError, genErr.Err.Error(), failure.HTML)
			return
		}
		respondServiceError(w, session.ID, err)
		return
	}

	risks := reply.Result.Risks
	if risks == nil {
		risks = []legal.RiskLevel{}
	}
	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Message:   reply.Message.Content,
		HTML:      reply.Result.HTML,
		Category:  reply.Result.Category,
		Risks:     risks,
		SessionID: session.ID,
		Timestamp: reply.Message.CreatedAt,
	})
}

// handleClear 清空会话记录
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.chatSvc.ClearSession(r.Context(), payload.SessionID); err != nil {
		respondServiceError(w, payload.SessionID, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "session cleared"})
}

// handleTranscript 返回渲染后的会话记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	entries, err := h.consultSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, sessionID, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   entries,
	})
}

// respondServiceError maps service sentinels onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "No message provided")
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, appstate.ErrNotAccepted):
		utils.RespondJSON(w, http.StatusForbidden, map[string]string{
			"error":      "disclaimer must be accepted first",
			"session_id": sessionID,
		})
	case errors.Is(err, appstate.ErrBusy):
		utils.RespondError(w, http.StatusConflict, "a request is already pending")
	case errors.Is(err, consult.ErrAIUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "AI service is not configured")
	default:
		log.Printf("[chat] request failed for session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
