package state

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/render"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/pkg/utils"
)

// Handler 免责声明与会话状态的HTTP处理器
type Handler struct {
	machine *appstate.Machine
	chatSvc *chatService.Service
	ws      *WebSocketHandler
}

// New 创建状态处理器
func New(machine *appstate.Machine, chatSvc *chatService.Service, formatter render.Formatter) *Handler {
	if formatter == nil {
		formatter = render.NewFormatter()
	}
	return &Handler{
		machine: machine,
		chatSvc: chatSvc,
		ws:      NewWebSocketHandler(machine, chatSvc, formatter),
	}
}

// RegisterRoutes 注册免责声明、状态查询与 WebSocket 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/disclaimer", h.handleDisclaimer)
	r.Post("/disclaimer/accept", h.handleAccept)
	r.Get("/state/{sessionID}", h.handleState)
	h.ws.RegisterWebSocketRoutes(r)
}

func (h *Handler) handleDisclaimer(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"disclaimer": legal.Disclaimer})
}

// handleAccept 解锁会话；未提供 session_id 时新建会话。
func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	sessionID := payload.SessionID
	if sessionID == "" {
		session, err := h.chatSvc.CreateSession(ctx)
		if err != nil {
			log.Printf("[state] create session failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		sessionID = session.ID
	} else if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	snapshot, err := h.machine.Accept(ctx, sessionID)
	if err != nil {
		log.Printf("[state] accept failed for session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to record acceptance")
		return
	}
	log.Printf("[state] disclaimer accepted for session=%s", sessionID)
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snapshot, err := h.machine.Snapshot(r.Context(), sessionID)
	if err != nil {
		log.Printf("[state] snapshot failed for session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load state")
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}
