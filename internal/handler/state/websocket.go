package state

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/legalease/backend/internal/render"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketHandler 推送会话状态并响应渲染请求
type WebSocketHandler struct {
	machine   *appstate.Machine
	chatSvc   *chatService.Service
	formatter render.Formatter
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(machine *appstate.Machine, chatSvc *chatService.Service, formatter render.Formatter) *WebSocketHandler {
	return &WebSocketHandler{
		machine:   machine,
		chatSvc:   chatSvc,
		formatter: formatter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type renderRequest struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe, err := h.machine.Subscribe(ctx, sessionID)
	if err != nil {
		log.Printf("[ws] subscribe failed for session=%s: %v", sessionID, err)
		return
	}
	defer unsubscribe()

	log.Printf("[ws] new connection for session: %s", sessionID)

	c := &wsConn{conn: conn}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.pushLoop(ctx, c, sessionID, updates)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleMessage(c, sessionID, &msg)
	}
}

// pushLoop forwards state snapshots and keeps the connection alive.
func (h *WebSocketHandler) pushLoop(ctx context.Context, c *wsConn, sessionID string, updates <-chan appstate.State) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := h.send(c, sessionID, "state", snapshot); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(c *wsConn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "render":
		var req renderRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.sendError(c, sessionID, "invalid render payload")
			return
		}
		h.send(c, sessionID, "render", h.formatter.Format(req.Text))
	default:
		h.sendError(c, sessionID, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) send(c *wsConn, sessionID, kind string, data interface{}) error {
	err := c.writeJSON(outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("[ws] failed to send %s: %v", kind, err)
	}
	return err
}

func (h *WebSocketHandler) sendError(c *wsConn, sessionID, message string) {
	h.send(c, sessionID, "error", map[string]string{"message": message})
}
