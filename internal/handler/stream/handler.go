package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/service/consult"
	"github.com/zhouzirui/legalease/backend/pkg/utils"
)

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	consultSvc *consult.Service
}

// New creates a new stream handler
func New(consultSvc *consult.Service) *Handler {
	return &Handler{consultSvc: consultSvc}
}

// RegisterModelRoutes 注册流式问答路由
func (h *Handler) RegisterModelRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string            `json:"event"`
	Content   string            `json:"content,omitempty"`
	HTML      string            `json:"html,omitempty"`
	Category  *legal.Category   `json:"category,omitempty"`
	Risks     []legal.RiskLevel `json:"risks,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	Finished  bool              `json:"finished,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")
	isDocument := r.URL.Query().Get("is_document") == "true"

	ctx := r.Context()
	session, err := h.consultSvc.ResolveSession(ctx, sessionID)
	if err != nil {
		respondGateError(w, err)
		return
	}

	// Gate failures are reported as plain JSON before the stream opens.
	turn, err := h.consultSvc.Begin(ctx, session, userMessage, isDocument)
	if err != nil {
		respondGateError(w, err)
		return
	}
	defer turn.Release()

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if err := h.HandleStreamRequest(ctx, sse, turn); err != nil {
		log.Printf("[stream] error handling request: %v", err)
	}
}

// HandleStreamRequest emits start, delta*, message and end events for one turn.
func (h *Handler) HandleStreamRequest(ctx context.Context, sse *utils.SSEWriter, turn *consult.Turn) error {
	sessionID := turn.Session.ID

	h.send(sse, StreamResponse{Event: "start", SessionID: sessionID})

	response, err := h.dispatchAIResponse(ctx, sse, turn)
	if err != nil {
		failure := h.consultSvc.FailureResult(err)
		h.send(sse, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
			HTML:      failure.HTML,
		})
		return err
	}

	reply, err := h.consultSvc.Finish(ctx, turn, response.Content)
	if err != nil {
		h.send(sse, StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		return err
	}

	h.send(sse, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Message.Content,
		HTML:      reply.Result.HTML,
		Category:  reply.Result.Category,
		Risks:     reply.Result.Risks,
	})

	h.send(sse, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s", sessionID)
	return nil
}

// dispatchAIResponse streams when enabled and falls back to one-shot generation.
func (h *Handler) dispatchAIResponse(ctx context.Context, sse *utils.SSEWriter, turn *consult.Turn) (*schema.Message, error) {
	if !h.consultSvc.StreamingEnabled() {
		return h.consultSvc.Generate(ctx, turn)
	}

	stream, err := h.consultSvc.Stream(ctx, turn)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, &consult.GenerationError{Err: recvErr}
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.send(sse, StreamResponse{
				Event:     "delta",
				SessionID: turn.Session.ID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, &consult.GenerationError{Err: err}
	}
	return response, nil
}

func (h *Handler) send(sse *utils.SSEWriter, response StreamResponse) {
	if err := sse.Send(response.Event, response); err != nil {
		log.Printf("[stream] failed to send %s event: %v", response.Event, err)
	}
}

func respondGateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, appstate.ErrNotAccepted):
		utils.RespondError(w, http.StatusForbidden, "disclaimer must be accepted first")
	case errors.Is(err, appstate.ErrBusy):
		utils.RespondError(w, http.StatusConflict, "a request is already pending")
	case errors.Is(err, consult.ErrAIUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
	default:
		log.Printf("[stream] request rejected: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
	}
}
