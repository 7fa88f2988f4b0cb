package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/legalease/backend/internal/handler/chat"
	"github.com/zhouzirui/legalease/backend/internal/handler/legal"
	"github.com/zhouzirui/legalease/backend/internal/handler/state"
	"github.com/zhouzirui/legalease/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/legalease/backend/internal/middleware"
	legalModel "github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/render"
	aiService "github.com/zhouzirui/legalease/backend/internal/service/ai"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	chatService "github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/service/consult"
	"github.com/zhouzirui/legalease/backend/pkg/utils"
)

// Services groups the dependencies the HTTP layer needs. AI may be nil.
type Services struct {
	Catalog   legalModel.Store
	Chat      *chatService.Service
	Machine   *appstate.Machine
	AI        *aiService.Service
	Formatter render.Formatter
	Limiter   *middlewarePkg.RateLimiter
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	consultSvc := consult.NewService(svc.Chat, svc.Machine, svc.AI, svc.Formatter)

	// Create handlers
	chatHandler := chat.New(svc.Chat, consultSvc)
	legalHandler := legal.New(svc.Catalog, svc.AI, svc.Formatter)
	stateHandler := state.New(svc.Machine, svc.Chat, svc.Formatter)
	streamHandler := stream.New(consultSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"ai_enabled": consultSvc.Available(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		legalHandler.RegisterRoutes(api)
		stateHandler.RegisterRoutes(api)

		// Model-backed routes share the per-client limiter.
		api.Group(func(limited chi.Router) {
			if svc.Limiter != nil {
				limited.Use(svc.Limiter.Handler)
			}
			chatHandler.RegisterModelRoutes(limited)
			legalHandler.RegisterModelRoutes(limited)
			streamHandler.RegisterModelRoutes(limited)
		})
	})

	return r
}
