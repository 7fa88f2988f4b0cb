package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/legalease/backend/internal/config"
	"github.com/zhouzirui/legalease/backend/internal/handler"
	"github.com/zhouzirui/legalease/backend/internal/middleware"
	"github.com/zhouzirui/legalease/backend/internal/model/legal"
	"github.com/zhouzirui/legalease/backend/internal/render"
	"github.com/zhouzirui/legalease/backend/internal/service/ai"
	"github.com/zhouzirui/legalease/backend/internal/service/appstate"
	"github.com/zhouzirui/legalease/backend/internal/service/chat"
	"github.com/zhouzirui/legalease/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	catalog, err := legal.Seed()
	if err != nil {
		log.Fatalf("failed to load legal catalog: %v", err)
	}

	db, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer db.Close()
	log.Printf("[store] using %s backend", cfg.Store.Driver)

	formatter, err := newFormatter(cfg.Render)
	if err != nil {
		log.Fatalf("failed to build renderer: %v", err)
	}

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	if err != nil {
		log.Fatalf("failed to build rate limiter: %v", err)
	}

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查模型相关环境变量")
		} else {
			log.Printf("AI service initialized successfully (provider=%s)", cfg.AI.Provider)
		}
	} else {
		log.Printf("%s 凭证未配置，跳过 AI 功能初始化", cfg.AI.Provider)
	}

	router := handler.NewRouter(handler.Services{
		Catalog:   legal.NewMemoryStore(catalog),
		Chat:      chat.NewService(db),
		Machine:   appstate.NewMachine(db),
		AI:        aiService,
		Formatter: formatter,
		Limiter:   limiter,
	})

	startServer(ctx, cfg.Server, router)
}

func newFormatter(cfg config.RenderConfig) (render.Formatter, error) {
	var opts []render.Option
	if cfg.EnforcePolicy {
		opts = append(opts, render.WithPolicy(render.NewPolicy()))
	}
	base := render.NewFormatter(opts...)
	if cfg.CacheSize <= 0 {
		return base, nil
	}
	return render.NewCachedFormatter(base, cfg.CacheSize)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("LegalEase backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
