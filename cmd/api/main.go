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

	"github.com/zhouzirui/dr-gini/backend/internal/config"
	"github.com/zhouzirui/dr-gini/backend/internal/handler"
	"github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
	"github.com/zhouzirui/dr-gini/backend/internal/normalizer"
	"github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	"github.com/zhouzirui/dr-gini/backend/internal/service/feedback"
	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
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

	assistantStore := assistant.NewMemoryStore(assistant.Seed())
	chatService := chat.NewService()

	norm := normalizer.New(normalizer.Options{
		TextFields:       cfg.Normalizer.TextFields,
		ImageFields:      cfg.Normalizer.ImageFields,
		MinContentLength: cfg.Normalizer.MinContentLength,
	})

	deps := coordinator.Deps{
		Transcript: chatService,
		Normalizer: norm,
		Text:       webhook.NewClient(cfg.Webhook.TextURL, cfg.Webhook.Timeout),
	}
	mode := coordinator.ModeSingle
	if cfg.Webhook.Dual() {
		mode = coordinator.ModeDual
		deps.Image = webhook.NewClient(cfg.Webhook.ImageURL, cfg.Webhook.Timeout)
		log.Println("dual webhook mode enabled, images come from the image webhook")
	} else {
		log.Println("single webhook mode enabled")
	}

	manager := coordinator.NewManager(deps, coordinator.Options{
		Mode:     mode,
		Cooldown: cfg.Webhook.Cooldown,
		Timeout:  cfg.Webhook.Timeout,
	})

	feedbackService := feedback.NewService(feedback.Config{
		URL:     cfg.Feedback.URL,
		APIKey:  cfg.Feedback.APIKey,
		Timeout: cfg.Webhook.Timeout,
	}, chatService)
	if feedbackService.Enabled() {
		log.Println("feedback relay enabled")
	} else {
		log.Println("反馈上报地址未配置，反馈仅记录日志")
	}

	router := handler.NewRouter(handler.Deps{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Assistants:     assistantStore,
		Chat:           chatService,
		Coordinators:   manager,
		Feedback:       feedbackService,
	})

	startServer(ctx, cfg.Server, router)

	// 等待尚未完成的反馈上报
	feedbackService.Wait()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Dr. Gini backend listening on %s", addr)
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
