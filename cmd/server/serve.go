package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/hint-trivia/internal/api"
	"github.com/ashureev/hint-trivia/internal/config"
	"github.com/ashureev/hint-trivia/internal/game"
	"github.com/ashureev/hint-trivia/internal/grpcserver"
	"github.com/ashureev/hint-trivia/internal/identity"
	"github.com/ashureev/hint-trivia/internal/middleware"
	"github.com/ashureev/hint-trivia/internal/realtime"
	"github.com/ashureev/hint-trivia/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func serve(parent context.Context, cfg *config.Config) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	// One controller per player tab, fed by the cached content service.
	registry := game.NewRegistry(func() *game.Controller {
		return game.NewController(d.content, nil)
	}, cfg.SessionIdleTTL)
	conns := realtime.NewConnManager()
	registry.OnEvict(conns.CloseSession)
	registry.StartSweeper(ctx)

	if d.rabbit != nil {
		go func() {
			if err := d.rabbit.Consume(ctx, d.content.HandleEvent); err != nil {
				slog.Error("Content event consumer stopped", "error", err)
			}
		}()
	}

	grpcDone := make(chan error, 1)
	if cfg.GRPCAddr != "" {
		grpcSrv, err := grpcserver.New(cfg.GRPCAddr, d.repo)
		if err != nil {
			return fmt.Errorf("initialize gRPC health server: %w", err)
		}
		go func() { grpcDone <- grpcSrv.Serve(ctx) }()
	} else {
		grpcDone <- nil
		slog.Info("gRPC health server disabled (GRPC_ADDR not set)")
	}

	origins := allowedOrigins(cfg)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(origins, identity.SessionHeaderName))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	api.NewHealthHandler(d.repo, registry).RegisterHealth(r)
	api.NewContentHandler(d.content).RegisterRoutes(r)
	api.NewPlayHandler(registry).RegisterRoutes(r)
	r.Get("/ws/play", realtime.NewHandler(registry, conns, origins, cfg.IsDevelopment()).ServeHTTP)
	r.Handle("/*", web.SPAHandler())

	// WebSocket connections are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-grpcDone
			return fmt.Errorf("server failed: %w", err)
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := <-grpcDone; err != nil {
		slog.Error("gRPC health server stopped with error", "error", err)
	}

	slog.Info("Server stopped successfully", "sessions", registry.Len())
	return nil
}

// allowedOrigins lists the browser origins accepted for CORS and WebSocket.
// With nothing configured every origin is accepted.
func allowedOrigins(cfg *config.Config) []string {
	origins := append([]string(nil), cfg.AllowedOrigins...)
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
