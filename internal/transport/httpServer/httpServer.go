package httpServer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer/routers"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/sl"

	"github.com/go-chi/chi/v5"
)

type HttpServer struct {
	log    *slog.Logger
	cfg    *config.Config
	server *http.Server
}

func NewHttpServer(log *slog.Logger, router *routers.Router, cfg *config.Config) *HttpServer {
	mux := chi.NewRouter()
	router.Mount(mux)

	addr := net.JoinHostPort(cfg.HttpServer.Address, cfg.HttpServer.Port)

	return &HttpServer{
		log: log,
		cfg: cfg,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  cfg.HttpServer.Timeout,
			WriteTimeout: 0, // SSE streams stay open indefinitely
			IdleTimeout:  cfg.HttpServer.Timeout,
		},
	}
}

// Listen blocks serving HTTP until Shutdown.
func (s *HttpServer) Listen() {
	op := "httpServer.HttpServer.Listen()"
	log := s.log.With(slog.String("op", op))

	log.Info("http server listening", slog.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("http server stopped", sl.Err(err))
	}
}

// Shutdown drains in-flight requests within the deadline of ctx.
func (s *HttpServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("force exit http server: %w", err)
	}
	return nil
}
