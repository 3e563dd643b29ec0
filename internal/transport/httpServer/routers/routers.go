package routers

import (
	"log/slog"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer/handlers"
	myMiddleware "github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Router struct {
	log         *slog.Logger
	planHandler *handlers.PlanHandler
	jwtSecret   string
}

func NewRouter(log *slog.Logger, planHandler *handlers.PlanHandler, jwtSecret string) *Router {
	return &Router{
		log:         log,
		planHandler: planHandler,
		jwtSecret:   jwtSecret,
	}
}

func (r *Router) Mount(mux *chi.Mux) {

	mux.Use(cors.AllowAll().Handler)
	mux.Use(myMiddleware.LoggerMiddleware(r.log))
	mux.Use(middleware.Heartbeat("/ping"))

	mux.Route("/api", func(mux chi.Router) {
		mux.Route("/v1", func(mux chi.Router) {
			mux.Route("/plans", func(mux chi.Router) {
				mux.Use(myMiddleware.JWTAuth(r.jwtSecret))
				mux.Post("/", r.planHandler.CreatePlan)
				mux.Get("/{runId}", r.planHandler.GetPlan)
				mux.Put("/{runId}/approval", r.planHandler.ResolveApproval)
				mux.Get("/{runId}/events", r.planHandler.StreamEvents)
			})
		})
	})
}
