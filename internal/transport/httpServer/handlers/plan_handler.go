package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer/handlers/dto"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/sl"

	"github.com/go-chi/chi/v5"
)

type PlanHandler struct {
	orchestrator PlanOrchestrator
	traces       TraceSource
	log          *slog.Logger
}

func NewPlanHandler(log *slog.Logger, orch PlanOrchestrator, traces TraceSource) *PlanHandler {
	return &PlanHandler{
		orchestrator: orch,
		traces:       traces,
		log:          log,
	}
}

// CreatePlan handles POST /api/v1/plans. The run starts asynchronously; the
// response carries the run id for polling and streaming.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.PlanHandler.CreatePlan()"
	log := h.log.With(slog.String("op", op))

	var req dto.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(log, fmt.Errorf("cannot decode json: %w", err), w, http.StatusBadRequest)
		return
	}

	constraints, err := dto.MapCreatePlanRequestToDomain(req)
	if err != nil {
		h.respondError(log, err, w, http.StatusBadRequest)
		return
	}

	runID := h.orchestrator.StartRun(req.UserID, constraints)

	log.Info("run started",
		slog.String("runID", runID),
		slog.String("date", constraints.Date.Format("2006-01-02")),
	)

	response := dto.CreatePlanResponse{
		RunID:  runID,
		Status: string(domain.RunStatusRunning),
	}

	if err := utils.Json(w, http.StatusAccepted, response); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// GetPlan handles GET /api/v1/plans/{runId}.
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.PlanHandler.GetPlan()"
	log := h.log.With(slog.String("op", op))

	runID := chi.URLParam(r, "runId")
	if runID == "" {
		h.respondError(log, fmt.Errorf("empty runId"), w, http.StatusBadRequest)
		return
	}

	state, ok := h.orchestrator.GetRun(runID)
	if !ok {
		h.respondError(log, fmt.Errorf("unknown run: %s", runID), w, http.StatusNotFound)
		return
	}

	if err := utils.Json(w, http.StatusOK, dto.MapRunStateToResponse(state)); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// ResolveApproval handles PUT /api/v1/plans/{runId}/approval.
func (h *PlanHandler) ResolveApproval(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.PlanHandler.ResolveApproval()"
	log := h.log.With(slog.String("op", op))

	runID := chi.URLParam(r, "runId")
	if runID == "" {
		h.respondError(log, fmt.Errorf("empty runId"), w, http.StatusBadRequest)
		return
	}

	var req dto.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(log, fmt.Errorf("cannot decode json: %w", err), w, http.StatusBadRequest)
		return
	}

	resolved, known := h.orchestrator.ResolveApproval(runID, req.Approved)
	if !known {
		h.respondError(log, fmt.Errorf("unknown run: %s", runID), w, http.StatusNotFound)
		return
	}
	if !resolved {
		h.respondError(log, fmt.Errorf("run %s has no pending approval", runID), w, http.StatusConflict)
		return
	}

	log.Info("approval resolved via http",
		slog.String("runID", runID),
		slog.Bool("approved", req.Approved),
	)

	response := dto.ApprovalResponse{
		RunID:    runID,
		Resolved: true,
		Approved: req.Approved,
	}

	if err := utils.Json(w, http.StatusOK, response); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// StreamEvents handles GET /api/v1/plans/{runId}/events as server-sent
// events. Already emitted events replay first, then live events stream until
// the client disconnects.
func (h *PlanHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.PlanHandler.StreamEvents()"
	log := h.log.With(slog.String("op", op))

	runID := chi.URLParam(r, "runId")
	if runID == "" {
		h.respondError(log, fmt.Errorf("empty runId"), w, http.StatusBadRequest)
		return
	}

	if _, ok := h.orchestrator.GetRun(runID); !ok {
		h.respondError(log, fmt.Errorf("unknown run: %s", runID), w, http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(log, fmt.Errorf("streaming not supported"), w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The bus calls listeners from emitter goroutines; serialize writes to
	// the response through a channel owned by this handler goroutine.
	events := make(chan domain.TraceEvent, 64)
	unsubscribe := h.traces.Subscribe(runID, func(event domain.TraceEvent) {
		select {
		case events <- event:
		default:
			// Slow client: dropping is better than blocking the pipeline.
		}
	})
	defer unsubscribe()

	log.Info("sse stream opened", slog.String("runID", runID))

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("sse stream closed", slog.String("runID", runID))
			return
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error("cannot marshal trace event", sl.Err(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *PlanHandler) respondError(log *slog.Logger, err error, w http.ResponseWriter, status int) {
	log.Error("handler error", sl.Err(err))
	if httpErr := utils.Err(w, status, err); httpErr != nil {
		log.Error("error sending http response", sl.Err(httpErr))
	}
}
