package handlers

import (
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/orchestrator"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/trace"
)

// PlanOrchestrator is what the handlers need from the pipeline.
type PlanOrchestrator interface {
	StartRun(userID string, constraints domain.UserConstraints) string
	GetRun(runID string) (orchestrator.RunState, bool)
	ResolveApproval(runID string, approved bool) (resolved, known bool)
}

// TraceSource is the read side of the trace bus for the SSE stream.
type TraceSource interface {
	Subscribe(runID string, listener trace.Listener) (unsubscribe func())
	GetHistory(runID string) []domain.TraceEvent
}
