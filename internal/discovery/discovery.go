package discovery

import (
	"context"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

// Mode tells whether a channel returned live data or its deterministic
// placeholder set.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

// Query is one discovery request.
type Query struct {
	Date       time.Time
	Categories []domain.Category
	BudgetMax  float64
	AreaHints  []string
	MaxResults int
}

// Result is what a channel returns. A channel never fails its caller: when
// the live source is unreachable it degrades to demo data and records why in
// Reasoning.
type Result struct {
	Events    []domain.Event
	Mode      Mode
	Duration  time.Duration
	Reasoning string
}

// Channel is one discovery source.
type Channel interface {
	Name() string
	Search(ctx context.Context, q Query) Result
}
