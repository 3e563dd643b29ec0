package sites

import (
	"context"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

// ScrapeFunc is a site-specific scraper. It takes the listing URL and returns
// whatever events it could extract.
type ScrapeFunc func(ctx context.Context, url string) ([]domain.Event, error)
