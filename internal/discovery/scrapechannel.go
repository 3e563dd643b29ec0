package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/discovery/sites"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/sl"
)

// ScrapeChannel is a discovery source backed by a site-specific scraper.
// An unconfigured URL or a failed/empty scrape degrades to demo data.
type ScrapeChannel struct {
	logger     *slog.Logger
	name       string
	listingURL string
	scrape     sites.ScrapeFunc
}

func NewScrapeChannel(logger *slog.Logger, name, listingURL string, scrape sites.ScrapeFunc) *ScrapeChannel {
	return &ScrapeChannel{
		logger:     logger,
		name:       name,
		listingURL: listingURL,
		scrape:     scrape,
	}
}

func (c *ScrapeChannel) Name() string { return c.name }

func (c *ScrapeChannel) Search(ctx context.Context, q Query) Result {
	op := "discovery.ScrapeChannel.Search()"
	log := c.logger.With(slog.String("op", op), slog.String("channel", c.name))
	started := time.Now()

	if c.listingURL == "" {
		log.Info("channel not configured, serving demo data")
		return Result{
			Events:    demoEvents(c.name, q),
			Mode:      ModeDemo,
			Duration:  time.Since(started),
			Reasoning: "channel not configured",
		}
	}

	events, err := c.scrape(ctx, c.listingURL)
	if err != nil || len(events) == 0 {
		reason := "scrape returned no events"
		if err != nil {
			reason = fmt.Sprintf("scrape failed: %s", err)
			log.Warn("scrape failed, degrading to demo data", sl.Err(err))
		} else {
			log.Warn("scrape returned no events, degrading to demo data")
		}
		return Result{
			Events:    demoEvents(c.name, q),
			Mode:      ModeDemo,
			Duration:  time.Since(started),
			Reasoning: reason,
		}
	}

	if q.MaxResults > 0 && len(events) > q.MaxResults {
		events = events[:q.MaxResults]
	}

	log.Info("scrape completed", slog.Int("events", len(events)))
	return Result{
		Events:   events,
		Mode:     ModeLive,
		Duration: time.Since(started),
	}
}
