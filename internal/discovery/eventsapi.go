package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/sl"
)

// EventsAPIChannel searches a Discovery-API-style JSON endpoint. When the
// channel is unconfigured or the endpoint stays unreachable after retries, it
// serves demo data instead of failing the caller.
type EventsAPIChannel struct {
	logger     *slog.Logger
	name       string
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

func NewEventsAPIChannel(logger *slog.Logger, name, baseURL, apiKey string, maxRetries int, timeout time.Duration) *EventsAPIChannel {
	return &EventsAPIChannel{
		logger:     logger,
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *EventsAPIChannel) Name() string { return c.name }

func (c *EventsAPIChannel) Search(ctx context.Context, q Query) Result {
	op := "discovery.EventsAPIChannel.Search()"
	log := c.logger.With(slog.String("op", op), slog.String("channel", c.name))
	started := time.Now()

	if c.apiKey == "" || c.baseURL == "" {
		log.Info("channel not configured, serving demo data")
		return Result{
			Events:    demoEvents(c.name, q),
			Mode:      ModeDemo,
			Duration:  time.Since(started),
			Reasoning: "channel not configured",
		}
	}

	events, err := c.searchLive(ctx, q)
	if err != nil {
		log.Warn("live search failed, degrading to demo data", sl.Err(err))
		return Result{
			Events:    demoEvents(c.name, q),
			Mode:      ModeDemo,
			Duration:  time.Since(started),
			Reasoning: fmt.Sprintf("live search failed: %s", err),
		}
	}

	log.Info("live search completed", slog.Int("events", len(events)))
	return Result{
		Events:   events,
		Mode:     ModeLive,
		Duration: time.Since(started),
	}
}

type apiEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Info   string `json:"info"`
	URL    string `json:"url"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues []struct {
			Name    string `json:"name"`
			Address struct {
				Line1 string `json:"line1"`
			} `json:"address"`
			Location struct {
				Latitude  string `json:"latitude"`
				Longitude string `json:"longitude"`
			} `json:"location"`
		} `json:"venues"`
	} `json:"_embedded"`
}

type apiResponse struct {
	Embedded struct {
		Events []apiEvent `json:"events"`
	} `json:"_embedded"`
}

func (c *EventsAPIChannel) searchLive(ctx context.Context, q Query) ([]domain.Event, error) {
	op := "discovery.EventsAPIChannel.searchLive()"

	newRequest := func() (*http.Request, error) {
		params := url.Values{}
		params.Set("apikey", c.apiKey)
		params.Set("size", fmt.Sprintf("%d", q.MaxResults))
		if !q.Date.IsZero() {
			params.Set("startDateTime", q.Date.UTC().Format("2006-01-02T15:04:05Z"))
		}
		if len(q.AreaHints) > 0 {
			params.Set("city", q.AreaHints[0])
		}
		return http.NewRequest(http.MethodGet, c.baseURL+"/events.json?"+params.Encode(), nil)
	}

	resp, err := doWithRetry(ctx, c.httpClient, newRequest, c.maxRetries, c.logger)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	events := make([]domain.Event, 0, len(body.Embedded.Events))
	for _, ae := range body.Embedded.Events {
		events = append(events, c.mapEvent(ae))
	}
	return events, nil
}

func (c *EventsAPIChannel) mapEvent(ae apiEvent) domain.Event {
	e := domain.Event{
		ID:              fmt.Sprintf("%s-%s", c.name, ae.ID),
		Name:            ae.Name,
		Description:     ae.Info,
		Category:        mapSegment(ae),
		Source:          c.name,
		Availability:    mapStatus(ae.Dates.Status.Code),
		BookingRequired: true,
		SourceURL:       ae.URL,
	}

	if start, err := time.Parse(time.RFC3339, ae.Dates.Start.DateTime); err == nil {
		e.TimeSlot.Start = start
		e.TimeSlot.End = start.Add(3 * time.Hour)
	}
	if end, err := time.Parse(time.RFC3339, ae.Dates.End.DateTime); err == nil {
		e.TimeSlot.End = end
	}

	if len(ae.PriceRanges) > 0 {
		e.Price = &domain.PriceRange{
			Min:      ae.PriceRanges[0].Min,
			Max:      ae.PriceRanges[0].Max,
			Currency: ae.PriceRanges[0].Currency,
		}
	}

	if len(ae.Images) > 0 {
		e.ImageURL = ae.Images[0].URL
	}

	if len(ae.Embedded.Venues) > 0 {
		v := ae.Embedded.Venues[0]
		e.Location = domain.Location{Name: v.Name, Address: v.Address.Line1}
		fmt.Sscanf(v.Location.Latitude, "%f", &e.Location.Lat)
		fmt.Sscanf(v.Location.Longitude, "%f", &e.Location.Lng)
	}

	return e
}

func mapSegment(ae apiEvent) domain.Category {
	if len(ae.Classifications) == 0 {
		return domain.CategoryOther
	}
	switch ae.Classifications[0].Segment.Name {
	case "Music":
		return domain.CategoryConcert
	case "Sports":
		return domain.CategorySports
	case "Arts & Theatre":
		return domain.CategoryTheatre
	default:
		return domain.CategoryOther
	}
}

func mapStatus(code string) domain.Availability {
	switch code {
	case "onsale":
		return domain.AvailabilityAvailable
	case "offsale", "cancelled":
		return domain.AvailabilitySoldOut
	case "limited":
		return domain.AvailabilityLimited
	default:
		return domain.AvailabilityUnknown
	}
}
