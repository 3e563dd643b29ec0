package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"

	openrouter "github.com/revrost/go-openrouter"
)

const (
	// retryCount bounds repeated completion attempts on transient errors.
	retryCount int = 5
	// retryDuration is the wait between attempts.
	retryDuration time.Duration = 5 * time.Second

	// promptEventLimit caps how many ranked events are shown to the model.
	promptEventLimit = 8
)

// Completer is the generative text boundary: a prompt in, text out. Expected
// but not guaranteed to be JSON matching dto.GeneratedPlan.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenrouterClient talks to OpenRouter's chat completion API.
type OpenrouterClient struct {
	logger *slog.Logger
	cfg    *config.Config
	Client *openrouter.Client
}

func NewOpenrouterClient(logger *slog.Logger, cfg *config.Config) *OpenrouterClient {
	op := "planner.NewOpenrouterClient()"
	log := logger.With(slog.String("op", op))
	log.Info("creating openrouter client", slog.String("model", cfg.AIConfig.ModelName))

	return &OpenrouterClient{
		logger: logger,
		cfg:    cfg,
		Client: openrouter.NewClient(cfg.AIConfig.AIApiToken),
	}
}

// Complete sends the prompt and returns the raw completion text, cleaned of
// markdown fences. Retries rate limits and connection drops; anything else
// fails after the first attempt.
func (c *OpenrouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	op := "planner.OpenrouterClient.Complete()"
	log := c.logger.With(slog.String("op", op))

	var resp openrouter.ChatCompletionResponse
	var err error

	for retry := 0; retry < retryCount; retry++ {
		resp, err = c.Client.CreateChatCompletion(
			ctx,
			openrouter.ChatCompletionRequest{
				Model: c.cfg.AIConfig.ModelName,
				Messages: []openrouter.ChatCompletionMessage{
					openrouter.SystemMessage(systemPrompt),
					openrouter.UserMessage(prompt),
				},
				MaxTokens:   c.cfg.AIConfig.MaxTokens,
				Temperature: c.cfg.AIConfig.Temperature,
			},
		)
		if err != nil && (isRateLimitError(err) || isEOFError(err)) {
			log.Warn("AI completion error, retrying",
				slog.String("error", err.Error()),
				slog.Int("retry", retry),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDuration):
			}
			continue
		}
		break
	}

	if err != nil {
		return "", fmt.Errorf("%s: AI completion failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty AI response", op)
	}

	return CleanJSONResponse(resp.Choices[0].Message.Content.Text), nil
}

// isRateLimitError checks for HTTP 429 by error text. Less reliable than a
// status code, but the client does not expose one.
func isRateLimitError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "429")
}

// isEOFError checks for dropped connections worth retrying.
func isEOFError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "EOF")
}

// CleanJSONResponse strips markdown fences and any text around the first
// balanced JSON object. Some models wrap JSON in ```json ... ``` and chat
// after it.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if after, ok := strings.CutPrefix(response, "```json"); ok {
		response = after
	} else if after, ok := strings.CutPrefix(response, "```"); ok {
		response = after
	}

	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return response
	}

	depth := 0
	endIdx := -1
	inString := false
	escaped := false

	for i := startIdx; i < len(response); i++ {
		c := response[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
			if depth == 0 {
				endIdx = i
				break
			}
		}
	}

	if endIdx != -1 {
		return response[startIdx : endIdx+1]
	}

	return response
}

const systemPrompt = `You are an itinerary planner. Given a user's constraints and a ranked list of real events, produce a JSON object with this exact shape and nothing else:
{
  "name": "short itinerary title",
  "vibe": "one-sentence mood description",
  "tips": ["practical tip", "..."],
  "items": [
    {
      "name": "stop name (use the real event name when using a real event)",
      "category": "concert|theatre|sports|dining|nightlife|outdoor|cultural|workshop|exhibition|festival|other",
      "main_event": true,
      "start_time": "HH:MM",
      "end_time": "HH:MM",
      "duration_minutes": 90,
      "location": "venue or area",
      "cost_estimate": 25,
      "price_tier": "free|budget|moderate|premium",
      "travel_from_previous": {"minutes": 15, "mode": "walk"},
      "booking_required": true,
      "source_url": "the real event's URL when known"
    }
  ]
}
Exactly one item must have main_event=true, built around the highest-ranked event. Keep the total per-person cost within budget.`

// BuildPrompt renders the user constraints and top ranked events into the
// completion prompt.
func BuildPrompt(c domain.UserConstraints, ranked []domain.RankedEvent) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Plan an itinerary for %s.\n", c.Date.Format("Monday, 02 Jan 2006"))
	fmt.Fprintf(&sb, "Party size: %d.\n", c.PartySize)
	if c.HasBudget {
		fmt.Fprintf(&sb, "Budget per person: %.0f-%.0f.\n", c.BudgetMin, c.BudgetMax)
	}
	if c.DurationHours > 0 {
		fmt.Fprintf(&sb, "Desired duration: about %.0f hours.\n", c.DurationHours)
	}
	if len(c.PreferredCategories) > 0 {
		fmt.Fprintf(&sb, "Preferred categories: %s.\n", joinCategories(c.PreferredCategories))
	}
	if len(c.ExcludedCategories) > 0 {
		fmt.Fprintf(&sb, "Excluded categories: %s.\n", joinCategories(c.ExcludedCategories))
	}
	if c.PreferFreeEvents {
		sb.WriteString("The user prefers free events.\n")
	}

	sb.WriteString("\nRanked events (best first):\n")
	for i, r := range ranked {
		if i >= promptEventLimit {
			break
		}
		e := r.Event
		fmt.Fprintf(&sb, "%d. %s [%s] at %s, %s-%s",
			i+1, e.Name, e.Category, e.Location.Name,
			e.TimeSlot.Start.Format("15:04"), e.TimeSlot.End.Format("15:04"),
		)
		if e.Price != nil {
			fmt.Fprintf(&sb, ", price %.0f-%.0f %s", e.Price.Min, e.Price.Max, e.Price.Currency)
		}
		if e.SourceURL != "" {
			fmt.Fprintf(&sb, ", url %s", e.SourceURL)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func joinCategories(cats []domain.Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
