package dto

import (
	"fmt"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/orchestrator"
)

// CreatePlanRequest is one planning submission.
type CreatePlanRequest struct {
	UserID              string   `json:"user_id"`
	Date                string   `json:"date"` // YYYY-MM-DD
	BudgetMin           float64  `json:"budget_min"`
	BudgetMax           *float64 `json:"budget_max"`
	DurationHours       float64  `json:"duration_hours"`
	PartySize           int      `json:"party_size"`
	PreferredCategories []string `json:"preferred_categories"`
	ExcludedCategories  []string `json:"excluded_categories"`
	AreaHints           []string `json:"area_hints"`
	PreferFreeEvents    bool     `json:"prefer_free_events"`
	GoodWeather         *bool    `json:"good_weather"`
}

// MapCreatePlanRequestToDomain validates the request and converts it to
// domain constraints. A missing budget_max means no budget ceiling at all.
func MapCreatePlanRequestToDomain(req CreatePlanRequest) (domain.UserConstraints, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return domain.UserConstraints{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", req.Date, err)
	}

	partySize := req.PartySize
	if partySize < 1 {
		partySize = 1
	}

	c := domain.UserConstraints{
		BudgetMin:           req.BudgetMin,
		Date:                date,
		DurationHours:       req.DurationHours,
		PartySize:           partySize,
		PreferredCategories: mapCategories(req.PreferredCategories),
		ExcludedCategories:  mapCategories(req.ExcludedCategories),
		AreaHints:           req.AreaHints,
		PreferFreeEvents:    req.PreferFreeEvents,
		GoodWeather:         req.GoodWeather,
	}
	if req.BudgetMax != nil {
		if *req.BudgetMax < 0 {
			return domain.UserConstraints{}, fmt.Errorf("budget_max must not be negative")
		}
		c.BudgetMax = *req.BudgetMax
		c.HasBudget = true
	}

	return c, nil
}

func mapCategories(names []string) []domain.Category {
	cats := make([]domain.Category, 0, len(names))
	for _, n := range names {
		cats = append(cats, domain.Category(n))
	}
	return cats
}

// CreatePlanResponse acknowledges an accepted submission.
type CreatePlanResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// ApprovalRequest carries an approve/decline decision.
type ApprovalRequest struct {
	Approved bool `json:"approved"`
}

type ApprovalResponse struct {
	RunID    string `json:"run_id"`
	Resolved bool   `json:"resolved"`
	Approved bool   `json:"approved"`
}

// ItemResponse is one itinerary stop.
type ItemResponse struct {
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Venue           string    `json:"venue,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	IsMainEvent     bool      `json:"is_main_event"`
	TravelMinutes   int       `json:"travel_minutes,omitempty"`
	TravelMode      string    `json:"travel_mode,omitempty"`
	CostPerPerson   float64   `json:"cost_per_person"`
	PriceTier       string    `json:"price_tier,omitempty"`
	BookingRequired bool      `json:"booking_required"`
	Status          string    `json:"status"`
	SourceURL       string    `json:"source_url,omitempty"`
}

// ItineraryResponse is the reconciled plan.
type ItineraryResponse struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Vibe                 string         `json:"vibe,omitempty"`
	Tips                 []string       `json:"tips,omitempty"`
	Items                []ItemResponse `json:"items"`
	TotalCost            float64        `json:"total_cost"`
	TotalDurationMinutes int            `json:"total_duration_minutes"`
	Status               string         `json:"status"`
}

// BookingResponse is one booking attempt outcome.
type BookingResponse struct {
	ItemName         string    `json:"item_name"`
	Status           string    `json:"status"`
	ConfirmationCode string    `json:"confirmation_code,omitempty"`
	ScreenshotPath   string    `json:"screenshot_path,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// RunResponse is the full externally visible state of a run.
type RunResponse struct {
	RunID     string             `json:"run_id"`
	Status    string             `json:"status"`
	Itinerary *ItineraryResponse `json:"itinerary,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
	Bookings  []BookingResponse  `json:"bookings,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// MapRunStateToResponse converts orchestrator run state to the wire shape.
func MapRunStateToResponse(state orchestrator.RunState) RunResponse {
	resp := RunResponse{
		RunID:     state.RunID,
		Status:    string(state.Status),
		Warnings:  state.Warnings,
		Error:     state.Error,
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	}

	if state.Itinerary != nil {
		it := mapItinerary(*state.Itinerary)
		resp.Itinerary = &it
	}

	for _, b := range state.Bookings {
		resp.Bookings = append(resp.Bookings, BookingResponse{
			ItemName:         b.ItemName,
			Status:           string(b.Status),
			ConfirmationCode: b.ConfirmationCode,
			ScreenshotPath:   b.ScreenshotPath,
			Error:            b.Error,
			Timestamp:        b.Timestamp,
		})
	}

	return resp
}

func mapItinerary(it domain.Itinerary) ItineraryResponse {
	items := make([]ItemResponse, len(it.Items))
	for i, item := range it.Items {
		items[i] = ItemResponse{
			Name:            item.Event.Name,
			Category:        string(item.Event.Category),
			Venue:           item.Event.Location.Name,
			Start:           item.Scheduled.Start,
			End:             item.Scheduled.End,
			IsMainEvent:     item.IsMainEvent,
			TravelMinutes:   item.TravelMinutes,
			TravelMode:      item.TravelMode,
			CostPerPerson:   item.CostPerPerson,
			PriceTier:       item.PriceTier,
			BookingRequired: item.BookingRequired,
			Status:          string(item.Status),
			SourceURL:       item.Event.SourceURL,
		}
	}

	return ItineraryResponse{
		ID:                   it.ID.String(),
		Name:                 it.Name,
		Vibe:                 it.Vibe,
		Tips:                 it.Tips,
		Items:                items,
		TotalCost:            it.TotalCost,
		TotalDurationMinutes: int(it.TotalDuration.Minutes()),
		Status:               string(it.Status),
	}
}
