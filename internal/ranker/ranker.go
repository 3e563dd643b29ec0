package ranker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

// Fixed scoring weights, summing to 1.0. Product-tuned values; keep as is.
const (
	weightBudget       = 0.30
	weightCategory     = 0.25
	weightRating       = 0.20
	weightAvailability = 0.15
	weightWeather      = 0.10

	freeEventBoost = 0.25
	overBudgetCut  = 1.5
)

// Stats reports how many events survived each ranking phase.
type Stats struct {
	Input      int
	PassedHard int
	Final      int
}

// Rank hard-filters and scores events against the user constraints, returning
// them sorted by descending score. Ties preserve input order. Every surviving
// event carries a reasoning string enumerating its sub-scores.
func Rank(events []domain.Event, c domain.UserConstraints) ([]domain.RankedEvent, Stats) {
	stats := Stats{Input: len(events)}

	survivors := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if passesHardFilters(e, c) {
			survivors = append(survivors, e)
		}
	}
	stats.PassedHard = len(survivors)

	ranked := make([]domain.RankedEvent, len(survivors))
	for i, e := range survivors {
		ranked[i] = score(e, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	stats.Final = len(ranked)
	return ranked, stats
}

// passesHardFilters applies pre-scoring exclusions, in a fixed order so the
// first failing rule is the explanation: sold out, excluded category, then
// "way over budget" (price minimum above 1.5× the budget ceiling).
func passesHardFilters(e domain.Event, c domain.UserConstraints) bool {
	if e.Availability == domain.AvailabilitySoldOut {
		return false
	}
	for _, excluded := range c.ExcludedCategories {
		if e.Category == excluded {
			return false
		}
	}
	if c.HasBudget && e.Price != nil && e.Price.Min > c.BudgetMax*overBudgetCut {
		return false
	}
	return true
}

func score(e domain.Event, c domain.UserConstraints) domain.RankedEvent {
	budget := budgetFit(e, c)
	category := categoryMatch(e, c)
	rating := ratingScore(e)
	availability := availabilityScore(e)
	weather := weatherScore(e, c)

	combined := budget*weightBudget +
		category*weightCategory +
		rating*weightRating +
		availability*weightAvailability +
		weather*weightWeather

	boosted := false
	if c.PreferFreeEvents && e.Price != nil && e.Price.Max == 0 {
		combined += freeEventBoost
		boosted = true
	}

	combined = math.Min(1.0, math.Max(0.0, combined))
	combined = math.Round(combined*100) / 100

	var sb strings.Builder
	fmt.Fprintf(&sb, "budget fit %.2f (%.0f%%)", budget, budget*weightBudget*100)
	fmt.Fprintf(&sb, ", category match %.2f (%.0f%%)", category, category*weightCategory*100)
	fmt.Fprintf(&sb, ", rating %.2f (%.0f%%)", rating, rating*weightRating*100)
	fmt.Fprintf(&sb, ", availability %.2f (%.0f%%)", availability, availability*weightAvailability*100)
	fmt.Fprintf(&sb, ", weather %.2f (%.0f%%)", weather, weather*weightWeather*100)
	if boosted {
		fmt.Fprintf(&sb, ", free-event boost +%.2f", freeEventBoost)
	}

	return domain.RankedEvent{
		Event:     e,
		Score:     combined,
		Reasoning: sb.String(),
	}
}

// budgetFit rewards a "sweet spot" near 70% budget utilization and penalizes
// events that spill over the ceiling. Free events score full marks.
func budgetFit(e domain.Event, c domain.UserConstraints) float64 {
	if e.Price.IsFree() {
		return 1.0
	}
	if !c.HasBudget || e.Price == nil {
		return 0.7
	}

	switch {
	case e.Price.Max <= c.BudgetMax:
		util := e.Price.Max / c.BudgetMax
		return math.Max(0.6, 1.0-math.Abs(util-0.7)*0.5)
	case e.Price.Min <= c.BudgetMax:
		overRatio := (e.Price.Max - c.BudgetMax) / c.BudgetMax
		return math.Max(0.1, 0.6-overRatio)
	default:
		// Only reachable in the 1.0–1.5× band; anything above was hard-filtered.
		overRatio := (e.Price.Max - c.BudgetMax) / c.BudgetMax
		return math.Max(0, 0.3-overRatio)
	}
}

func categoryMatch(e domain.Event, c domain.UserConstraints) float64 {
	for _, excluded := range c.ExcludedCategories {
		if e.Category == excluded {
			return 0
		}
	}
	if len(c.PreferredCategories) == 0 {
		return 0.5
	}
	for _, preferred := range c.PreferredCategories {
		if e.Category == preferred {
			return 1.0
		}
	}
	return 0.3
}

// ratingScore defaults unrated events slightly below neutral: unknown quality
// is a risk, not a blank slate.
func ratingScore(e domain.Event) float64 {
	if !e.RatingKnown {
		return 0.4
	}
	s := e.Rating / 5
	if e.ReviewCount > 50 {
		s += 0.05
	}
	return math.Min(1.0, s)
}

func availabilityScore(e domain.Event) float64 {
	switch e.Availability {
	case domain.AvailabilityAvailable:
		return 1.0
	case domain.AvailabilityLimited:
		return 0.8
	case domain.AvailabilitySoldOut:
		return 0
	default:
		return 0.5
	}
}

func weatherScore(e domain.Event, c domain.UserConstraints) float64 {
	if c.GoodWeather == nil {
		return 0.5
	}
	if e.Category == domain.CategoryOutdoor {
		if *c.GoodWeather {
			return 1.0
		}
		return 0.1
	}
	return 0.6
}
