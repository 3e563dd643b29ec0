package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/dto"

	"github.com/google/uuid"
)

// Reconciliation knobs. Defaults mirror product decisions; changing them
// changes which plans reach the approver.
type Params struct {
	MaxItems   int
	Cutoff     dto.Clock // end-of-day cutoff for non-main items
	MaxSpan    time.Duration
	MaxIdleGap time.Duration
	TightGap   time.Duration
}

func DefaultParams() Params {
	return Params{
		MaxItems:   4,
		Cutoff:     dto.Clock{Hour: 23, Minute: 0},
		MaxSpan:    8 * time.Hour,
		MaxIdleGap: 45 * time.Minute,
		TightGap:   5 * time.Minute,
	}
}

// Summary is the human-facing digest attached to a reconciled plan.
type Summary struct {
	Name           string
	Vibe           string
	Tips           []string
	BudgetStatus   string
	ItemCount      int
	MainCount      int
	GeneratedCount int
}

// Outcome is the reconciler result: a usable itinerary (possibly the minimal
// fallback), its summary, and every warning produced. Warnings are
// diagnostics for the approver, never rejections.
type Outcome struct {
	Usable    bool
	Itinerary domain.Itinerary
	Summary   Summary
	Warnings  []string
}

const wordOverlapThreshold = 0.6

// Reconcile validates an untrusted generative plan against ranked ground
// truth, corrects hallucinated times, enforces the item cap and end-of-day
// cutoff, and collects warnings. No single check fails the run; only the
// total absence of a usable plan degrades to a one-item fallback built from
// the top-ranked event.
func Reconcile(planText string, ranked []domain.RankedEvent, date time.Time, budgetCeiling float64, hasBudget bool, partySize int, p Params) Outcome {
	if partySize < 1 {
		partySize = 1
	}

	var warnings []string

	var plan dto.GeneratedPlan
	parseErr := json.Unmarshal([]byte(planText), &plan)
	if parseErr == nil {
		parseErr = plan.Validate()
	}
	if parseErr != nil {
		warnings = append(warnings, fmt.Sprintf("generated plan failed validation (%s), using minimal fallback", parseErr))
		return fallbackOutcome(ranked, partySize, warnings)
	}

	// Item-count cap: main events always survive, then non-main items in
	// their original order, then chronological re-sort.
	items := plan.Items
	if len(items) > p.MaxItems {
		warnings = append(warnings, fmt.Sprintf("plan had %d items, trimmed to %d", len(items), p.MaxItems))
		items = trimItems(items, p.MaxItems)
	}

	built := make([]domain.ItineraryItem, 0, len(items))
	for _, gi := range items {
		item, itemWarnings := buildItem(gi, ranked, date)
		built = append(built, item)
		warnings = append(warnings, itemWarnings...)
	}

	sortChronologically(built)

	warnings = append(warnings, sequencingWarnings(built, p)...)

	built, dropWarnings := applyCutoff(built, date, p.Cutoff)
	warnings = append(warnings, dropWarnings...)

	if len(built) == 0 {
		warnings = append(warnings, "no items survived reconciliation, using minimal fallback")
		return fallbackOutcome(ranked, partySize, warnings)
	}

	if span := totalSpan(built); span > p.MaxSpan {
		warnings = append(warnings, fmt.Sprintf("plan spans %.1f hours, above the %.1f hour target", span.Hours(), p.MaxSpan.Hours()))
	}

	perPerson := 0.0
	mainCount := 0
	generatedCount := 0
	for _, item := range built {
		perPerson += item.CostPerPerson
		if item.IsMainEvent {
			mainCount++
		}
		if item.Status == domain.ItemStatusGenerated {
			generatedCount++
		}
	}

	budgetStatus := "no budget set"
	if hasBudget {
		budgetStatus, warnings = checkBudget(perPerson, budgetCeiling, warnings)
	}

	now := time.Now()
	itinerary := domain.Itinerary{
		ID:            uuid.New(),
		Name:          plan.Name,
		Vibe:          plan.Vibe,
		Tips:          plan.Tips,
		Items:         built,
		TotalCost:     perPerson * float64(partySize),
		TotalDuration: totalSpan(built),
		Status:        domain.ItineraryStatusDraft,
		Warnings:      warnings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return Outcome{
		Usable:    true,
		Itinerary: itinerary,
		Summary: Summary{
			Name:           plan.Name,
			Vibe:           plan.Vibe,
			Tips:           plan.Tips,
			BudgetStatus:   budgetStatus,
			ItemCount:      len(built),
			MainCount:      mainCount,
			GeneratedCount: generatedCount,
		},
		Warnings: warnings,
	}
}

// trimItems keeps every main-event item, fills remaining slots with non-main
// items in their original order, then re-sorts chronologically at build time.
func trimItems(items []dto.GeneratedItem, max int) []dto.GeneratedItem {
	kept := make([]dto.GeneratedItem, 0, max)
	for _, item := range items {
		if item.MainEvent {
			kept = append(kept, item)
		}
	}
	for _, item := range items {
		if len(kept) >= max {
			break
		}
		if !item.MainEvent {
			kept = append(kept, item)
		}
	}
	return kept
}

// buildItem resolves one generative item: fuzzy match to ranked ground
// truth, authoritative time override for matched main events, warnings for
// anything the approver should know.
func buildItem(gi dto.GeneratedItem, ranked []domain.RankedEvent, date time.Time) (domain.ItineraryItem, []string) {
	var warnings []string

	scheduled := scheduleOnDate(gi, date)

	item := domain.ItineraryItem{
		Scheduled:       scheduled,
		IsMainEvent:     gi.MainEvent,
		CostPerPerson:   float64(gi.CostEstimate),
		PriceTier:       gi.PriceTier,
		BookingRequired: gi.BookingRequired,
		Status:          domain.ItemStatusGenerated,
	}
	if gi.Travel != nil {
		item.TravelMinutes = int(gi.Travel.Minutes)
		item.TravelMode = gi.Travel.Mode
	}

	matched, ok := matchEvent(gi.Name, ranked)
	if !ok {
		item.Event = domain.Event{
			Name:      gi.Name,
			Category:  domain.Category(gi.Category),
			Location:  domain.Location{Name: gi.Location},
			SourceURL: gi.SourceURL,
		}
		if gi.MainEvent {
			warnings = append(warnings, fmt.Sprintf("main event %q could not be matched to a discovered event; times may be unreliable", gi.Name))
		}
		return item, warnings
	}

	item.Event = matched
	item.Status = domain.ItemStatusPlanned

	// Authoritative data beats generative hallucination: a matched main
	// event takes the real time slot.
	if gi.MainEvent {
		real := matched.TimeSlot
		if !scheduled.Start.Equal(real.Start) || !scheduled.End.Equal(real.End) {
			warnings = append(warnings, fmt.Sprintf(
				"corrected time for %q: plan said %s-%s, actual is %s-%s",
				matched.Name,
				scheduled.Start.Format("15:04"), scheduled.End.Format("15:04"),
				real.Start.Format("15:04"), real.End.Format("15:04"),
			))
			item.Status = domain.ItemStatusCorrected
		}
		item.Scheduled = real
	}

	return item, warnings
}

func scheduleOnDate(gi dto.GeneratedItem, date time.Time) domain.TimeSlot {
	start, _ := dto.ParseClock(gi.StartTime)
	end, _ := dto.ParseClock(gi.EndTime)
	return domain.TimeSlot{
		Start: time.Date(date.Year(), date.Month(), date.Day(), start.Hour, start.Minute, 0, 0, date.Location()),
		End:   time.Date(date.Year(), date.Month(), date.Day(), end.Hour, end.Minute, 0, 0, date.Location()),
	}
}

var wordSplit = regexp.MustCompile(`[^a-z0-9]+`)

// matchEvent tries, in order: exact name match, normalized exact match,
// substring containment either direction, then ≥60% word overlap counting
// words longer than two characters. First success wins.
func matchEvent(name string, ranked []domain.RankedEvent) (domain.Event, bool) {
	for _, r := range ranked {
		if r.Event.Name == name {
			return r.Event, true
		}
	}

	norm := normalize(name)
	if norm == "" {
		return domain.Event{}, false
	}

	for _, r := range ranked {
		if normalize(r.Event.Name) == norm {
			return r.Event, true
		}
	}

	for _, r := range ranked {
		other := normalize(r.Event.Name)
		if other != "" && (strings.Contains(other, norm) || strings.Contains(norm, other)) {
			return r.Event, true
		}
	}

	words := significantWords(norm)
	if len(words) == 0 {
		return domain.Event{}, false
	}
	for _, r := range ranked {
		otherWords := significantWords(normalize(r.Event.Name))
		if wordOverlap(words, otherWords) >= wordOverlapThreshold {
			return r.Event, true
		}
	}

	return domain.Event{}, false
}

func normalize(s string) string {
	return strings.TrimSpace(wordSplit.ReplaceAllString(strings.ToLower(s), " "))
}

func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func wordOverlap(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, w := range b {
		set[w] = true
	}
	matched := 0
	for _, w := range a {
		if set[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(a))
}

func sortChronologically(items []domain.ItineraryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Scheduled.Start.Before(items[j].Scheduled.Start)
	})
}

// sequencingWarnings walks items in chronological order after time
// resolution and flags overlaps, tight transitions, and excessive gaps.
// All non-fatal.
func sequencingWarnings(items []domain.ItineraryItem, p Params) []string {
	var warnings []string
	for i := 1; i < len(items); i++ {
		prev, curr := items[i-1], items[i]
		gap := curr.Scheduled.Start.Sub(prev.Scheduled.End)
		switch {
		case gap < 0:
			warnings = append(warnings, fmt.Sprintf("%q overlaps %q by %s", curr.Event.Name, prev.Event.Name, (-gap).Round(time.Minute)))
		case gap < p.TightGap && curr.TravelMinutes > 0:
			warnings = append(warnings, fmt.Sprintf("tight transition into %q: %s gap with %d minutes of travel", curr.Event.Name, gap.Round(time.Minute), curr.TravelMinutes))
		case gap > p.MaxIdleGap:
			warnings = append(warnings, fmt.Sprintf("excessive gap of %s before %q", gap.Round(time.Minute), curr.Event.Name))
		}
	}
	return warnings
}

// applyCutoff drops non-main items ending after the end-of-day cutoff. Main
// items are ground truth and stay, with a warning.
func applyCutoff(items []domain.ItineraryItem, date time.Time, cutoff dto.Clock) ([]domain.ItineraryItem, []string) {
	limit := time.Date(date.Year(), date.Month(), date.Day(), cutoff.Hour, cutoff.Minute, 0, 0, date.Location())

	var warnings []string
	kept := items[:0]
	for _, item := range items {
		if !item.Scheduled.End.After(limit) {
			kept = append(kept, item)
			continue
		}
		if item.IsMainEvent {
			warnings = append(warnings, fmt.Sprintf("main event %q ends at %s, after the %02d:%02d cutoff", item.Event.Name, item.Scheduled.End.Format("15:04"), cutoff.Hour, cutoff.Minute))
			kept = append(kept, item)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("dropped %q: ends at %s, after the %02d:%02d cutoff", item.Event.Name, item.Scheduled.End.Format("15:04"), cutoff.Hour, cutoff.Minute))
	}
	return kept, warnings
}

func totalSpan(items []domain.ItineraryItem) time.Duration {
	if len(items) == 0 {
		return 0
	}
	return items[len(items)-1].Scheduled.End.Sub(items[0].Scheduled.Start)
}

func checkBudget(perPerson, ceiling float64, warnings []string) (string, []string) {
	switch {
	case ceiling <= 0 || perPerson <= ceiling:
		return "within budget", warnings
	case perPerson <= ceiling*1.2:
		return "slightly over budget", append(warnings, fmt.Sprintf("plan costs %.2f per person, slightly over the %.2f budget", perPerson, ceiling))
	default:
		return "over budget", append(warnings, fmt.Sprintf("budget overrun: plan costs %.2f per person against a %.2f budget", perPerson, ceiling))
	}
}

// fallbackOutcome builds the minimal one-item itinerary from the top-ranked
// event. With nothing ranked there is nothing to plan, and the outcome is
// unusable.
func fallbackOutcome(ranked []domain.RankedEvent, partySize int, warnings []string) Outcome {
	if len(ranked) == 0 {
		return Outcome{Usable: false, Warnings: append(warnings, "no discovered events to fall back on")}
	}

	top := ranked[0].Event
	cost := 0.0
	if top.Price != nil {
		cost = top.Price.Max
	}

	item := domain.ItineraryItem{
		Event:           top,
		Scheduled:       top.TimeSlot,
		IsMainEvent:     true,
		CostPerPerson:   cost,
		BookingRequired: top.BookingRequired,
		Status:          domain.ItemStatusPlanned,
	}

	now := time.Now()
	itinerary := domain.Itinerary{
		ID:            uuid.New(),
		Name:          top.Name,
		Vibe:          "a focused evening around one event",
		Items:         []domain.ItineraryItem{item},
		TotalCost:     cost * float64(partySize),
		TotalDuration: top.TimeSlot.End.Sub(top.TimeSlot.Start),
		Status:        domain.ItineraryStatusDraft,
		Warnings:      warnings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return Outcome{
		Usable:    true,
		Itinerary: itinerary,
		Summary: Summary{
			Name:         top.Name,
			Vibe:         itinerary.Vibe,
			BudgetStatus: "fallback plan",
			ItemCount:    1,
			MainCount:    1,
		},
		Warnings: warnings,
	}
}
