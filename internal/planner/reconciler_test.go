package planner

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

var planDate = time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

func rankedEvent(name string, startHour, endHour int, price float64) domain.RankedEvent {
	return domain.RankedEvent{
		Event: domain.Event{
			Name:     name,
			Category: domain.CategoryConcert,
			TimeSlot: domain.TimeSlot{
				Start: time.Date(2026, 9, 12, startHour, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 9, 12, endHour, 0, 0, 0, time.UTC),
			},
			Price:           &domain.PriceRange{Min: price, Max: price, Currency: "USD"},
			Availability:    domain.AvailabilityAvailable,
			BookingRequired: true,
			SourceURL:       "https://tickets.example.com/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		},
		Score: 0.9,
	}
}

type planItem struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	MainEvent       bool    `json:"main_event"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Location        string  `json:"location"`
	CostEstimate    float64 `json:"cost_estimate"`
	BookingRequired bool    `json:"booking_required"`
}

func planJSON(t *testing.T, name string, items []planItem) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"name":  name,
		"vibe":  "an easygoing evening",
		"items": items,
	})
	if err != nil {
		t.Fatalf("cannot marshal test plan: %v", err)
	}
	return string(payload)
}

func TestReconcile(t *testing.T) {
	t.Run("valid plan passes through with matched events", func(t *testing.T) {
		ranked := []domain.RankedEvent{rankedEvent("Arena Concert", 20, 22, 50)}
		plan := planJSON(t, "Concert Evening", []planItem{
			{Name: "Dinner Nearby", Category: "dining", StartTime: "18:00", EndTime: "19:30", CostEstimate: 30},
			{Name: "Arena Concert", Category: "concert", MainEvent: true, StartTime: "20:00", EndTime: "22:00", CostEstimate: 50, BookingRequired: true},
		})

		outcome := Reconcile(plan, ranked, planDate, 100, true, 2, DefaultParams())

		if !outcome.Usable {
			t.Fatalf("expected usable outcome, warnings: %v", outcome.Warnings)
		}
		if len(outcome.Itinerary.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(outcome.Itinerary.Items))
		}
		main := outcome.Itinerary.Items[1]
		if !main.IsMainEvent || main.Status != domain.ItemStatusPlanned {
			t.Errorf("main event should be matched and planned, got %+v", main)
		}
		if main.Event.SourceURL == "" {
			t.Error("matched item should carry the discovered source url")
		}
		if outcome.Itinerary.TotalCost != 160 {
			t.Errorf("total cost for party of 2 should be 160, got %.2f", outcome.Itinerary.TotalCost)
		}
	})

	t.Run("hallucinated main event time is corrected with warning", func(t *testing.T) {
		ranked := []domain.RankedEvent{rankedEvent("Arena Concert", 20, 22, 50)}
		plan := planJSON(t, "Night Out", []planItem{
			{Name: "Arena Concert", Category: "concert", MainEvent: true, StartTime: "19:00", EndTime: "21:00", CostEstimate: 50},
		})

		outcome := Reconcile(plan, ranked, planDate, 0, false, 1, DefaultParams())

		item := outcome.Itinerary.Items[0]
		if item.Status != domain.ItemStatusCorrected {
			t.Errorf("expected corrected status, got %s", item.Status)
		}
		if item.Scheduled.Start.Hour() != 20 {
			t.Errorf("start should be corrected to 20:00, got %s", item.Scheduled.Start.Format("15:04"))
		}
		if !hasWarningContaining(outcome.Warnings, "corrected time") {
			t.Errorf("expected a corrected-time warning, got %v", outcome.Warnings)
		}
	})

	t.Run("oversized plan is trimmed keeping main events", func(t *testing.T) {
		ranked := []domain.RankedEvent{
			rankedEvent("Arena Concert", 20, 22, 50),
			rankedEvent("Late Comedy Show", 22, 23, 25),
		}
		items := []planItem{
			{Name: "Coffee Stop", Category: "dining", StartTime: "10:00", EndTime: "10:30"},
			{Name: "Gallery Walk", Category: "cultural", StartTime: "11:00", EndTime: "12:30"},
			{Name: "Lunch", Category: "dining", StartTime: "13:00", EndTime: "14:00"},
			{Name: "Arena Concert", Category: "concert", MainEvent: true, StartTime: "20:00", EndTime: "22:00"},
			{Name: "Park Stroll", Category: "outdoor", StartTime: "15:00", EndTime: "16:00"},
			{Name: "Late Comedy Show", Category: "nightlife", MainEvent: true, StartTime: "22:00", EndTime: "23:00"},
		}
		plan := planJSON(t, "Full Day", items)

		outcome := Reconcile(plan, ranked, planDate, 0, false, 1, DefaultParams())

		if len(outcome.Itinerary.Items) != 4 {
			t.Fatalf("expected trim to 4 items, got %d", len(outcome.Itinerary.Items))
		}
		mains := 0
		for _, item := range outcome.Itinerary.Items {
			if item.IsMainEvent {
				mains++
			}
		}
		if mains != 2 {
			t.Errorf("both main events must survive the trim, got %d", mains)
		}
		if !hasWarningContaining(outcome.Warnings, "trimmed") {
			t.Errorf("expected a trim warning, got %v", outcome.Warnings)
		}
	})

	t.Run("late non-main items are dropped, late mains kept", func(t *testing.T) {
		ranked := []domain.RankedEvent{rankedEvent("Midnight Gig", 22, 24, 40)}
		plan := planJSON(t, "Late One", []planItem{
			{Name: "Midnight Gig", Category: "concert", MainEvent: true, StartTime: "22:00", EndTime: "23:59"},
			{Name: "After Party", Category: "nightlife", StartTime: "23:30", EndTime: "23:59"},
		})

		outcome := Reconcile(plan, ranked, planDate, 0, false, 1, DefaultParams())

		if len(outcome.Itinerary.Items) != 1 {
			t.Fatalf("after party past the cutoff should be dropped, got %d items", len(outcome.Itinerary.Items))
		}
		if !outcome.Itinerary.Items[0].IsMainEvent {
			t.Error("the surviving item should be the main event")
		}
		if !hasWarningContaining(outcome.Warnings, "dropped") {
			t.Errorf("expected a drop warning, got %v", outcome.Warnings)
		}
	})

	t.Run("overlapping items warn but survive", func(t *testing.T) {
		ranked := []domain.RankedEvent{rankedEvent("Arena Concert", 20, 22, 50)}
		plan := planJSON(t, "Tight Night", []planItem{
			{Name: "Long Dinner", Category: "dining", StartTime: "19:00", EndTime: "20:30"},
			{Name: "Arena Concert", Category: "concert", MainEvent: true, StartTime: "20:00", EndTime: "22:00"},
		})

		outcome := Reconcile(plan, ranked, planDate, 0, false, 1, DefaultParams())

		if len(outcome.Itinerary.Items) != 2 {
			t.Fatalf("overlaps are warnings, not drops: got %d items", len(outcome.Itinerary.Items))
		}
		if !hasWarningContaining(outcome.Warnings, "overlaps") {
			t.Errorf("expected an overlap warning, got %v", outcome.Warnings)
		}
	})

	t.Run("budget overrun warns", func(t *testing.T) {
		ranked := []domain.RankedEvent{rankedEvent("Arena Concert", 20, 22, 90)}
		plan := planJSON(t, "Pricey", []planItem{
			{Name: "Arena Concert", Category: "concert", MainEvent: true, StartTime: "20:00", EndTime: "22:00", CostEstimate: 90},
			{Name: "Fancy Dinner", Category: "dining", StartTime: "17:30", EndTime: "19:00", CostEstimate: 60},
		})

		outcome := Reconcile(plan, ranked, planDate, 100, true, 1, DefaultParams())

		if outcome.Summary.BudgetStatus != "over budget" {
			t.Errorf("150 against 100 is a real overrun, got %q", outcome.Summary.BudgetStatus)
		}
		if !hasWarningContaining(outcome.Warnings, "budget overrun") {
			t.Errorf("expected a budget warning, got %v", outcome.Warnings)
		}
	})

	t.Run("unparseable plan falls back to top-ranked event", func(t *testing.T) {
		ranked := []domain.RankedEvent{rankedEvent("Arena Concert", 20, 22, 50)}

		outcome := Reconcile("the model rambled instead of emitting JSON", ranked, planDate, 0, false, 2, DefaultParams())

		if !outcome.Usable {
			t.Fatal("a fallback from ranked events is still usable")
		}
		if len(outcome.Itinerary.Items) != 1 || outcome.Itinerary.Items[0].Event.Name != "Arena Concert" {
			t.Errorf("fallback should hold the top-ranked event, got %+v", outcome.Itinerary.Items)
		}
		if outcome.Itinerary.TotalCost != 100 {
			t.Errorf("fallback cost for party of 2 should be 100, got %.2f", outcome.Itinerary.TotalCost)
		}
	})

	t.Run("nothing ranked and nothing parseable is unusable", func(t *testing.T) {
		outcome := Reconcile("not json", nil, planDate, 0, false, 1, DefaultParams())

		if outcome.Usable {
			t.Error("no events and no plan cannot be usable")
		}
	})
}

func TestMatchEvent(t *testing.T) {
	ranked := []domain.RankedEvent{
		rankedEvent("Jazz Night at the Blue Room", 20, 22, 30),
		rankedEvent("Street Food Market", 11, 19, 0),
	}

	cases := []struct {
		name  string
		query string
		want  string
		found bool
	}{
		{"exact", "Jazz Night at the Blue Room", "Jazz Night at the Blue Room", true},
		{"case and punctuation", "jazz night at the blue room!", "Jazz Night at the Blue Room", true},
		{"substring", "Jazz Night", "Jazz Night at the Blue Room", true},
		{"word overlap", "Blue Room Jazz Evening", "Jazz Night at the Blue Room", true},
		{"unrelated", "Pottery Workshop", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := matchEvent(tc.query, ranked)
			if ok != tc.found {
				t.Fatalf("matchEvent(%q) found=%v, want %v", tc.query, ok, tc.found)
			}
			if ok && got.Name != tc.want {
				t.Errorf("matchEvent(%q) = %q, want %q", tc.query, got.Name, tc.want)
			}
		})
	}
}

func hasWarningContaining(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
