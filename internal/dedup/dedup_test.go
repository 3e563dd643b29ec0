package dedup

import (
	"testing"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

func slotAt(hour int, durationHours int) domain.TimeSlot {
	start := time.Date(2026, 9, 12, hour, 0, 0, 0, time.UTC)
	return domain.TimeSlot{Start: start, End: start.Add(time.Duration(durationHours) * time.Hour)}
}

func TestDeduplicate(t *testing.T) {
	t.Run("identical source urls merge, richer record wins", func(t *testing.T) {
		poor := domain.Event{
			Name:      "Jazz Night",
			TimeSlot:  slotAt(20, 2),
			SourceURL: "https://tickets.example.com/jazz-night?utm=feed",
		}
		rich := domain.Event{
			Name:        "Jazz Night at the Blue Room",
			TimeSlot:    slotAt(20, 2),
			SourceURL:   "https://tickets.example.com/jazz-night",
			Price:       &domain.PriceRange{Min: 20, Max: 30, Currency: "USD"},
			Rating:      4.5,
			RatingKnown: true,
			ReviewCount: 120,
		}

		result, stats := Deduplicate([]domain.Event{poor, rich})

		if len(result) != 1 {
			t.Fatalf("expected 1 event after merge, got %d", len(result))
		}
		if result[0].Price == nil {
			t.Error("merge should keep the richer record with price data")
		}
		if stats.Removed != 1 {
			t.Errorf("expected 1 removed, got %d", stats.Removed)
		}
	})

	t.Run("similar names with overlapping times merge", func(t *testing.T) {
		a := domain.Event{Name: "Summer Food Festival 2026", TimeSlot: slotAt(12, 6)}
		b := domain.Event{Name: "Summer Food Festival", TimeSlot: slotAt(14, 3)}

		result, _ := Deduplicate([]domain.Event{a, b})

		if len(result) != 1 {
			t.Fatalf("expected near-identical names with overlap to merge, got %d events", len(result))
		}
	})

	t.Run("similar names without time overlap stay separate", func(t *testing.T) {
		matinee := domain.Event{Name: "Hamlet at the Grand", TimeSlot: slotAt(14, 3)}
		evening := domain.Event{Name: "Hamlet at the Grand", TimeSlot: slotAt(19, 3)}

		result, _ := Deduplicate([]domain.Event{matinee, evening})

		if len(result) != 2 {
			t.Fatalf("two showings of the same play are distinct events, got %d", len(result))
		}
	})

	t.Run("different events pass through untouched", func(t *testing.T) {
		events := []domain.Event{
			{Name: "Jazz Night", TimeSlot: slotAt(20, 2)},
			{Name: "Pottery Workshop", TimeSlot: slotAt(10, 2)},
			{Name: "Street Food Market", TimeSlot: slotAt(11, 8)},
		}

		result, stats := Deduplicate(events)

		if len(result) != 3 {
			t.Fatalf("expected 3 distinct events, got %d", len(result))
		}
		if stats.Original != 3 || stats.Deduplicated != 3 || stats.Removed != 0 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("equal richness keeps the earlier record", func(t *testing.T) {
		first := domain.Event{Name: "Night Market", TimeSlot: slotAt(18, 4), Source: "api"}
		second := domain.Event{Name: "Night Market", TimeSlot: slotAt(18, 4), Source: "scraper"}

		result, _ := Deduplicate([]domain.Event{first, second})

		if len(result) != 1 {
			t.Fatalf("expected merge, got %d events", len(result))
		}
		if result[0].Source != "api" {
			t.Errorf("tie should keep the earlier record, got source %q", result[0].Source)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		result, stats := Deduplicate(nil)
		if len(result) != 0 || stats.Original != 0 {
			t.Errorf("expected empty result, got %d events, stats %+v", len(result), stats)
		}
	})
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "jazz night", "jazz night", 1.0, 1.0},
		{"disjoint", "abc", "xyz", 0.0, 0.0},
		{"empty side", "", "jazz night", 0.0, 0.0},
		{"prefix", "summer food festival", "summer food festival 2026", 0.75, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := similarity(tc.a, tc.b)
			if got < tc.min || got > tc.max {
				t.Errorf("similarity(%q, %q) = %.2f, want within [%.2f, %.2f]", tc.a, tc.b, got, tc.min, tc.max)
			}
		})
	}
}
