package trace

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func stageEvent(runID, name string) domain.TraceEvent {
	return domain.TraceEvent{
		RunID:  runID,
		Type:   "stage",
		Name:   name,
		Status: domain.TraceStatusCompleted,
	}
}

func TestBus(t *testing.T) {
	t.Run("history preserves emission order", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)

		names := []string{"discovery", "dedup", "rank", "plan"}
		for _, name := range names {
			bus.Emit(stageEvent("run-1", name))
		}

		history := bus.GetHistory("run-1")
		if len(history) != len(names) {
			t.Fatalf("expected %d events, got %d", len(names), len(history))
		}
		for i, name := range names {
			if history[i].Name != name {
				t.Errorf("event %d: expected %q, got %q", i, name, history[i].Name)
			}
		}
	})

	t.Run("subscribe replays history before live events", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)

		bus.Emit(stageEvent("run-1", "discovery"))
		bus.Emit(stageEvent("run-1", "dedup"))

		var received []string
		unsubscribe := bus.Subscribe("run-1", func(event domain.TraceEvent) {
			received = append(received, event.Name)
		})
		defer unsubscribe()

		bus.Emit(stageEvent("run-1", "rank"))

		want := []string{"discovery", "dedup", "rank"}
		if len(received) != len(want) {
			t.Fatalf("expected %d events, got %d: %v", len(want), len(received), received)
		}
		for i, name := range want {
			if received[i] != name {
				t.Errorf("event %d: expected %q, got %q", i, name, received[i])
			}
		}
	})

	t.Run("live events never interleave with the replay", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)

		sequenced := func(seq int) domain.TraceEvent {
			e := stageEvent("run-1", "stage")
			e.Metadata = map[string]any{"seq": seq}
			return e
		}

		const replayed = 500
		for i := 0; i < replayed; i++ {
			bus.Emit(sequenced(i))
		}

		// Keep emitting while the subscription replays the backlog.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := replayed; i < 2*replayed; i++ {
				bus.Emit(sequenced(i))
			}
		}()

		var mu sync.Mutex
		var got []int
		unsubscribe := bus.Subscribe("run-1", func(event domain.TraceEvent) {
			mu.Lock()
			got = append(got, event.Metadata["seq"].(int))
			mu.Unlock()
		})
		<-done
		unsubscribe()

		mu.Lock()
		defer mu.Unlock()
		if len(got) < replayed {
			t.Fatalf("expected at least the %d replayed events, got %d", replayed, len(got))
		}
		if got[0] != 0 {
			t.Fatalf("replay should start at the first event, got %d", got[0])
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Fatalf("delivery out of order at position %d: %d after %d", i, got[i], got[i-1])
			}
		}
	})

	t.Run("unsubscribed listener receives nothing further", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)

		count := 0
		unsubscribe := bus.Subscribe("run-1", func(event domain.TraceEvent) {
			count++
		})

		bus.Emit(stageEvent("run-1", "discovery"))
		unsubscribe()
		bus.Emit(stageEvent("run-1", "dedup"))

		if count != 1 {
			t.Errorf("expected 1 delivered event, got %d", count)
		}
	})

	t.Run("runs are isolated from each other", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)

		bus.Emit(stageEvent("run-1", "discovery"))
		bus.Emit(stageEvent("run-2", "discovery"))
		bus.Emit(stageEvent("run-2", "dedup"))

		if got := len(bus.GetHistory("run-1")); got != 1 {
			t.Errorf("run-1: expected 1 event, got %d", got)
		}
		if got := len(bus.GetHistory("run-2")); got != 2 {
			t.Errorf("run-2: expected 2 events, got %d", got)
		}
	})

	t.Run("panicking listener does not break delivery", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)

		_ = bus.Subscribe("run-1", func(event domain.TraceEvent) {
			panic("listener gone wrong")
		})
		received := 0
		_ = bus.Subscribe("run-1", func(event domain.TraceEvent) {
			received++
		})

		bus.Emit(stageEvent("run-1", "discovery"))

		if received != 1 {
			t.Errorf("expected healthy listener to receive the event, got %d", received)
		}
	})

	t.Run("sweep deletes runs past the ttl", func(t *testing.T) {
		bus := NewBus(discardLogger(), 10*time.Millisecond, 5*time.Millisecond)

		bus.Emit(stageEvent("run-1", "discovery"))

		deadline := time.After(time.Second)
		for len(bus.GetHistory("run-1")) > 0 {
			select {
			case <-deadline:
				t.Fatal("run history was not swept within a second")
			case <-time.After(5 * time.Millisecond):
			}
		}
	})

	t.Run("shutdown clears state", func(t *testing.T) {
		bus := NewBus(discardLogger(), time.Minute, time.Minute)
		bus.Emit(stageEvent("run-1", "discovery"))

		if err := bus.Shutdown(t.Context()); err != nil {
			t.Fatalf("unexpected shutdown error: %v", err)
		}
		if got := len(bus.GetHistory("run-1")); got != 0 {
			t.Errorf("expected empty history after shutdown, got %d events", got)
		}
	})
}
