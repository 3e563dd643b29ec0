package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/approval"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/discovery"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/trace"
)

var testDate = time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

type fakeChannel struct {
	name   string
	events []domain.Event
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Search(ctx context.Context, q discovery.Query) discovery.Result {
	return discovery.Result{Events: f.events, Mode: discovery.ModeDemo}
}

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeExecutor) ExecuteAll(ctx context.Context, items []domain.ItineraryItem, partySize int) []domain.BookingResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	results := make([]domain.BookingResult, len(items))
	for i, item := range items {
		results[i] = domain.BookingResult{
			ItemName:  item.Event.Name,
			Status:    domain.BookingStatusSuccess,
			Timestamp: time.Now(),
		}
	}
	return results
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	return &config.Config{
		DiscoveryConfig: config.DiscoveryConfig{Timeout: 5, MaxResults: 20, MaxRetries: 1},
		AIConfig:        config.AIConfig{Timeout: 5},
		PipelineConfig: config.PipelineConfig{
			MaxItineraryItems: 4,
			EndOfDayCutoff:    "23:00",
			MaxSpanHours:      8,
			MaxIdleGap:        45 * time.Minute,
		},
	}
}

func testEvents() []domain.Event {
	slot := func(h, d int) domain.TimeSlot {
		start := time.Date(2026, 9, 12, h, 0, 0, 0, time.UTC)
		return domain.TimeSlot{Start: start, End: start.Add(time.Duration(d) * time.Hour)}
	}
	return []domain.Event{
		{
			Name: "Arena Concert", Category: domain.CategoryConcert, TimeSlot: slot(20, 2),
			Price:        &domain.PriceRange{Min: 50, Max: 50, Currency: "USD"},
			Availability: domain.AvailabilityAvailable, BookingRequired: true,
			SourceURL: "https://tickets.example.com/arena-concert",
		},
		{
			Name: "Arena Concert", Category: domain.CategoryConcert, TimeSlot: slot(20, 2),
			Availability: domain.AvailabilityAvailable,
			SourceURL:    "https://tickets.example.com/arena-concert?ref=dup",
		},
		{
			Name: "Sold Out Gala", Category: domain.CategoryDining, TimeSlot: slot(18, 2),
			Availability: domain.AvailabilitySoldOut,
		},
		{
			Name: "Street Food Market", Category: domain.CategoryDining, TimeSlot: slot(11, 10),
			Price:        &domain.PriceRange{Min: 0, Max: 0},
			Availability: domain.AvailabilityAvailable,
		},
	}
}

const testPlan = `{
	"name": "Concert Evening",
	"vibe": "loud and easy",
	"items": [
		{"name": "Street Food Market", "category": "dining", "start_time": "18:00", "end_time": "19:00", "cost_estimate": 15},
		{"name": "Arena Concert", "category": "concert", "main_event": true, "start_time": "20:00", "end_time": "22:00", "cost_estimate": 50, "booking_required": true}
	]
}`

type testHarness struct {
	orch      *Orchestrator
	approvals *approval.Registry
	bus       *trace.Bus
	executor  *fakeExecutor
}

func newHarness(t *testing.T, events []domain.Event, planText string, planErr error) *testHarness {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	bus := trace.NewBus(log, time.Minute, time.Minute)
	approvals := approval.NewRegistry(log, time.Minute, time.Minute)
	executor := &fakeExecutor{}

	orch := New(
		log, testConfig(),
		[]discovery.Channel{&fakeChannel{name: "primary", events: events}},
		&fakeCompleter{response: planText, err: planErr},
		executor,
		approvals,
		bus,
		nil,
		nil,
	)

	t.Cleanup(func() {
		_ = orch.Shutdown(context.Background())
		_ = approvals.Shutdown(context.Background())
		_ = bus.Shutdown(context.Background())
	})

	return &testHarness{orch: orch, approvals: approvals, bus: bus, executor: executor}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func constraints() domain.UserConstraints {
	return domain.UserConstraints{
		Date:      testDate,
		BudgetMax: 100,
		HasBudget: true,
		PartySize: 2,
	}
}

func TestRunApproved(t *testing.T) {
	h := newHarness(t, testEvents(), testPlan, nil)

	runID := h.orch.StartRun("user-1", constraints())

	waitFor(t, "pending approval", func() bool { return h.approvals.HasPending(runID) })

	state, ok := h.orch.GetRun(runID)
	if !ok {
		t.Fatal("run should exist")
	}
	if state.Status != domain.RunStatusAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", state.Status)
	}
	if state.Itinerary == nil || len(state.Itinerary.Items) != 2 {
		t.Fatalf("expected a 2-item itinerary at the gate, got %+v", state.Itinerary)
	}

	resolved, known := h.orch.ResolveApproval(runID, true)
	if !resolved || !known {
		t.Fatalf("resolve failed: resolved=%v known=%v", resolved, known)
	}

	waitFor(t, "run completion", func() bool {
		s, _ := h.orch.GetRun(runID)
		return s.Status == domain.RunStatusCompleted
	})

	state, _ = h.orch.GetRun(runID)
	if state.Itinerary.Status != domain.ItineraryStatusApproved {
		t.Errorf("itinerary should be approved, got %s", state.Itinerary.Status)
	}
	if len(state.Bookings) != 2 {
		t.Errorf("expected a booking result per item, got %d", len(state.Bookings))
	}
	if h.executor.callCount() != 1 {
		t.Errorf("executor should run exactly once, ran %d times", h.executor.callCount())
	}

	// Stage trail: every pipeline stage should have completed.
	history := h.bus.GetHistory(runID)
	for _, stage := range []string{"intent-resolution", "discovery", "dedup", "rank", "plan", "approval", "execution"} {
		if !hasCompletedStage(history, stage) {
			t.Errorf("missing completed trace for stage %q", stage)
		}
	}
}

func TestRunRejected(t *testing.T) {
	h := newHarness(t, testEvents(), testPlan, nil)

	runID := h.orch.StartRun("user-1", constraints())
	waitFor(t, "pending approval", func() bool { return h.approvals.HasPending(runID) })

	h.orch.ResolveApproval(runID, false)

	waitFor(t, "rejection", func() bool {
		s, _ := h.orch.GetRun(runID)
		return s.Status == domain.RunStatusRejected
	})

	state, _ := h.orch.GetRun(runID)
	if len(state.Bookings) != 0 {
		t.Errorf("rejected run must not book anything, got %d results", len(state.Bookings))
	}
	if h.executor.callCount() != 0 {
		t.Errorf("executor must not run on rejection, ran %d times", h.executor.callCount())
	}
	if state.Itinerary == nil || state.Itinerary.Status != domain.ItineraryStatusRejected {
		t.Errorf("itinerary should be marked rejected, got %+v", state.Itinerary)
	}
}

func TestGetRunReturnsDetachedCopy(t *testing.T) {
	h := newHarness(t, testEvents(), testPlan, nil)

	runID := h.orch.StartRun("user-1", constraints())
	waitFor(t, "pending approval", func() bool { return h.approvals.HasPending(runID) })

	snapshot, ok := h.orch.GetRun(runID)
	if !ok || snapshot.Itinerary == nil {
		t.Fatalf("expected a run with an itinerary at the gate, got ok=%v state=%+v", ok, snapshot)
	}
	if snapshot.Itinerary.Status != domain.ItineraryStatusDraft {
		t.Fatalf("itinerary should still be a draft at the gate, got %s", snapshot.Itinerary.Status)
	}

	h.orch.ResolveApproval(runID, false)
	waitFor(t, "rejection", func() bool {
		s, _ := h.orch.GetRun(runID)
		return s.Status == domain.RunStatusRejected
	})

	// The earlier snapshot must not see the rejection: it holds its own
	// itinerary, not a pointer into the live run state.
	if snapshot.Itinerary.Status != domain.ItineraryStatusDraft {
		t.Errorf("snapshot itinerary mutated after resolution, got %s", snapshot.Itinerary.Status)
	}
	current, _ := h.orch.GetRun(runID)
	if current.Itinerary.Status != domain.ItineraryStatusRejected {
		t.Errorf("fresh read should see the rejection, got %s", current.Itinerary.Status)
	}
}

func TestRunWithoutUsablePlan(t *testing.T) {
	h := newHarness(t, nil, "", fmt.Errorf("model unavailable"))

	runID := h.orch.StartRun("user-1", constraints())

	waitFor(t, "terminal state", func() bool {
		s, _ := h.orch.GetRun(runID)
		return s.Status == domain.RunStatusCompleted
	})

	state, _ := h.orch.GetRun(runID)
	if state.Error == "" {
		t.Error("a run without a plan should explain itself")
	}
	if state.Itinerary != nil {
		t.Errorf("no itinerary expected, got %+v", state.Itinerary)
	}
	if h.approvals.HasPending(runID) {
		t.Error("approval must be skipped without a plan")
	}
	if h.executor.callCount() != 0 {
		t.Errorf("executor must be skipped without a plan, ran %d times", h.executor.callCount())
	}
}

func TestRunDedupAndRankFeedThePlanner(t *testing.T) {
	h := newHarness(t, testEvents(), testPlan, nil)

	runID := h.orch.StartRun("user-1", constraints())
	waitFor(t, "pending approval", func() bool { return h.approvals.HasPending(runID) })

	history := h.bus.GetHistory(runID)

	dedupMeta := stageMetadata(history, "dedup")
	if dedupMeta == nil {
		t.Fatal("missing dedup trace metadata")
	}
	// Two Arena Concert records share a source URL.
	if got := dedupMeta["kept"]; got != 3 {
		t.Errorf("expected 3 events after dedup, got %v", got)
	}

	rankMeta := stageMetadata(history, "rank")
	if rankMeta == nil {
		t.Fatal("missing rank trace metadata")
	}
	// The sold out gala is hard-filtered.
	if got := rankMeta["final"]; got != 2 {
		t.Errorf("expected 2 ranked events, got %v", got)
	}

	h.orch.ResolveApproval(runID, false)
}

func TestUnknownRun(t *testing.T) {
	h := newHarness(t, nil, "", nil)

	if _, ok := h.orch.GetRun("nope"); ok {
		t.Error("unknown run id should not resolve")
	}
	resolved, known := h.orch.ResolveApproval("nope", true)
	if resolved || known {
		t.Errorf("unknown run: resolved=%v known=%v", resolved, known)
	}
}

func hasCompletedStage(history []domain.TraceEvent, stage string) bool {
	for _, event := range history {
		if event.Name == stage && event.Status == domain.TraceStatusCompleted {
			return true
		}
	}
	return false
}

func stageMetadata(history []domain.TraceEvent, stage string) map[string]any {
	for _, event := range history {
		if event.Name == stage && event.Status == domain.TraceStatusCompleted {
			return event.Metadata
		}
	}
	return nil
}
