package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"

	"github.com/google/uuid"
)

// Listener receives trace events for one run.
type Listener func(event domain.TraceEvent)

type runEntry struct {
	history   []domain.TraceEvent
	listeners map[int64]Listener
	firstSeen time.Time
}

// Bus is an in-memory pub/sub with a replay buffer, keyed by run id.
// Within one run id delivery order equals emission order; across runs there is
// no ordering guarantee. A periodic sweep deletes runs whose first event is
// older than the TTL so abandoned runs do not grow memory without bound.
type Bus struct {
	logger     *slog.Logger
	ttl        time.Duration
	sweepEvery time.Duration

	mu         sync.Mutex
	runs       map[string]*runEntry
	nextListID int64

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewBus creates a trace bus and starts its sweep loop.
func NewBus(logger *slog.Logger, ttl, sweepEvery time.Duration) *Bus {
	op := "trace.NewBus()"
	log := logger.With(slog.String("op", op))
	log.Info("creating trace bus", slog.Duration("ttl", ttl))

	b := &Bus{
		logger:       logger,
		ttl:          ttl,
		sweepEvery:   sweepEvery,
		runs:         make(map[string]*runEntry),
		shutdownChan: make(chan struct{}),
	}

	go b.sweepLoop()

	return b
}

// Emit appends the event to its run's history and synchronously notifies all
// current subscribers for that run. A panicking listener is logged and never
// propagated.
func (b *Bus) Emit(event domain.TraceEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	entry, ok := b.runs[event.RunID]
	if !ok {
		entry = &runEntry{
			listeners: make(map[int64]Listener),
			firstSeen: time.Now(),
		}
		b.runs[event.RunID] = entry
	}
	entry.history = append(entry.history, event)
	listeners := make([]Listener, 0, len(entry.listeners))
	for _, l := range entry.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		b.deliver(l, event)
	}
}

// Subscribe first replays every event already emitted for the run to the new
// listener, then delivers live events until the returned unsubscribe function
// is called. The replay runs under the bus lock: an Emit either lands in the
// history before the replay snapshot or notifies the listener after
// registration, never both, so delivery order stays emission order.
func (b *Bus) Subscribe(runID string, listener Listener) (unsubscribe func()) {
	b.mu.Lock()
	entry, ok := b.runs[runID]
	if !ok {
		entry = &runEntry{
			listeners: make(map[int64]Listener),
			firstSeen: time.Now(),
		}
		b.runs[runID] = entry
	}
	for _, event := range entry.history {
		b.deliver(listener, event)
	}
	id := b.nextListID
	b.nextListID++
	entry.listeners[id] = listener
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if entry, ok := b.runs[runID]; ok {
			delete(entry.listeners, id)
		}
	}
}

// GetHistory returns a copy of the run's emitted events in emission order.
func (b *Bus) GetHistory(runID string) []domain.TraceEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.runs[runID]
	if !ok {
		return nil
	}
	history := make([]domain.TraceEvent, len(entry.history))
	copy(history, entry.history)
	return history
}

func (b *Bus) deliver(listener Listener, event domain.TraceEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("trace listener panicked",
				slog.String("op", "trace.Bus.deliver()"),
				slog.String("runID", event.RunID),
				slog.Any("panic", r),
			)
		}
	}()
	listener(event)
}

func (b *Bus) sweepLoop() {
	op := "trace.Bus.sweepLoop()"
	log := b.logger.With(slog.String("op", op))

	ticker := time.NewTicker(b.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-b.shutdownChan:
			return
		case <-ticker.C:
			b.sweep(log)
		}
	}
}

func (b *Bus) sweep(log *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for runID, entry := range b.runs {
		if now.Sub(entry.firstSeen) > b.ttl {
			delete(b.runs, runID)
			log.Debug("swept expired run history", slog.String("runID", runID))
		}
	}
}

// Shutdown stops the sweep loop and clears all state.
func (b *Bus) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit trace bus: %w", ctx.Err())
	default:
		b.shutdownOnce.Do(func() {
			close(b.shutdownChan)
		})

		b.mu.Lock()
		b.runs = make(map[string]*runEntry)
		b.mu.Unlock()

		return nil
	}
}
