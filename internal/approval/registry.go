package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type pending struct {
	decision  chan bool
	createdAt time.Time
}

// Registry maps a run id to one not-yet-resolved approval decision. It is the
// pipeline's suspend point: WaitForApproval parks the calling goroutine on a
// channel until ResolveApproval is called or the TTL sweep rejects the entry.
type Registry struct {
	logger     *slog.Logger
	ttl        time.Duration
	sweepEvery time.Duration

	mu      sync.Mutex
	entries map[string]*pending

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewRegistry creates an approval registry and starts its sweep loop.
func NewRegistry(logger *slog.Logger, ttl, sweepEvery time.Duration) *Registry {
	op := "approval.NewRegistry()"
	log := logger.With(slog.String("op", op))
	log.Info("creating approval registry", slog.Duration("ttl", ttl))

	r := &Registry{
		logger:       logger,
		ttl:          ttl,
		sweepEvery:   sweepEvery,
		entries:      make(map[string]*pending),
		shutdownChan: make(chan struct{}),
	}

	go r.sweepLoop()

	return r
}

// WaitForApproval registers a pending decision for the run and returns a
// receive-only channel carrying exactly one boolean. It never resolves
// synchronously. Registering a second wait for the same run id replaces the
// old entry and rejects it.
func (r *Registry) WaitForApproval(runID string) <-chan bool {
	r.mu.Lock()
	if old, ok := r.entries[runID]; ok {
		old.decision <- false
		close(old.decision)
	}
	entry := &pending{
		decision:  make(chan bool, 1),
		createdAt: time.Now(),
	}
	r.entries[runID] = entry
	r.mu.Unlock()

	return entry.decision
}

// ResolveApproval resolves the pending decision for the run if one exists and
// removes the entry. Returns false when nothing was pending: the caller can
// distinguish "already resolved" from "never existed" via HasPending before
// resolving.
func (r *Registry) ResolveApproval(runID string, approved bool) bool {
	r.mu.Lock()
	entry, ok := r.entries[runID]
	if ok {
		delete(r.entries, runID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	entry.decision <- approved
	close(entry.decision)

	r.logger.Info("approval resolved",
		slog.String("op", "approval.Registry.ResolveApproval()"),
		slog.String("runID", runID),
		slog.Bool("approved", approved),
	)

	return true
}

// HasPending reports whether a decision is still pending for the run.
func (r *Registry) HasPending(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[runID]
	return ok
}

func (r *Registry) sweepLoop() {
	op := "approval.Registry.sweepLoop()"
	log := r.logger.With(slog.String("op", op))

	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.shutdownChan:
			return
		case <-ticker.C:
			r.sweep(log)
		}
	}
}

// sweep auto-rejects entries older than the TTL. Downstream a timeout is
// indistinguishable from an explicit rejection.
func (r *Registry) sweep(log *slog.Logger) {
	r.mu.Lock()
	now := time.Now()
	var expired []*pending
	for runID, entry := range r.entries {
		if now.Sub(entry.createdAt) > r.ttl {
			delete(r.entries, runID)
			expired = append(expired, entry)
			log.Warn("approval timed out, auto-rejecting", slog.String("runID", runID))
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		entry.decision <- false
		close(entry.decision)
	}
}

// Shutdown stops the sweep loop and rejects every pending decision so no
// caller stays parked forever.
func (r *Registry) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit approval registry: %w", ctx.Err())
	default:
		r.shutdownOnce.Do(func() {
			close(r.shutdownChan)
		})

		r.mu.Lock()
		entries := r.entries
		r.entries = make(map[string]*pending)
		r.mu.Unlock()

		for _, entry := range entries {
			entry.decision <- false
			close(entry.decision)
		}

		return nil
	}
}
