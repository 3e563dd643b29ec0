package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/dedup"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/discovery"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/dto"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/planner"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/ranker"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// Completer is the generative text boundary consumed by the planning stage.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BookingExecutor runs booking attempts for approved itinerary items.
type BookingExecutor interface {
	ExecuteAll(ctx context.Context, items []domain.ItineraryItem, partySize int) []domain.BookingResult
}

// Approvals is the suspend/resume gate consumed by the approval stage.
type Approvals interface {
	WaitForApproval(runID string) <-chan bool
	ResolveApproval(runID string, approved bool) bool
	HasPending(runID string) bool
}

// TraceBus receives stage boundary events.
type TraceBus interface {
	Emit(event domain.TraceEvent)
}

// Persister stores an approved itinerary. Called at most once per run,
// best-effort.
type Persister interface {
	PersistItinerary(ctx context.Context, userID string, itinerary domain.Itinerary) (uuid.UUID, int, error)
}

// ApprovalNotifier pushes a pending plan to an external approval surface.
// Optional; failures are logged and never block the pipeline.
type ApprovalNotifier interface {
	NotifyApprovalRequested(runID string, itinerary domain.Itinerary, summary planner.Summary) error
}

// RunState is the externally visible state of one run. The orchestrator
// always drives a run to a terminal status; an observer never sees it stuck.
type RunState struct {
	RunID       string
	UserID      string
	Status      domain.RunStatus
	Constraints domain.UserConstraints
	Itinerary   *domain.Itinerary
	Summary     planner.Summary
	Warnings    []string
	Bookings    []domain.BookingResult
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Orchestrator sequences the pipeline: intent → parallel discovery →
// dedup → rank → plan+reconcile → approval gate → booking execution. It is
// the only component with cross-stage knowledge.
type Orchestrator struct {
	logger    *slog.Logger
	cfg       *config.Config
	channels  []discovery.Channel
	completer Completer
	executor  BookingExecutor
	approvals Approvals
	bus       TraceBus
	persister Persister
	notifier  ApprovalNotifier

	mu   sync.Mutex
	runs map[string]*RunState

	runCtx       context.Context
	cancelRuns   context.CancelFunc
	shutdownOnce sync.Once
}

func New(
	logger *slog.Logger,
	cfg *config.Config,
	channels []discovery.Channel,
	completer Completer,
	executor BookingExecutor,
	approvals Approvals,
	bus TraceBus,
	persister Persister,
	notifier ApprovalNotifier,
) *Orchestrator {
	op := "orchestrator.New()"
	logger.With(slog.String("op", op)).Info("creating orchestrator", slog.Int("channels", len(channels)))

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		logger:     logger,
		cfg:        cfg,
		channels:   channels,
		completer:  completer,
		executor:   executor,
		approvals:  approvals,
		bus:        bus,
		persister:  persister,
		notifier:   notifier,
		runs:       make(map[string]*RunState),
		runCtx:     ctx,
		cancelRuns: cancel,
	}
}

// SetNotifier attaches the approval surface after construction. The notifier
// and the orchestrator reference each other, so one of them has to be wired
// late. Call before the first StartRun.
func (o *Orchestrator) SetNotifier(notifier ApprovalNotifier) {
	o.notifier = notifier
}

// StartRun begins one pipeline run for the user and returns its run id.
// Runs proceed concurrently with each other and share no mutable state
// beyond the trace bus and approval registry.
func (o *Orchestrator) StartRun(userID string, constraints domain.UserConstraints) string {
	runID := uuid.New().String()
	now := time.Now()

	state := &RunState{
		RunID:       runID,
		UserID:      userID,
		Status:      domain.RunStatusRunning,
		Constraints: constraints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	o.mu.Lock()
	o.runs[runID] = state
	o.mu.Unlock()

	go o.run(runID)

	return runID
}

// GetRun returns a detached copy of the run state. The itinerary is copied
// too: the run goroutine keeps mutating its status through updateRun, and a
// caller reads its snapshot without holding o.mu.
func (o *Orchestrator) GetRun(runID string) (RunState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.runs[runID]
	if !ok {
		return RunState{}, false
	}
	copied := *state
	if state.Itinerary != nil {
		itinerary := *state.Itinerary
		itinerary.Items = append([]domain.ItineraryItem(nil), state.Itinerary.Items...)
		copied.Itinerary = &itinerary
	}
	return copied, true
}

// ResolveApproval forwards an external decision to the gate. The second
// return value reports whether the run exists at all, so a caller can tell
// "already resolved" from "unknown run".
func (o *Orchestrator) ResolveApproval(runID string, approved bool) (resolved, known bool) {
	o.mu.Lock()
	_, known = o.runs[runID]
	o.mu.Unlock()
	return o.approvals.ResolveApproval(runID, approved), known
}

func (o *Orchestrator) updateRun(runID string, fn func(*RunState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok := o.runs[runID]; ok {
		fn(state)
		state.UpdatedAt = time.Now()
	}
}

// run drives one pipeline run to a terminal state. Whatever happens inside
// a stage, run bookkeeping is finalized and the failure surfaces as an
// error trace event rather than a crash.
func (o *Orchestrator) run(runID string) {
	op := "orchestrator.run()"
	log := o.logger.With(slog.String("op", op), slog.String("runID", runID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", slog.Any("panic", r))
			o.emit(runID, "pipeline", domain.TraceStatusError, 0, nil, fmt.Errorf("panic: %v", r))
			o.updateRun(runID, func(s *RunState) {
				s.Status = domain.RunStatusFailed
				s.Error = fmt.Sprintf("panic: %v", r)
			})
		}
	}()

	state, _ := o.GetRun(runID)
	ctx := o.runCtx

	// Stage: intent resolution.
	started := time.Now()
	o.emit(runID, "intent-resolution", domain.TraceStatusStarted, 0, nil, nil)
	query := discovery.Query{
		Date:       state.Constraints.Date,
		Categories: state.Constraints.PreferredCategories,
		BudgetMax:  state.Constraints.BudgetMax,
		AreaHints:  state.Constraints.AreaHints,
		MaxResults: o.cfg.DiscoveryConfig.MaxResults,
	}
	o.emit(runID, "intent-resolution", domain.TraceStatusCompleted, time.Since(started), map[string]any{
		"date":       query.Date.Format("2006-01-02"),
		"party_size": state.Constraints.PartySize,
		"has_budget": state.Constraints.HasBudget,
	}, nil)

	// Stage: parallel discovery, all-settled. A failed channel contributes
	// an empty set plus its recorded reasoning, never an abort.
	started = time.Now()
	o.emit(runID, "discovery", domain.TraceStatusStarted, 0, map[string]any{"channels": len(o.channels)}, nil)
	events := o.discoverAll(ctx, runID, query)
	o.emit(runID, "discovery", domain.TraceStatusCompleted, time.Since(started), map[string]any{"events": len(events)}, nil)

	// Stage: merge + dedup.
	started = time.Now()
	o.emit(runID, "dedup", domain.TraceStatusStarted, 0, nil, nil)
	deduped, dstats := dedup.Deduplicate(events)
	o.emit(runID, "dedup", domain.TraceStatusCompleted, time.Since(started), map[string]any{
		"original": dstats.Original,
		"kept":     dstats.Deduplicated,
		"removed":  dstats.Removed,
	}, nil)

	// Stage: rank.
	started = time.Now()
	o.emit(runID, "rank", domain.TraceStatusStarted, 0, nil, nil)
	ranked, rstats := ranker.Rank(deduped, state.Constraints)
	o.emit(runID, "rank", domain.TraceStatusCompleted, time.Since(started), map[string]any{
		"input":       rstats.Input,
		"passed_hard": rstats.PassedHard,
		"final":       rstats.Final,
	}, nil)

	// Stage: plan generation + reconciliation.
	started = time.Now()
	o.emit(runID, "plan", domain.TraceStatusStarted, 0, nil, nil)
	outcome := o.plan(ctx, log, state.Constraints, ranked)
	if !outcome.Usable {
		// Nothing to approve: approval and execution are skipped entirely.
		o.emit(runID, "plan", domain.TraceStatusError, time.Since(started), map[string]any{
			"warnings": outcome.Warnings,
		}, fmt.Errorf("no usable plan"))
		o.updateRun(runID, func(s *RunState) {
			s.Status = domain.RunStatusCompleted
			s.Warnings = outcome.Warnings
			s.Error = "no usable plan could be produced"
		})
		return
	}
	itinerary := outcome.Itinerary
	o.emit(runID, "plan", domain.TraceStatusCompleted, time.Since(started), map[string]any{
		"items":     outcome.Summary.ItemCount,
		"main":      outcome.Summary.MainCount,
		"generated": outcome.Summary.GeneratedCount,
		"budget":    outcome.Summary.BudgetStatus,
		"warnings":  len(outcome.Warnings),
	}, nil)

	o.updateRun(runID, func(s *RunState) {
		s.Itinerary = &itinerary
		s.Summary = outcome.Summary
		s.Warnings = outcome.Warnings
		s.Status = domain.RunStatusAwaitingApproval
	})

	// Stage: approval gate. This is the suspend point: the goroutine parks
	// on the decision channel until an external actor or the TTL resolves.
	started = time.Now()
	o.emit(runID, "approval", domain.TraceStatusStarted, 0, map[string]any{
		"items":    outcome.Summary.ItemCount,
		"warnings": len(outcome.Warnings),
	}, nil)

	decisionChan := o.approvals.WaitForApproval(runID)

	if o.notifier != nil {
		go func() {
			if err := o.notifier.NotifyApprovalRequested(runID, itinerary, outcome.Summary); err != nil {
				log.Warn("approval notification failed", sl.Err(err))
			}
		}()
	}

	var approved bool
	select {
	case approved = <-decisionChan:
	case <-o.runCtx.Done():
		approved = false
	}

	o.emit(runID, "approval", domain.TraceStatusCompleted, time.Since(started), map[string]any{"approved": approved}, nil)

	if !approved {
		o.updateRun(runID, func(s *RunState) {
			s.Status = domain.RunStatusRejected
			if s.Itinerary != nil {
				s.Itinerary.Status = domain.ItineraryStatusRejected
			}
		})
		log.Info("run rejected, no bookings executed")
		return
	}

	itinerary.Status = domain.ItineraryStatusApproved
	o.updateRun(runID, func(s *RunState) {
		if s.Itinerary != nil {
			s.Itinerary.Status = domain.ItineraryStatusApproved
		}
	})

	// Best-effort side write: persistence never blocks or fails the run.
	if o.persister != nil {
		go func() {
			persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, _, err := o.persister.PersistItinerary(persistCtx, state.UserID, itinerary); err != nil {
				log.Warn("itinerary persistence failed", sl.Err(err))
			}
		}()
	}

	// Stage: booking execution, strictly sequential across items.
	started = time.Now()
	o.emit(runID, "execution", domain.TraceStatusStarted, 0, map[string]any{"items": len(itinerary.Items)}, nil)
	results := o.executor.ExecuteAll(ctx, itinerary.Items, state.Constraints.PartySize)
	summary := bookingSummary(results)
	o.emit(runID, "execution", domain.TraceStatusCompleted, time.Since(started), summary, nil)

	o.updateRun(runID, func(s *RunState) {
		s.Bookings = results
		s.Status = domain.RunStatusCompleted
	})

	log.Info("run completed", slog.Int("bookings", len(results)))
}

// discoverAll fans out to every channel concurrently and waits for all of
// them. Channel order in the combined slice follows channel registration
// order so results stay deterministic.
func (o *Orchestrator) discoverAll(ctx context.Context, runID string, query discovery.Query) []domain.Event {
	results := make([]discovery.Result, len(o.channels))

	var wg sync.WaitGroup
	for i, ch := range o.channels {
		wg.Add(1)
		go func(i int, ch discovery.Channel) {
			defer wg.Done()
			searchCtx, cancel := context.WithTimeout(ctx, o.cfg.DiscoveryConfig.GetTimeout())
			defer cancel()
			results[i] = ch.Search(searchCtx, query)
		}(i, ch)
	}
	wg.Wait()

	var events []domain.Event
	for i, res := range results {
		meta := map[string]any{
			"channel":  o.channels[i].Name(),
			"mode":     string(res.Mode),
			"events":   len(res.Events),
			"duration": res.Duration.String(),
		}
		if res.Reasoning != "" {
			meta["reasoning"] = res.Reasoning
		}
		o.emit(runID, "discovery-channel", domain.TraceStatusCompleted, res.Duration, meta, nil)
		events = append(events, res.Events...)
	}
	return events
}

// plan asks the model for a draft and reconciles it against ground truth. A
// completion failure degrades to reconciliation of empty text, which yields
// the minimal fallback itinerary.
func (o *Orchestrator) plan(ctx context.Context, log *slog.Logger, constraints domain.UserConstraints, ranked []domain.RankedEvent) planner.Outcome {
	planCtx, cancel := context.WithTimeout(ctx, o.cfg.AIConfig.GetTimeout())
	defer cancel()

	planText, err := o.completer.Complete(planCtx, planner.BuildPrompt(constraints, ranked))
	if err != nil {
		log.Warn("plan completion failed, reconciling empty plan", sl.Err(err))
		planText = ""
	}

	params := planner.DefaultParams()
	params.MaxItems = o.cfg.PipelineConfig.MaxItineraryItems
	if cutoff, err := dto.ParseClock(o.cfg.PipelineConfig.EndOfDayCutoff); err == nil {
		params.Cutoff = cutoff
	}
	params.MaxSpan = time.Duration(o.cfg.PipelineConfig.MaxSpanHours * float64(time.Hour))
	params.MaxIdleGap = o.cfg.PipelineConfig.MaxIdleGap

	return planner.Reconcile(
		planText,
		ranked,
		constraints.Date,
		constraints.BudgetMax,
		constraints.HasBudget,
		constraints.PartySize,
		params,
	)
}

func (o *Orchestrator) emit(runID, stage string, status domain.TraceStatus, duration time.Duration, metadata map[string]any, err error) {
	event := domain.TraceEvent{
		ID:        uuid.New(),
		RunID:     runID,
		Type:      "stage",
		Name:      stage,
		Status:    status,
		Timestamp: time.Now(),
		Duration:  duration,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	o.bus.Emit(event)
}

func bookingSummary(results []domain.BookingResult) map[string]any {
	counts := make(map[string]int)
	for _, r := range results {
		counts[string(r.Status)]++
	}
	return map[string]any{"total": len(results), "by_status": counts}
}

// Shutdown cancels in-flight runs. Parked approval waits unblock as
// rejections via the cancelled context.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit orchestrator: %w", ctx.Err())
	default:
		o.shutdownOnce.Do(o.cancelRuns)
		return nil
	}
}
