package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/chan4lk/autogen-workflows/artifact"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/memory"
	"github.com/chan4lk/autogen-workflows/session"
)

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// MaxConcurrentRuns limits concurrently active runs. Run returns an
	// error once the limit is reached.
	MaxConcurrentRuns int
	// EnableStreaming delivers partial events to callers. When disabled,
	// only complete events reach the caller's channel.
	EnableStreaming bool
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls bounds model calls per run. Zero means unlimited.
	MaxModelCalls int
	// SessionStore persists session state and event history.
	SessionStore core.SessionStore
	// ArtifactStore persists produced documents.
	ArtifactStore core.ArtifactStore
	// MemoryStore persists cross-run memory.
	MemoryStore core.MemoryStore
	// Callbacks receives lifecycle hooks. Optional.
	Callbacks *CallbackManager
	// Logger receives structured runner logs.
	Logger logging.Logger
}

// Runner coordinates agent execution: it resolves the root agent, creates
// run contexts, streams events, applies side effects, and persists history.
// Public methods are safe for concurrent use.
type Runner struct {
	agent core.Agent

	maxConcurrentRuns int
	enableStreaming   bool
	eventBufferSize   int
	maxModelCalls     int

	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	memoryStore   core.MemoryStore
	callbacks     *CallbackManager
	logger        logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner around the given root agent with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		EnableStreaming:   true,
		EventBufferSize:   100,
		MaxModelCalls:     100,
		SessionStore:      session.NewInMemoryStore(),
		ArtifactStore:     artifact.NewInMemoryStore(),
		MemoryStore:       memory.NewInMemoryStore(),
		Callbacks:         NewCallbackManager(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		agent:             agent,
		maxConcurrentRuns: opts.MaxConcurrentRuns,
		enableStreaming:   opts.EnableStreaming,
		eventBufferSize:   opts.EventBufferSize,
		maxModelCalls:     opts.MaxModelCalls,
		sessionStore:      opts.SessionStore,
		artifactStore:     opts.ArtifactStore,
		memoryStore:       opts.MemoryStore,
		callbacks:         opts.Callbacks,
		logger:            opts.Logger,
		activeRuns:        make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous run bound to sessionID. The session is created
// lazily by the store if it does not exist. The user content is appended to
// history before the agent starts so every agent sees its own input.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	runID := core.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.maxConcurrentRuns > 0 && len(r.activeRuns) >= r.maxConcurrentRuns {
		r.mu.Unlock()
		cancel()
		return "", nil, nil, fmt.Errorf("concurrent run limit of %d reached", r.maxConcurrentRuns)
	}
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	agentInfo := core.AgentInfo{Name: r.agent.Name(), Type: fmt.Sprintf("%T", r.agent)}

	runCtx := core.NewRunContext(
		ctx,
		sessionID,
		runID,
		agentInfo,
		userContent,
		r.maxModelCalls,
		agentEmit,
		resumeCh,
		sess,
		r.sessionStore,
		r.artifactStore,
		r.memoryStore,
		r.logger,
	)

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		r.finishRun(runID)
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	go func() {
		defer func() {
			close(agentEmit)
			r.finishRun(runID)
		}()

		if err := r.runAgent(runCtx); err != nil {
			select {
			case <-runCtx.Done():
				return
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()

		r.processEvents(runCtx, sessionID, agentEmit, resumeCh, eventsCh, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// Cancel aborts a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// ActiveRuns reports the number of currently executing runs.
func (r *Runner) ActiveRuns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

func (r *Runner) finishRun(runID string) {
	r.mu.Lock()
	cancel, ok := r.activeRuns[runID]
	delete(r.activeRuns, runID)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *Runner) runAgent(runCtx *core.RunContext) error {
	callbackCtx := &CallbackContext{RunContext: runCtx}

	if err := r.callbacks.execute(runCtx.Context, CallbackBeforeRun, callbackCtx); err != nil {
		return fmt.Errorf("before-run callback rejected run: %w", err)
	}

	if err := r.agent.Start(runCtx); err != nil {
		return err
	}

	defer func() {
		if err := r.agent.Stop(runCtx); err != nil {
			r.logger.Warn("runner.agent.stop.failed", "agent", r.agent.Name(), "error", err.Error())
		}
	}()

	runErr := r.agent.Run(runCtx)

	if runErr != nil {
		errCtx := &CallbackContext{RunContext: runCtx, Err: runErr}
		if cbErr := r.callbacks.execute(runCtx.Context, CallbackOnError, errCtx); cbErr != nil {
			r.logger.Warn("runner.callback.on_error.failed", "error", cbErr.Error())
		}
	}

	if err := r.callbacks.execute(runCtx.Context, CallbackAfterRun, &CallbackContext{RunContext: runCtx, Err: runErr}); err != nil {
		r.logger.Warn("runner.callback.after_run.failed", "error", err.Error())
	}

	return runErr
}

// processEvents is the persistence and delivery pipeline. For each emitted
// event it applies side effects, appends complete events to history, invokes
// hooks, forwards the event to the caller, then signals the resume channel so
// the emitting agent can continue.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sessionID string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	fail := func(err error) {
		select {
		case <-runCtx.Done():
		case errorsCh <- err:
		}
	}

	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-agentEmit:
			if !ok {
				return
			}

			if err := r.applyEventActions(runCtx, sessionID, ev); err != nil {
				fail(fmt.Errorf("failed to process event actions: %w", err))
				return
			}

			if !ev.IsPartial() {
				if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
					fail(fmt.Errorf("failed to append event to session: %w", err))
					return
				}

				callbackCtx := &CallbackContext{RunContext: runCtx, Event: &ev}
				if err := r.callbacks.execute(runCtx.Context, CallbackOnEvent, callbackCtx); err != nil {
					fail(fmt.Errorf("event callback failed: %w", err))
					return
				}
			}

			if r.enableStreaming || !ev.IsPartial() {
				select {
				case <-runCtx.Done():
					return
				case eventsCh <- ev:
					r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sessionID)
				}
			}

			// Confirm persistence so the emitting agent resumes. The buffer
			// absorbs the signal when the agent has not reached its wait yet.
			if !ev.IsPartial() {
				select {
				case <-runCtx.Done():
					return
				case resumeCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (r *Runner) applyEventActions(runCtx *core.RunContext, sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}

		callbackCtx := &CallbackContext{RunContext: runCtx, Event: &ev}
		if err := r.callbacks.execute(runCtx.Context, CallbackOnStateChange, callbackCtx); err != nil {
			return fmt.Errorf("state change callback failed: %w", err)
		}
	}

	if len(ev.Actions.ArtifactDelta) > 0 {
		// Artifacts are written by tools at save time; the delta only
		// records which ids this event produced.
		for id := range ev.Actions.ArtifactDelta {
			r.logger.Debug("runner.event.artifact", "artifact_id", id, "session_id", sessionID)
		}
	}

	if ev.Actions.TransferToAgent != nil && *ev.Actions.TransferToAgent != "" {
		r.logger.Debug("runner.event.transfer_to_agent", "target", *ev.Actions.TransferToAgent, "session_id", sessionID)
	}

	if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
		r.logger.Debug("runner.event.escalate", "session_id", sessionID)
	}

	return nil
}
