// Package autogenworkflows provides a high-level facade over the runner and
// service abstractions (sessions, artifacts, memory, logging) for building
// agent workflows. Most applications interact with this package by:
//  1. Creating a Workflows instance via New() with a root agent
//  2. Running it asynchronously (Run) or synchronously (RunSync)
//
// The facade delegates orchestration to runner.Runner while keeping setup
// ergonomics concise. All defaults are safe for local development and tests;
// production deployments typically supply durable stores and a structured
// logger.
package autogenworkflows

import (
	"context"

	"github.com/chan4lk/autogen-workflows/artifact"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/memory"
	"github.com/chan4lk/autogen-workflows/runner"
	"github.com/chan4lk/autogen-workflows/session"
)

// Options configures a Workflows instance.
type Options struct {
	// MaxConcurrentRuns limits simultaneous runs for backpressure.
	MaxConcurrentRuns int

	// EnableStreaming delivers partial model output events in real time.
	EnableStreaming bool

	// EventBufferSize sets channel buffering for event processing.
	EventBufferSize int

	// MaxModelCalls bounds model calls per run. Zero means unlimited.
	MaxModelCalls int

	// Stores default to in-memory implementations when not provided.
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// Callbacks receives runner lifecycle hooks. Optional.
	Callbacks *runner.CallbackManager

	// Logger defaults to a no-op logger when nil.
	Logger logging.Logger
}

// Workflows is the high-level facade aggregating the runner and its services.
type Workflows struct {
	opts   Options
	runner *runner.Runner
}

// New creates a Workflows instance around the given root agent. Any unset
// service is initialized with an in-memory implementation.
func New(root core.Agent, optFns ...func(o *Options)) *Workflows {
	opts := Options{
		MaxConcurrentRuns: 10,
		EnableStreaming:   true,
		EventBufferSize:   100,
		MaxModelCalls:     100,
		SessionStore:      session.NewInMemoryStore(),
		ArtifactStore:     artifact.NewInMemoryStore(),
		MemoryStore:       memory.NewInMemoryStore(),
		Callbacks:         runner.NewCallbackManager(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(root, func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.EnableStreaming = opts.EnableStreaming
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.MemoryStore = opts.MemoryStore
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	return &Workflows{opts: opts, runner: r}
}

// Run starts an asynchronous run returning event and error channels.
func (w *Workflows) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return w.runner.Run(ctx, sessionID, userContent)
}

// Cancel aborts a running run by ID.
func (w *Workflows) Cancel(runID string) error { return w.runner.Cancel(runID) }

// RunSync drains the async channels, accumulates events and returns the
// runID once the run completes.
func (w *Workflows) RunSync(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := w.runner.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return runID, events, ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				// Events closed; surface a terminal error if one is pending.
				select {
				case err := <-errorsCh:
					return runID, events, err
				default:
					return runID, events, nil
				}
			}
			events = append(events, event)

		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			if err != nil {
				return runID, events, err
			}
		}
	}
}
