package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chan4lk/autogen-workflows/agent"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
)

// stubAgent is a minimal core.Agent whose Run is supplied by the test.
type stubAgent struct {
	name string
	run  func(runCtx *core.RunContext) error
}

func (s *stubAgent) Name() string                     { return s.name }
func (s *stubAgent) Start(*core.RunContext) error     { return nil }
func (s *stubAgent) Stop(*core.RunContext) error      { return nil }
func (s *stubAgent) Run(rc *core.RunContext) error    { return s.run(rc) }
func (s *stubAgent) SetSubAgents(...core.Agent) error { return nil }
func (s *stubAgent) SubAgents() []core.Agent          { return nil }
func (s *stubAgent) Parent() core.Agent               { return nil }
func (s *stubAgent) FindAgent(string) core.Agent      { return nil }
func (s *stubAgent) Description() string              { return "stub " + s.name }

// collectRun drains both run channels until they close, failing the test if
// the run does not finish promptly.
func collectRun(t *testing.T, evCh <-chan core.Event, errCh <-chan error) ([]core.Event, error) {
	t.Helper()

	var events []core.Event
	var runErr error
	timeout := time.After(5 * time.Second)

	for evCh != nil || errCh != nil {
		select {
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			events = append(events, ev)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if runErr == nil {
				runErr = err
			}
		case <-timeout:
			t.Fatal("run did not complete in time")
		}
	}

	return events, runErr
}

func TestRunner_Run_DeliversEventsAndPersistsHistory(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.QueueText("The answer is 42.")

	store := session.NewInMemoryStore()
	r := New(agent.NewModelAgent("assistant", llm), func(o *Options) {
		o.SessionStore = store
	})

	runID, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("What is the answer?"))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	events, runErr := collectRun(t, evCh, errCh)
	require.NoError(t, runErr)
	require.NotEmpty(t, events)
	assert.Equal(t, "The answer is 42.", events[len(events)-1].Content.TextOf())

	sess, err := store.Get("s1")
	require.NoError(t, err)
	history := sess.GetEvents()
	require.GreaterOrEqual(t, len(history), 2)
	assert.Equal(t, "user", history[0].Author)
	assert.Equal(t, "What is the answer?", history[0].Content.TextOf())
}

func TestRunner_Run_AppliesStateDelta(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.QueueText("summary text")

	store := session.NewInMemoryStore()
	r := New(agent.NewModelAgent("assistant", llm, func(o *agent.ModelAgentOptions) {
		o.OutputKey = "summary"
	}), func(o *Options) {
		o.SessionStore = store
	})

	_, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("summarize"))
	require.NoError(t, err)

	_, runErr := collectRun(t, evCh, errCh)
	require.NoError(t, runErr)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	v, ok := sess.GetState("summary")
	require.True(t, ok)
	assert.Equal(t, "summary text", v)
}

func TestRunner_Run_AgentErrorSurfaces(t *testing.T) {
	r := New(&stubAgent{name: "broken", run: func(*core.RunContext) error {
		return assert.AnError
	}})

	_, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("go"))
	require.NoError(t, err)

	_, runErr := collectRun(t, evCh, errCh)
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, assert.AnError)
}

func TestRunner_Cancel(t *testing.T) {
	started := make(chan struct{})
	r := New(&stubAgent{name: "blocker", run: func(rc *core.RunContext) error {
		close(started)
		<-rc.Done()
		return rc.Err()
	}})

	runID, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("wait"))
	require.NoError(t, err)

	<-started
	require.NoError(t, r.Cancel(runID))

	collectRun(t, evCh, errCh)

	assert.Error(t, r.Cancel(runID), "finished runs are no longer cancellable")
	assert.Eventually(t, func() bool { return r.ActiveRuns() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRunner_Run_ConcurrentRunLimit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := New(&stubAgent{name: "slow", run: func(rc *core.RunContext) error {
		close(started)
		<-release
		return nil
	}}, func(o *Options) {
		o.MaxConcurrentRuns = 1
	})

	_, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("one"))
	require.NoError(t, err)
	<-started

	_, _, _, err = r.Run(context.Background(), "s2", core.NewUserText("two"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrent run limit")

	close(release)
	collectRun(t, evCh, errCh)
}

func TestRunner_BeforeRunCallbackAbortsRun(t *testing.T) {
	callbacks := NewCallbackManager()
	callbacks.Register(NewFunctionCallback(CallbackBeforeRun,
		func(ctx context.Context, cc *CallbackContext) error {
			return assert.AnError
		}))

	var ran bool
	r := New(&stubAgent{name: "guarded", run: func(*core.RunContext) error {
		ran = true
		return nil
	}}, func(o *Options) {
		o.Callbacks = callbacks
	})

	_, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("go"))
	require.NoError(t, err)

	_, runErr := collectRun(t, evCh, errCh)
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, assert.AnError)
	assert.False(t, ran, "agent must not run when the before-run hook rejects")
}

func TestRunner_OnEventCallbackObservesEvents(t *testing.T) {
	callbacks := NewCallbackManager()
	var seen []string
	callbacks.Register(NewFunctionCallback(CallbackOnEvent,
		func(ctx context.Context, cc *CallbackContext) error {
			seen = append(seen, cc.Event.Author)
			return nil
		}))

	r := New(&stubAgent{name: "talker", run: func(rc *core.RunContext) error {
		if err := rc.EmitEvent(core.NewMessageEvent("talker", "hello")); err != nil {
			return err
		}
		return rc.WaitForResume()
	}}, func(o *Options) {
		o.Callbacks = callbacks
	})

	_, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("hi"))
	require.NoError(t, err)

	events, runErr := collectRun(t, evCh, errCh)
	require.NoError(t, runErr)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"talker"}, seen)
}

func TestRunner_OnStateChangeCallback(t *testing.T) {
	callbacks := NewCallbackManager()
	var deltas []map[string]any
	callbacks.Register(NewFunctionCallback(CallbackOnStateChange,
		func(ctx context.Context, cc *CallbackContext) error {
			deltas = append(deltas, cc.Event.Actions.StateDelta)
			return nil
		}))

	r := New(&stubAgent{name: "stateful", run: func(rc *core.RunContext) error {
		rc.SetState("current_stage", "planning")
		if err := rc.EmitEvent(core.NewMessageEvent("stateful", "stage set")); err != nil {
			return err
		}
		return rc.WaitForResume()
	}}, func(o *Options) {
		o.Callbacks = callbacks
	})

	_, evCh, errCh, err := r.Run(context.Background(), "s1", core.NewUserText("go"))
	require.NoError(t, err)

	_, runErr := collectRun(t, evCh, errCh)
	require.NoError(t, runErr)
	require.Len(t, deltas, 1)
	assert.Equal(t, "planning", deltas[0]["current_stage"])
}
