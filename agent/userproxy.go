package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chan4lk/autogen-workflows/core"
)

// ErrInputClosed is returned when the human input source is exhausted.
var ErrInputClosed = errors.New("user input closed")

// InputFunc sources a human reply. prompt carries the last assistant message
// for display. Returning ErrInputClosed (or io.EOF) signals that no further
// input will arrive.
type InputFunc func(ctx context.Context, prompt string) (string, error)

// UserProxyAgent represents the human participant in a workflow. Its Run
// collects one input via the configured InputFunc and emits it as a user
// event so it lands in the shared conversation history.
//
// The default input source reads a line from stdin.
type UserProxyAgent struct {
	BaseAgent
	input InputFunc
}

// UserProxyOption configures a UserProxyAgent.
type UserProxyOption func(*UserProxyAgent)

// WithInputFunc replaces the stdin-backed default input source. Tests and
// non-interactive callers use this to script human turns.
func WithInputFunc(f InputFunc) UserProxyOption {
	return func(u *UserProxyAgent) { u.input = f }
}

// NewUserProxyAgent constructs a human-in-the-loop participant.
func NewUserProxyAgent(name string, opts ...UserProxyOption) *UserProxyAgent {
	u := &UserProxyAgent{
		BaseAgent: NewBaseAgent(name),
		input:     stdinInput,
	}
	for _, o := range opts {
		o(u)
	}
	u.SetDescription(fmt.Sprintf("Human participant %s", name))
	return u
}

// Run collects one human input and emits it as a user message event. An
// empty input, the word "exit" in any casing, or a closed source yields
// ErrInputClosed so coordinators can wind the conversation down.
func (u *UserProxyAgent) Run(runCtx *core.RunContext) error {
	prompt := lastAssistantText(runCtx)

	text, err := u.input(runCtx.Context, prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrInputClosed
		}
		return fmt.Errorf("user input failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "exit") {
		return ErrInputClosed
	}

	ev := core.NewUserMessageEvent(runCtx.RunID, text)
	if err := runCtx.EmitEvent(ev); err != nil {
		return err
	}
	return runCtx.WaitForResume()
}

// lastAssistantText finds the most recent non-partial assistant message in
// the session to use as the prompt shown to the human.
func lastAssistantText(runCtx *core.RunContext) string {
	if runCtx.Session == nil {
		return ""
	}
	events := runCtx.Session.GetConversationHistory()
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Content != nil && ev.Content.Role == "assistant" {
			if text := ev.Content.TextOf(); text != "" {
				return text
			}
		}
	}
	return ""
}

// stdinInput is the default InputFunc reading one line from standard input.
func stdinInput(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprintf(os.Stderr, "%s\n", prompt)
	}
	fmt.Fprint(os.Stderr, "> ")

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return strings.TrimRight(r.line, "\r\n"), nil
	}
}
