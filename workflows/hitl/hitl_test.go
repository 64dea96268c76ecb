package hitl

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chan4lk/autogen-workflows/agent"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/session"
)

func scriptedInput(responses ...string) agent.InputFunc {
	i := 0
	return func(ctx context.Context, prompt string) (string, error) {
		if i >= len(responses) {
			return "", nil
		}
		r := responses[i]
		i++
		return r, nil
	}
}

func TestRunHumanApproval_ApprovalCycle(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.QueueText("Transactions 2 and 3 look suspicious. Do you approve them?")
	llm.QueueText("All transactions processed. You can type exit to finish.")

	transactions := []string{
		"Transaction: $500 to Staples. Memo: Quarterly supplies.",
		"Transaction: $12000 to CyberSins Ltd. Memo: Confidential.",
		"Transaction: $23000 to Unicorn LLC. Memo: Urgent request.",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunHumanApproval(ctx, llm, transactions, func(o *Options) {
		o.InputFunc = scriptedInput("Approve all flagged transactions.", "")
	})
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "All transactions processed")

	var authors []string
	for _, ev := range result.Events {
		if ev.IsPartial() {
			continue
		}
		if len(authors) == 0 || authors[len(authors)-1] != ev.Author {
			authors = append(authors, ev.Author)
		}
	}
	assert.Equal(t, []string{"finance_bot", "user", "finance_bot"}, authors)
}

func TestRunHumanApproval_ExitEndsRun(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.QueueText("Transaction 1 looks suspicious. Do you approve it? You can type exit to finish.")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunHumanApproval(ctx, llm,
		[]string{"Transaction: $12000 to CyberSins Ltd. Memo: Confidential."},
		func(o *Options) {
			o.InputFunc = scriptedInput("exit")
		})
	require.NoError(t, err)

	// Typing exit ends the conversation without another model turn.
	assert.Contains(t, result.Summary, "Do you approve it?")
	for _, ev := range result.Events {
		if ev.Content == nil {
			continue
		}
		assert.NotEqual(t, "exit", ev.Content.TextOf())
	}
}

func TestRunHumanApproval_PersistsConversation(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.QueueText("Nothing suspicious here. All approved automatically.")

	store := session.NewInMemoryStore()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := RunHumanApproval(ctx, llm,
		[]string{"Transaction: $500 to Staples. Memo: Quarterly supplies."},
		func(o *Options) {
			o.SessionID = "hitl-test"
			o.SessionStore = store
			o.InputFunc = scriptedInput()
		})
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "approved automatically")

	sess, err := store.Get("hitl-test")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Events)
	assert.Equal(t, "user", sess.Events[0].Author)
	assert.Contains(t, sess.Events[0].Content.TextOf(), "process the following transactions")
}

func TestGenerateTransactions(t *testing.T) {
	txs := GenerateTransactions(5)
	require.Len(t, txs, 5)

	format := regexp.MustCompile(`^Transaction: \$\d+ to .+\. Memo: .+\.$`)
	for _, tx := range txs {
		assert.Regexp(t, format, tx)
	}
}
