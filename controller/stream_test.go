package controller

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/agent/tool"
	"crm-agent-backend/service/chat"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimPrefix(line, "data:")
			}
		}
		require.NotEmpty(t, ev.name, "block %q", block)
		events = append(events, ev)
	}
	return events
}

func names(events []sseEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.name)
	}
	return out
}

func newTestStream() (*chatStream, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return newChatStream(c), w
}

func TestChatStream_ReplyCarriesOutcomesAndPendingActions(t *testing.T) {
	stream, w := newTestStream()

	stream.Delta([]byte("Vou criar "))
	stream.Delta([]byte("a tarefa."))
	stream.Reply(&chat.Reply{
		SessionID:      "session-1",
		AssistantReply: "Vou criar a tarefa.",
		PendingActions: []action.PendingAction{{
			ID:          "action-1",
			ToolName:    "create_task",
			Description: "Criar tarefa: ligar ao cliente",
			Parameters:  tool.Params{"title": "ligar ao cliente"},
		}},
		Outcomes: []chat.Outcome{
			{ToolName: "create_task", ActionID: "action-1", Status: chat.OutcomePending},
			{ToolName: "search_clients", Status: chat.OutcomeFailed, Error: "timeout"},
		},
	})

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	events := parseEvents(t, w.Body.String())
	require.Equal(t, []string{
		eventDelta, eventDelta, eventToolCallResults, eventPendingActions, eventFinalAnswer, eventDone,
	}, names(events))
	assert.Equal(t, "a tarefa.", events[1].data)

	var outcomes []chat.Outcome
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &outcomes))
	require.Len(t, outcomes, 2)
	assert.Equal(t, chat.OutcomePending, outcomes[0].Status)
	assert.Equal(t, "action-1", outcomes[0].ActionID)
	assert.Equal(t, "timeout", outcomes[1].Error)

	var pending []action.PendingAction
	require.NoError(t, json.Unmarshal([]byte(events[3].data), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "Criar tarefa: ligar ao cliente", pending[0].Description)
	assert.Equal(t, "ligar ao cliente", pending[0].Parameters["title"])

	var reply chat.Reply
	require.NoError(t, json.Unmarshal([]byte(events[4].data), &reply))
	assert.Equal(t, "session-1", reply.SessionID)
	assert.Empty(t, events[5].data)
}

func TestChatStream_ReplyWithoutToolCalls(t *testing.T) {
	stream, w := newTestStream()

	stream.Reply(&chat.Reply{SessionID: "session-1", AssistantReply: "Olá!"})

	events := parseEvents(t, w.Body.String())
	assert.Equal(t, []string{eventFinalAnswer, eventDone}, names(events))
}

func TestChatStream_Fail(t *testing.T) {
	stream, w := newTestStream()

	stream.Fail(errors.New("failed to process agent message"))

	events := parseEvents(t, w.Body.String())
	require.Equal(t, []string{eventError, eventDone}, names(events))
	assert.Equal(t, "failed to process agent message", events[0].data)
}
