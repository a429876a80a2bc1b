package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/action"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int
	err   error
}

func (s *fakeSweeper) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	s.calls++
	return 2, s.err
}

func message(body string) *primitive.MessageExt {
	return &primitive.MessageExt{
		Message: primitive.Message{Topic: TopicAgentMaintenance, Body: []byte(body)},
		MsgId:   "msg-1",
	}
}

func TestActionEventMessage(t *testing.T) {
	tests := []struct {
		status model.ActionStatus
		tag    string
	}{
		{model.ActionStatusPending, "tag_action_pending"},
		{model.ActionStatusCompleted, "tag_action_completed"},
		{model.ActionStatusRejected, "tag_action_rejected"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			event := action.Event{ActionID: "a-1", UserID: "user-1", ToolName: "create_task", Status: tt.status, OccurredAt: time.Now()}
			msg := actionEventMessage(event)
			assert.Equal(t, TopicAgentAction, msg.Topic)
			assert.Equal(t, tt.tag, msg.Tag)

			built, err := buildMessage(msg)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, built.GetTags())

			var decoded action.Event
			require.NoError(t, json.Unmarshal(built.Body, &decoded))
			assert.Equal(t, "a-1", decoded.ActionID)
			assert.Equal(t, tt.status, decoded.Status)
		})
	}
}

func TestBuildMessage_UnmarshalablePayload(t *testing.T) {
	_, err := buildMessage(&Message{Topic: TopicAgentAction, Payload: make(chan int)})
	assert.Error(t, err)
}

func TestHandleSessionCleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("valid request", func(t *testing.T) {
		sweeper := &fakeSweeper{}
		require.NoError(t, HandleSessionCleanup(sweeper)(ctx, message(`{"reason":"manual"}`)))
		assert.Equal(t, 1, sweeper.calls)
	})

	t.Run("empty body", func(t *testing.T) {
		sweeper := &fakeSweeper{}
		require.NoError(t, HandleSessionCleanup(sweeper)(ctx, message("")))
		assert.Equal(t, 1, sweeper.calls)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		sweeper := &fakeSweeper{}
		require.NoError(t, HandleSessionCleanup(sweeper)(ctx, message("{")))
		assert.Zero(t, sweeper.calls)
	})

	t.Run("sweeper failure is retried", func(t *testing.T) {
		sweeper := &fakeSweeper{err: errors.New("db down")}
		assert.Error(t, HandleSessionCleanup(sweeper)(ctx, message(`{}`)))
	})
}
