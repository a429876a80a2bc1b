package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/agent/tool"
	"crm-agent-backend/service/crmtools"
	"crm-agent-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type rpcResponse struct {
	Result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
}

func newServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	clock := func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	registry := tool.NewRegistry(crmtools.Tools(db, clock)...)
	s, err := New(registry, action.NewExecutor(db, registry, action.WithClock(clock)))
	require.NoError(t, err)
	return s, db
}

func rpc(t *testing.T, s *Server, ctx context.Context, request string) rpcResponse {
	t.Helper()
	raw := s.mcpServer.HandleMessage(ctx, json.RawMessage(request))
	require.NotNil(t, raw)

	data, err := json.Marshal(raw)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestServer_ListTools(t *testing.T) {
	s, _ := newServer(t)

	resp := rpc(t, s, context.Background(), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	var names []string
	for _, tl := range resp.Result.Tools {
		names = append(names, tl.Name)
	}
	assert.Len(t, names, 13)
	assert.Contains(t, names, "create_task")
	assert.Contains(t, names, "get_sales_summary")
	assert.NotNil(t, s.Handler())
}

func TestServer_CallApprovalToolCreatesPendingAction(t *testing.T) {
	s, db := newServer(t)
	ctx := WithUserID(context.Background(), "user-1")

	resp := rpc(t, s, ctx, `{"jsonrpc":"2.0","id":2,"method":"tools/call",
		"params":{"name":"create_task","arguments":{"title":"ligar ao cliente"}}}`)
	require.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Result.Content[0].Text), &payload))
	assert.Equal(t, "PENDING", payload["status"])
	assert.Equal(t, "Criar tarefa: ligar ao cliente", payload["description"])

	var stored model.Action
	require.NoError(t, db.First(&stored, "id = ?", payload["action_id"]).Error)
	assert.Equal(t, model.ActionStatusPending, stored.Status)
	assert.Equal(t, "user-1", stored.UserID)

	var tasks int64
	require.NoError(t, db.Model(&model.Task{}).Count(&tasks).Error)
	assert.Zero(t, tasks)
}

func TestServer_CallReadOnlyTool(t *testing.T) {
	s, _ := newServer(t)
	ctx := WithUserID(context.Background(), "user-1")

	resp := rpc(t, s, ctx, `{"jsonrpc":"2.0","id":3,"method":"tools/call",
		"params":{"name":"get_current_date","arguments":{}}}`)
	require.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	assert.Contains(t, resp.Result.Content[0].Text, "2026-03-14")

	resp = rpc(t, s, ctx, `{"jsonrpc":"2.0","id":4,"method":"tools/call",
		"params":{"name":"get_client_details","arguments":{"client_id":99}}}`)
	assert.True(t, resp.Result.IsError)
}

func TestServer_CallRequiresUser(t *testing.T) {
	s, _ := newServer(t)

	resp := rpc(t, s, context.Background(), `{"jsonrpc":"2.0","id":5,"method":"tools/call",
		"params":{"name":"get_current_date","arguments":{}}}`)
	assert.True(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	assert.Equal(t, "unauthenticated", resp.Result.Content[0].Text)
}
