package chat

import (
	"context"
	"errors"
	"testing"

	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.options)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMReasoner_BuildsConversation(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Olá."}}}}
	r := NewReasonerFromModel(fake)

	resp, err := r.Reason(context.Background(), ReasoningRequest{
		SystemPrompt: "sistema",
		History: []model.SessionMessage{
			{Role: model.RoleUser, Content: "primeira"},
			{Role: model.RoleAssistant, Content: "resposta"},
		},
		UserMessage: "segunda",
		Tools: []tool.FunctionSchema{{
			Name:        "get_current_date",
			Description: "today",
			Parameters:  tool.ParameterObject{Type: "object", Properties: map[string]tool.Property{}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá.", resp.Reply)
	assert.Empty(t, resp.ToolCalls)

	require.Len(t, fake.messages, 4)
	roles := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeHuman,
	}
	for i, role := range roles {
		assert.Equal(t, role, fake.messages[i].Role)
	}
	assert.Equal(t, llms.TextContent{Text: "segunda"}, fake.messages[3].Parts[0])

	require.Len(t, fake.options.Tools, 1)
	assert.Equal(t, "function", fake.options.Tools[0].Type)
	assert.Equal(t, "get_current_date", fake.options.Tools[0].Function.Name)
	assert.Nil(t, fake.options.StreamingFunc)
}

func TestLLMReasoner_ParsesToolCalls(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{
			{ID: "c1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "create_task", Arguments: `{"title":"ligar"}`}},
			{ID: "c2", Type: "function", FunctionCall: &llms.FunctionCall{Name: "register_sale", Arguments: `{not json`}},
			{ID: "c3", Type: "function"},
		},
	}}}}
	r := NewReasonerFromModel(fake)

	resp, err := r.Reason(context.Background(), ReasoningRequest{SystemPrompt: "s", UserMessage: "u"})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, ToolCall{ID: "c1", Name: "create_task", Arguments: tool.Params{"title": "ligar"}}, resp.ToolCalls[0])
	assert.Equal(t, "register_sale", resp.ToolCalls[1].Name)
	assert.Empty(t, resp.ToolCalls[1].Arguments)
	assert.Empty(t, fake.options.Tools)
}

func TestLLMReasoner_Errors(t *testing.T) {
	r := NewReasonerFromModel(&fakeModel{err: errors.New("quota exceeded")})
	_, err := r.Reason(context.Background(), ReasoningRequest{UserMessage: "u"})
	assert.ErrorContains(t, err, "quota exceeded")

	r = NewReasonerFromModel(&fakeModel{resp: &llms.ContentResponse{}})
	resp, err := r.Reason(context.Background(), ReasoningRequest{UserMessage: "u"})
	require.NoError(t, err)
	assert.Empty(t, resp.Reply)
}

func TestLLMReasoner_Streaming(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "x"}}}}
	r := NewReasonerFromModel(fake)

	_, err := r.Reason(context.Background(), ReasoningRequest{
		UserMessage: "u",
		StreamFunc:  func(ctx context.Context, chunk []byte) error { return nil },
	})
	require.NoError(t, err)
	assert.NotNil(t, fake.options.StreamingFunc)
}
