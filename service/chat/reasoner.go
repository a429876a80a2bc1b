package chat

import (
	"context"

	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"
)

// ToolCall 推理引擎请求的一次工具调用
type ToolCall struct {
	ID        string
	Name      string
	Arguments tool.Params
}

type ReasoningRequest struct {
	SystemPrompt string
	Tools        []tool.FunctionSchema
	History      []model.SessionMessage
	UserMessage  string

	// 非空时以流式方式回传文本片段
	StreamFunc func(ctx context.Context, chunk []byte) error
}

// ReasoningResponse Reply 与 ToolCalls 可以同时存在
type ReasoningResponse struct {
	Reply     string
	ToolCalls []ToolCall
}

// Reasoner 外部推理引擎，替换实现不影响注册表、执行器和会话
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (*ReasoningResponse, error)
}
