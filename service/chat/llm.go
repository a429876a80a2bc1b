package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"crm-agent-backend/config"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"
	"crm-agent-backend/utils"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLMReasoner 基于 OpenAI 兼容接口的 function calling 实现 Reasoner
type LLMReasoner struct {
	llm llms.Model
}

var _ Reasoner = (*LLMReasoner)(nil)

func NewLLMReasoner(cfg config.ModelConfig) (*LLMReasoner, error) {
	llm, err := openai.New(
		openai.WithModel(cfg.Name),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithHTTPClient(utils.NewHTTPClient(
			utils.WithTimeout(cfg.Timeout),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %v", err)
	}
	return NewReasonerFromModel(llm), nil
}

// NewReasonerFromModel 使用任意 langchaingo 模型
func NewReasonerFromModel(llm llms.Model) *LLMReasoner {
	return &LLMReasoner{llm: llm}
}

func (r *LLMReasoner) Reason(ctx context.Context, req ReasoningRequest) (*ReasoningResponse, error) {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	for _, m := range req.History {
		role := llms.ChatMessageTypeHuman
		if m.Role == model.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.UserMessage))

	var opts []llms.CallOption
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(toLLMTools(req.Tools)))
	}
	if req.StreamFunc != nil {
		opts = append(opts, llms.WithStreamingFunc(req.StreamFunc))
	}

	resp, err := r.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &ReasoningResponse{}, nil
	}

	choice := resp.Choices[0]
	out := &ReasoningResponse{Reply: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: parseArguments(tc.FunctionCall.Name, tc.FunctionCall.Arguments),
		})
	}
	return out, nil
}

func toLLMTools(schemas []tool.FunctionSchema) []llms.Tool {
	tools := make([]llms.Tool, 0, len(schemas))
	for _, s := range schemas {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return tools
}

// 参数无法解析时返回空参数，由执行器的参数校验拒绝
func parseArguments(toolName, raw string) tool.Params {
	params := tool.Params{}
	if raw == "" {
		return params
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		slog.Warn("failed to parse tool call arguments",
			"tool", toolName,
			"arguments", raw,
			"err", err)
		return tool.Params{}
	}
	return params
}
