package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crm-agent-backend/metrics"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/agent/contextual"
	"crm-agent-backend/service/agent/prompt"
	"crm-agent-backend/service/agent/session"
	"crm-agent-backend/service/agent/tool"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrReasoningFailed = errors.New("reasoning engine call failed")
)

// OutcomeStatus 单次工具调用的结果，FAILED 也可能没有对应的动作记录（如参数校验失败）
type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "PENDING"
	OutcomeCompleted OutcomeStatus = "COMPLETED"
	OutcomeFailed    OutcomeStatus = "FAILED"
)

// Scope 请求方及其所在页面和聚焦记录
type Scope struct {
	UserID     string
	UserName   string
	Page       string
	EntityType string
	EntityID   string
}

type Outcome struct {
	ToolName    string        `json:"tool_name"`
	ActionID    string        `json:"action_id,omitempty"`
	Status      OutcomeStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type Reply struct {
	SessionID       string                   `json:"session_id"`
	AssistantReply  string                   `json:"assistant_reply"`
	PendingActions  []action.PendingAction   `json:"pending_actions,omitempty"`
	ExecutedActions []action.ExecutionResult `json:"executed_actions,omitempty"`

	// 按调用顺序排列，每次调用独立成败
	Outcomes []Outcome `json:"outcomes"`
}

// Agent 串联上下文、工具筛选、提示词、推理、执行和会话
type Agent struct {
	registry *tool.Registry
	executor *action.Executor
	sessions *session.Manager
	contexts *contextual.Builder
	reasoner Reasoner
	now      func() time.Time
}

type Option func(*Agent)

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func NewAgent(registry *tool.Registry, executor *action.Executor, sessions *session.Manager,
	contexts *contextual.Builder, reasoner Reasoner, opts ...Option) *Agent {
	a := &Agent{
		registry: registry,
		executor: executor,
		sessions: sessions,
		contexts: contexts,
		reasoner: reasoner,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SubmitMessage 处理一条用户消息：一次推理调用，顺序执行其中的工具调用，最后追加一轮对话
func (a *Agent) SubmitMessage(ctx context.Context, scope Scope, text string) (*Reply, error) {
	return a.submit(ctx, scope, text, nil)
}

// SubmitMessageStream 与 SubmitMessage 相同，推理文本通过 onChunk 流式返回
func (a *Agent) SubmitMessageStream(ctx context.Context, scope Scope, text string,
	onChunk func(ctx context.Context, chunk []byte) error) (*Reply, error) {
	return a.submit(ctx, scope, text, onChunk)
}

func (a *Agent) submit(ctx context.Context, scope Scope, text string,
	onChunk func(ctx context.Context, chunk []byte) error) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	sess, err := a.sessions.GetOrCreateSession(ctx, scope.UserID, scope.Page, scope.EntityType, scope.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	enhanced, err := a.contexts.BuildEnhancedContext(ctx, scope.UserID, scope.Page, scope.EntityType, scope.EntityID)
	if err != nil {
		return nil, err
	}

	tools := a.registry.GetContextualTools(scope.Page)

	var entitySummary string
	if enhanced.Entity != nil {
		entitySummary = enhanced.Entity.Summary
	}
	systemPrompt, err := prompt.Compose(prompt.Input{
		UserName:  scope.UserName,
		Page:      scope.Page,
		PageTitle: enhanced.PageTitle,
		Entity:    entitySummary,
		ToolNames: tool.Names(tools),
		Now:       a.now(),
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.reasoner.Reason(ctx, ReasoningRequest{
		SystemPrompt: systemPrompt,
		Tools:        a.registry.ToSchemas(tools...),
		History:      sess.Messages,
		UserMessage:  text,
		StreamFunc:   onChunk,
	})
	metrics.RecordReasoning(time.Since(start).Seconds())
	if err != nil {
		slog.Error("failed to call reasoning engine",
			"user_id", scope.UserID,
			"session_id", sess.ID,
			"err", err)
		return nil, fmt.Errorf("%w: %v", ErrReasoningFailed, err)
	}

	reply := &Reply{
		SessionID: sess.ID,
		Outcomes:  []Outcome{},
	}

	allowed := make(map[string]bool, len(tools))
	for _, t := range tools {
		allowed[t.Name()] = true
	}
	ec := tool.ExecutionContext{
		UserID:     scope.UserID,
		SessionID:  sess.ID,
		Page:       scope.Page,
		EntityType: scope.EntityType,
		EntityID:   scope.EntityID,
	}

	// 链式调用顺序执行，前一个失败不回滚也不中断后续调用
	for _, call := range resp.ToolCalls {
		reply.Outcomes = append(reply.Outcomes, a.dispatch(ctx, call, allowed, ec, reply))
	}

	reply.AssistantReply = composeReply(resp.Reply, reply.Outcomes)

	now := a.now()
	if err := a.sessions.AddMessageToSession(ctx, sess.ID,
		model.SessionMessage{Role: model.RoleUser, Content: text, Timestamp: now},
		model.SessionMessage{Role: model.RoleAssistant, Content: reply.AssistantReply, Timestamp: now},
	); err != nil {
		// 动作已经持久化，会话写入失败不影响本次结果
		slog.Error("failed to append turn to session",
			"session_id", sess.ID,
			"err", err)
	}

	return reply, nil
}

func (a *Agent) dispatch(ctx context.Context, call ToolCall, allowed map[string]bool,
	ec tool.ExecutionContext, reply *Reply) Outcome {
	outcome := Outcome{ToolName: call.Name}

	if !allowed[call.Name] {
		outcome.Status = OutcomeFailed
		outcome.Error = fmt.Sprintf("tool %q is not available on page %q", call.Name, ec.Page)
		slog.Warn("reasoning engine requested tool outside context",
			"tool", call.Name,
			"page", ec.Page,
			"user_id", ec.UserID)
		return outcome
	}

	t, err := a.registry.Get(call.Name)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	if t.RequiresApproval() {
		pending, err := a.executor.CreatePendingAction(ctx, call.Name, call.Arguments, ec)
		if err != nil {
			outcome.Status = OutcomeFailed
			outcome.Error = err.Error()
			return outcome
		}
		reply.PendingActions = append(reply.PendingActions, *pending)

		outcome.Status = OutcomePending
		outcome.ActionID = pending.ID
		outcome.Description = pending.Description
		return outcome
	}

	result, err := a.executor.ExecuteToolDirectly(ctx, call.Name, call.Arguments, ec)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}
	reply.ExecutedActions = append(reply.ExecutedActions, *result)

	outcome.ActionID = result.ActionID
	outcome.Description = t.Describe(call.Arguments)
	if result.Status == model.ActionStatusCompleted {
		outcome.Status = OutcomeCompleted
	} else {
		outcome.Status = OutcomeFailed
	}
	if result.Result != nil {
		outcome.Message = result.Result.Message
		outcome.Error = result.Result.Error
	}
	return outcome
}

func (a *Agent) ApproveAction(ctx context.Context, actionID, userID string) (*action.ExecutionResult, error) {
	return a.executor.ApproveAndExecuteAction(ctx, actionID, userID)
}

func (a *Agent) RejectAction(ctx context.Context, actionID, userID string) error {
	return a.executor.RejectAction(ctx, actionID, userID)
}

// ClearSession 只能清空自己的会话
func (a *Agent) ClearSession(ctx context.Context, sessionID, userID string) error {
	sess, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return session.ErrSessionNotFound
	}
	return a.sessions.ClearSession(ctx, sessionID)
}

func (a *Agent) FetchSession(ctx context.Context, scope Scope) (*model.Session, error) {
	return a.sessions.GetOrCreateSession(ctx, scope.UserID, scope.Page, scope.EntityType, scope.EntityID)
}

func (a *Agent) FetchContext(ctx context.Context, scope Scope) (*contextual.EnhancedContext, error) {
	return a.contexts.BuildEnhancedContext(ctx, scope.UserID, scope.Page, scope.EntityType, scope.EntityID)
}

func (a *Agent) GetPendingActions(ctx context.Context, userID, sessionID string) ([]model.Action, error) {
	return a.executor.GetPendingActions(ctx, userID, sessionID)
}

func (a *Agent) GetRecentSessions(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	return a.sessions.GetRecentSessions(ctx, userID, limit)
}
