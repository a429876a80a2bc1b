// Package action 实现动作的确认与执行状态机
//
//	PENDING -> EXECUTING -> COMPLETED | FAILED   (需要确认)
//	PENDING -> REJECTED
//	EXECUTING -> COMPLETED | FAILED              (无需确认，创建即执行)
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crm-agent-backend/metrics"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// persistTimeout 限制结果落库的时间，与调用方的取消无关
const persistTimeout = 10 * time.Second

var (
	ErrActionNotFound   = errors.New("action not found or already processed")
	ErrApprovalRequired = errors.New("tool requires user approval")
)

// PendingAction 返回给调用方的待确认动作句柄
type PendingAction struct {
	ID          string      `json:"id"`
	ToolName    string      `json:"tool_name"`
	Description string      `json:"description"`
	Parameters  tool.Params `json:"parameters"`
}

type ExecutionResult struct {
	ActionID string             `json:"action_id"`
	ToolName string             `json:"tool_name"`
	Status   model.ActionStatus `json:"status"`
	Result   *tool.Result       `json:"result"`
}

// Event 动作状态变化事件
type Event struct {
	ActionID   string             `json:"action_id"`
	UserID     string             `json:"user_id"`
	SessionID  string             `json:"session_id"`
	ToolName   string             `json:"tool_name"`
	Status     model.ActionStatus `json:"status"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type EventPublisher interface {
	PublishActionEvent(ctx context.Context, event Event) error
}

type Executor struct {
	db          *gorm.DB
	registry    *tool.Registry
	publisher   EventPublisher
	toolTimeout time.Duration
	now         func() time.Time
}

type Option func(*Executor)

func WithPublisher(p EventPublisher) Option {
	return func(e *Executor) { e.publisher = p }
}

func WithToolTimeout(d time.Duration) Option {
	return func(e *Executor) { e.toolTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(db *gorm.DB, registry *tool.Registry, opts ...Option) *Executor {
	e := &Executor{
		db:       db,
		registry: registry,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreatePendingAction 持久化一个等待用户确认的动作，不产生任何业务副作用
func (e *Executor) CreatePendingAction(ctx context.Context, toolName string, params tool.Params, ec tool.ExecutionContext) (*PendingAction, error) {
	t, err := e.registry.Get(toolName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, toolName)
	}

	params, err = ValidateParams(t, params)
	if err != nil {
		return nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	action := model.Action{
		ID:               uuid.New().String(),
		UserID:           ec.UserID,
		SessionID:        ec.SessionID,
		Page:             ec.Page,
		EntityType:       ec.EntityType,
		EntityID:         ec.EntityID,
		ToolName:         t.Name(),
		Category:         string(t.Category()),
		Parameters:       paramsJSON,
		Description:      t.Describe(params),
		Status:           model.ActionStatusPending,
		RequiresApproval: true,
		CreatedAt:        e.now(),
	}
	if err := e.db.WithContext(ctx).Create(&action).Error; err != nil {
		return nil, fmt.Errorf("failed to create pending action: %w", err)
	}

	metrics.RecordAction(action.ToolName, string(action.Status))
	e.publish(ctx, &action)

	return &PendingAction{
		ID:          action.ID,
		ToolName:    action.ToolName,
		Description: action.Description,
		Parameters:  params,
	}, nil
}

// ExecuteToolDirectly 同步执行无需确认的工具，结果为 COMPLETED 或 FAILED
func (e *Executor) ExecuteToolDirectly(ctx context.Context, toolName string, params tool.Params, ec tool.ExecutionContext) (*ExecutionResult, error) {
	t, err := e.registry.Get(toolName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, toolName)
	}

	// 需要确认的工具只能经由 ApproveAndExecuteAction 执行
	if t.RequiresApproval() {
		return nil, fmt.Errorf("%w: %s", ErrApprovalRequired, toolName)
	}

	params, err = ValidateParams(t, params)
	if err != nil {
		return nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	action := model.Action{
		ID:               uuid.New().String(),
		UserID:           ec.UserID,
		SessionID:        ec.SessionID,
		Page:             ec.Page,
		EntityType:       ec.EntityType,
		EntityID:         ec.EntityID,
		ToolName:         t.Name(),
		Category:         string(t.Category()),
		Parameters:       paramsJSON,
		Description:      t.Describe(params),
		Status:           model.ActionStatusExecuting,
		RequiresApproval: false,
		CreatedAt:        e.now(),
	}
	if err := e.db.WithContext(ctx).Create(&action).Error; err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}

	result := e.run(ctx, t, params, ec)
	if err := e.finish(ctx, &action, result); err != nil {
		return nil, err
	}

	return &ExecutionResult{
		ActionID: action.ID,
		ToolName: action.ToolName,
		Status:   action.Status,
		Result:   result,
	}, nil
}

// ApproveAndExecuteAction 仅当动作仍为 PENDING 时生效
// 条件更新 PENDING -> EXECUTING 是并发保护：同一动作的第二次确认匹配零行，返回 ErrActionNotFound
func (e *Executor) ApproveAndExecuteAction(ctx context.Context, actionID, userID string) (*ExecutionResult, error) {
	approvedAt := e.now()
	res := e.db.WithContext(ctx).
		Model(&model.Action{}).
		Where("id = ? AND user_id = ? AND status = ?", actionID, userID, model.ActionStatusPending).
		Updates(map[string]any{
			"status":      model.ActionStatusExecuting,
			"approved_at": approvedAt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim action: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrActionNotFound
	}

	// 已占用 PENDING，后续读取不随请求取消
	var action model.Action
	if err := e.db.WithContext(context.WithoutCancel(ctx)).
		Where("id = ?", actionID).
		First(&action).Error; err != nil {
		return nil, fmt.Errorf("failed to load action: %w", err)
	}

	t, err := e.registry.Get(action.ToolName)
	if err != nil {
		// 已持久化的动作引用了未注册的工具：标记失败而不是中断
		result := tool.Failure("Ferramenta indisponível", fmt.Sprintf("tool not found: %s", action.ToolName))
		if ferr := e.finish(ctx, &action, result); ferr != nil {
			return nil, ferr
		}
		return &ExecutionResult{
			ActionID: action.ID,
			ToolName: action.ToolName,
			Status:   action.Status,
			Result:   result,
		}, fmt.Errorf("%w: %s", tool.ErrToolNotFound, action.ToolName)
	}

	var params tool.Params
	if len(action.Parameters) > 0 {
		if err := json.Unmarshal(action.Parameters, &params); err != nil {
			result := tool.Failure("Parâmetros inválidos", err.Error())
			if ferr := e.finish(ctx, &action, result); ferr != nil {
				return nil, ferr
			}
			return &ExecutionResult{ActionID: action.ID, ToolName: action.ToolName, Status: action.Status, Result: result}, nil
		}
	}

	ec := tool.ExecutionContext{
		UserID:     action.UserID,
		SessionID:  action.SessionID,
		Page:       action.Page,
		EntityType: action.EntityType,
		EntityID:   action.EntityID,
	}
	result := e.run(ctx, t, params, ec)
	if err := e.finish(ctx, &action, result); err != nil {
		return nil, err
	}

	return &ExecutionResult{
		ActionID: action.ID,
		ToolName: action.ToolName,
		Status:   action.Status,
		Result:   result,
	}, nil
}

// RejectAction 条件更新 PENDING -> REJECTED，已处理的动作不会被修改
func (e *Executor) RejectAction(ctx context.Context, actionID, userID string) error {
	res := e.db.WithContext(ctx).
		Model(&model.Action{}).
		Where("id = ? AND user_id = ? AND status = ?", actionID, userID, model.ActionStatusPending).
		Update("status", model.ActionStatusRejected)
	if res.Error != nil {
		return fmt.Errorf("failed to reject action: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrActionNotFound
	}

	var action model.Action
	if err := e.db.WithContext(ctx).Where("id = ?", actionID).First(&action).Error; err != nil {
		slog.Warn("Failed to load rejected action", "action_id", actionID, "err", err)
		return nil
	}
	metrics.RecordAction(action.ToolName, string(action.Status))
	e.publish(ctx, &action)
	return nil
}

// GetPendingActions sessionID 为空时返回该用户全部待确认动作，按创建时间升序
func (e *Executor) GetPendingActions(ctx context.Context, userID, sessionID string) ([]model.Action, error) {
	tx := e.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.ActionStatusPending)
	if sessionID != "" {
		tx = tx.Where("session_id = ?", sessionID)
	}

	var actions []model.Action
	if err := tx.Order("created_at ASC").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (e *Executor) GetAction(ctx context.Context, actionID, userID string) (*model.Action, error) {
	var action model.Action
	if err := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", actionID, userID).
		First(&action).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	return &action, nil
}

// run 工具内部的错误和 panic 都被转换为失败结果，不向上传播
func (e *Executor) run(ctx context.Context, t tool.Tool, params tool.Params, ec tool.ExecutionContext) (result *tool.Result) {
	start := time.Now()
	defer func() {
		metrics.RecordToolDuration(t.Name(), time.Since(start).Seconds())

		if r := recover(); r != nil {
			slog.Error("Tool panicked",
				"tool_name", t.Name(),
				"user_id", ec.UserID,
				"panic", r,
			)
			result = tool.Failure("Erro ao executar a ação", fmt.Sprintf("tool panicked: %v", r))
		}
	}()

	if e.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.toolTimeout)
		defer cancel()
	}

	res, err := t.Execute(ctx, params, ec)
	if err != nil {
		slog.Error("Tool execution failed",
			"tool_name", t.Name(),
			"user_id", ec.UserID,
			"err", err,
		)
		return tool.Failure("Erro ao executar a ação", err.Error())
	}
	if res == nil {
		return tool.Failure("Erro ao executar a ação", "tool returned no result")
	}
	return res
}

// finish 将 EXECUTING 动作落为 COMPLETED 或 FAILED 并记录执行时间
// 结果落库不受调用方取消影响
func (e *Executor) finish(ctx context.Context, action *model.Action, result *tool.Result) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	status := model.ActionStatusCompleted
	var errMsg *string
	if !result.Success {
		status = model.ActionStatusFailed
		msg := result.Error
		if msg == "" {
			msg = result.Message
		}
		errMsg = &msg
	}
	if !action.Status.CanTransitionTo(status) {
		return fmt.Errorf("invalid action transition %s -> %s", action.Status, status)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	executedAt := e.now()
	res := e.db.WithContext(ctx).
		Model(&model.Action{}).
		Where("id = ? AND status = ?", action.ID, model.ActionStatusExecuting).
		Updates(map[string]any{
			"status":      status,
			"result":      resultJSON,
			"error":       errMsg,
			"executed_at": executedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to record action outcome: %w", res.Error)
	}

	action.Status = status
	action.Result = resultJSON
	action.Error = errMsg
	action.ExecutedAt = &executedAt

	metrics.RecordAction(action.ToolName, string(status))
	e.publish(ctx, action)
	return nil
}

func (e *Executor) publish(ctx context.Context, action *model.Action) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.PublishActionEvent(ctx, Event{
		ActionID:   action.ID,
		UserID:     action.UserID,
		SessionID:  action.SessionID,
		ToolName:   action.ToolName,
		Status:     action.Status,
		OccurredAt: e.now(),
	})
	if err != nil {
		slog.Warn("Failed to publish action event",
			"action_id", action.ID,
			"status", action.Status,
			"err", err,
		)
	}
}
