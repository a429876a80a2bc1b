package model

import (
	"time"

	"gorm.io/datatypes"
)

type ActionStatus string

const (
	// 等待用户确认
	ActionStatusPending ActionStatus = "PENDING"

	// 工具执行中
	ActionStatusExecuting ActionStatus = "EXECUTING"

	ActionStatusCompleted ActionStatus = "COMPLETED"
	ActionStatusFailed    ActionStatus = "FAILED"

	// 用户拒绝，终态
	ActionStatusRejected ActionStatus = "REJECTED"
)

// validActionTransitions 动作状态机允许的迁移，终态没有出边
var validActionTransitions = map[ActionStatus][]ActionStatus{
	ActionStatusPending:   {ActionStatusExecuting, ActionStatusRejected},
	ActionStatusExecuting: {ActionStatusCompleted, ActionStatusFailed},
}

func (s ActionStatus) CanTransitionTo(target ActionStatus) bool {
	for _, t := range validActionTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Action 每次工具调用尝试对应一行
// 建立联合索引 (user_id, status, created_at) 用于查询待确认动作
type Action struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	UserID           string         `gorm:"not null;size:64;index:idx_action_user_status" json:"user_id"`
	SessionID        string         `gorm:"not null;size:36;index" json:"session_id"`
	Page             string         `gorm:"not null;size:64" json:"page"`
	EntityType       string         `gorm:"not null;size:32" json:"entity_type"`
	EntityID         string         `gorm:"not null;size:64" json:"entity_id"`
	ToolName         string         `gorm:"not null;size:128" json:"tool_name"`
	Category         string         `gorm:"not null;size:32" json:"category"`
	Parameters       datatypes.JSON `json:"parameters"`
	Description      string         `gorm:"type:text" json:"description"`
	Status           ActionStatus   `gorm:"not null;size:16;index:idx_action_user_status" json:"status"`
	RequiresApproval bool           `gorm:"not null" json:"requires_approval"`
	Result           datatypes.JSON `json:"result"`
	Error            *string        `gorm:"type:text" json:"error"`
	CreatedAt        time.Time      `gorm:"not null;index:idx_action_user_status" json:"created_at"`
	ApprovedAt       *time.Time     `json:"approved_at"`
	ExecutedAt       *time.Time     `json:"executed_at"`
}

func (Action) TableName() string {
	return "agent_action"
}
