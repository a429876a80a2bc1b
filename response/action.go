package response

import (
	"encoding/json"
	"time"

	"crm-agent-backend/model"
)

type ActionResponse struct {
	ActionID    string             `json:"action_id"`
	SessionID   string             `json:"session_id"`
	ToolName    string             `json:"tool_name"`
	Description string             `json:"description"`
	Status      model.ActionStatus `json:"status"`
	Parameters  json.RawMessage    `json:"parameters"`
	CreatedAt   time.Time          `json:"created_at"`
}

type GetPendingActionsResponse struct {
	Actions []ActionResponse `json:"actions"`
}

func NewActionResponse(a *model.Action) ActionResponse {
	return ActionResponse{
		ActionID:    a.ID,
		SessionID:   a.SessionID,
		ToolName:    a.ToolName,
		Description: a.Description,
		Status:      a.Status,
		Parameters:  json.RawMessage(a.Parameters),
		CreatedAt:   a.CreatedAt,
	}
}
