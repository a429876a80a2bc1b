package request

// ScopeQuery 页面与聚焦记录，实体字段可为空
type ScopeQuery struct {
	Page       string `form:"page" json:"page" binding:"required"`
	EntityType string `form:"entity_type" json:"entity_type"`
	EntityID   string `form:"entity_id" json:"entity_id"`
}

type ChatRequest struct {
	Page       string `json:"page" binding:"required"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Message    string `json:"message" binding:"required"`
}

type PendingActionsQuery struct {
	SessionID string `form:"session_id"`
}

type RecentSessionsQuery struct {
	Limit int `form:"limit"`
}
