package response

import (
	"time"

	"crm-agent-backend/model"
)

type MessageResponse struct {
	Role      model.MessageRole `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
}

type SessionResponse struct {
	SessionID  string            `json:"session_id"`
	Page       string            `json:"page"`
	EntityType string            `json:"entity_type,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Messages   []MessageResponse `json:"messages,omitempty"`
}

type GetSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

func NewSessionResponse(s *model.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:  s.ID,
		Page:       s.Page,
		EntityType: s.EntityType,
		EntityID:   s.EntityID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		ExpiresAt:  s.ExpiresAt,
	}
	for _, m := range s.Messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return resp
}
