package model

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Session 按 (user_id, page, entity_type, entity_id) 划分的对话
// 未聚焦实体时 entity_type 和 entity_id 存空字符串，保证范围查询可用等值匹配
// ScopeKey 为范围摘要，仅未过期会话持有，唯一索引保证同一范围最多一个活跃会话
type Session struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;index" json:"updated_at"`
	UserID     string    `gorm:"not null;size:64;index:idx_session_scope" json:"user_id"`
	Page       string    `gorm:"not null;size:64;index:idx_session_scope" json:"page"`
	EntityType string    `gorm:"not null;size:32;index:idx_session_scope" json:"entity_type"`
	EntityID   string    `gorm:"not null;size:64;index:idx_session_scope" json:"entity_id"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	ScopeKey   *string   `gorm:"size:64;uniqueIndex" json:"-"`

	Messages []SessionMessage `gorm:"-" json:"messages"`
}

func (Session) TableName() string {
	return "agent_session"
}

// SessionMessage 会话内的追加式消息日志
// (session_id, seq) 唯一，并发写入同一序号时由唯一索引拒绝
type SessionMessage struct {
	ID        uint        `gorm:"primarykey" json:"-"`
	SessionID string      `gorm:"not null;size:36;uniqueIndex:idx_session_seq" json:"-"`
	Seq       int64       `gorm:"not null;uniqueIndex:idx_session_seq" json:"seq"`
	Role      MessageRole `gorm:"not null;size:16" json:"role"`
	Content   string      `gorm:"type:text" json:"content"`
	Timestamp time.Time   `gorm:"not null" json:"timestamp"`
}

func (SessionMessage) TableName() string {
	return "agent_session_message"
}
