// Package session 管理按 (用户, 页面, 聚焦实体) 划分的对话历史
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crm-agent-backend/metrics"
	"crm-agent-backend/model"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultTTL         = 7 * 24 * time.Hour
	DefaultMaxMessages = 50

	appendAttempts   = 5
	cleanupBatchSize = 500
)

var ErrSessionNotFound = errors.New("session not found")

// Archiver 在过期会话被删除前保存其对话记录
type Archiver interface {
	Archive(ctx context.Context, session *model.Session) error
}

type Manager struct {
	db          *gorm.DB
	ttl         time.Duration
	maxMessages int
	archiver    Archiver
	now         func() time.Time
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func WithMaxMessages(n int) Option {
	return func(m *Manager) { m.maxMessages = n }
}

func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(db *gorm.DB, opts ...Option) *Manager {
	m := &Manager{
		db:          db,
		ttl:         DefaultTTL,
		maxMessages: DefaultMaxMessages,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreateSession 返回该范围内未过期的会话，不存在时创建
// 过期时间自创建起固定，活动不会续期
// 并发创建同一范围时由 scope_key 唯一索引裁决，落败者重新查找胜者的会话
func (m *Manager) GetOrCreateSession(ctx context.Context, userID, page, entityType, entityID string) (*model.Session, error) {
	var session *model.Session
	err := retry.Do(
		func() error {
			s, err := m.findOrCreate(ctx, userID, page, entityType, entityID)
			if err != nil {
				return err
			}
			session = s
			return nil
		},
		retry.Attempts(appendAttempts),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, gorm.ErrDuplicatedKey)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Manager) findOrCreate(ctx context.Context, userID, page, entityType, entityID string) (*model.Session, error) {
	now := m.now()

	var session model.Session
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND page = ? AND entity_type = ? AND entity_id = ? AND expires_at > ?",
			userID, page, entityType, entityID, now).
		Order("updated_at DESC").
		First(&session).Error
	if err == nil {
		if session.Messages, err = m.loadMessages(ctx, session.ID); err != nil {
			return nil, err
		}
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	key := scopeKey(userID, page, entityType, entityID)

	// 过期会话让出范围键，行本身留给清理任务归档
	if err := m.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("scope_key = ? AND expires_at <= ?", key, now).
		Update("scope_key", nil).Error; err != nil {
		return nil, fmt.Errorf("failed to release expired session scope: %w", err)
	}

	session = model.Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
		UserID:     userID,
		Page:       page,
		EntityType: entityType,
		EntityID:   entityID,
		ExpiresAt:  now.Add(m.ttl),
		ScopeKey:   &key,
		Messages:   []model.SessionMessage{},
	}
	if err := m.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Created agent session",
		"session_id", session.ID,
		"user_id", userID,
		"page", page,
	)
	return &session, nil
}

func scopeKey(userID, page, entityType, entityID string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{userID, page, entityType, entityID}, "\x00")))
	return hex.EncodeToString(sum[:])
}

// GetSession 返回会话及其消息，不存在时返回 ErrSessionNotFound
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	if err := m.db.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	messages, err := m.loadMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return &session, nil
}

// AddMessageToSession 追加消息并只保留最近 maxMessages 条，会话不存在时不做任何事
// 每条消息占用一个递增序号，并发写入者抢到相同序号时唯一索引冲突，整体重试
func (m *Manager) AddMessageToSession(ctx context.Context, sessionID string, messages ...model.SessionMessage) error {
	if len(messages) == 0 {
		return nil
	}

	return retry.Do(
		func() error {
			return m.appendOnce(ctx, sessionID, messages)
		},
		retry.Attempts(appendAttempts),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, gorm.ErrDuplicatedKey)
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying session append",
				"attempt", n+1,
				"session_id", sessionID,
				"err", err)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (m *Manager) appendOnce(ctx context.Context, sessionID string, messages []model.SessionMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Session{}).
			Where("id = ?", sessionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		var maxSeq int64
		if err := tx.Model(&model.SessionMessage{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		now := m.now()
		rows := make([]model.SessionMessage, 0, len(messages))
		for i, msg := range messages {
			if msg.Timestamp.IsZero() {
				msg.Timestamp = now
			}
			rows = append(rows, model.SessionMessage{
				SessionID: sessionID,
				Seq:       maxSeq + int64(i) + 1,
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		// 删除最旧的消息，只保留最近 maxMessages 条
		keepFrom := maxSeq + int64(len(rows)) - int64(m.maxMessages)
		if keepFrom > 0 {
			if err := tx.Where("session_id = ? AND seq <= ?", sessionID, keepFrom).
				Delete(&model.SessionMessage{}).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Session{}).
			Where("id = ?", sessionID).
			Update("updated_at", now).Error
	})
}

// ClearSession 清空消息，保留会话行、范围和过期时间
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&model.SessionMessage{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Session{}).
			Where("id = ?", sessionID).
			Update("updated_at", m.now()).Error
	})
}

// GetRecentSessions 返回未过期的会话，按更新时间倒序，不加载消息
func (m *Manager) GetRecentSessions(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	var sessions []model.Session
	if err := m.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, m.now()).
		Order("updated_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// CleanupExpiredSessions 删除 expires_at 严格早于当前时间的会话及其消息，返回删除的会话数
// 配置了归档时先归档，归档失败的会话保留到下一次清理
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	now := m.now()

	var expired []model.Session
	if err := m.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("failed to find expired sessions: %w", err)
	}

	ids := make([]string, 0, len(expired))
	for i := range expired {
		s := &expired[i]
		if m.archiver != nil {
			messages, err := m.loadMessages(ctx, s.ID)
			if err != nil {
				return 0, err
			}
			s.Messages = messages
			if err := m.archiver.Archive(ctx, s); err != nil {
				slog.Error("Failed to archive session", "session_id", s.ID, "err", err)
				continue
			}
		}
		ids = append(ids, s.ID)
	}

	var deleted int64
	for start := 0; start < len(ids); start += cleanupBatchSize {
		end := min(start+cleanupBatchSize, len(ids))
		batch := ids[start:end]

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("session_id IN ?", batch).
				Delete(&model.SessionMessage{}).Error; err != nil {
				return err
			}
			res := tx.Where("id IN ? AND expires_at < ?", batch, now).
				Delete(&model.Session{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete expired sessions: %w", err)
		}
	}

	metrics.RecordSessionsCleaned(deleted)
	if deleted > 0 {
		slog.Info("Cleaned up expired sessions", "count", deleted)
	}
	return deleted, nil
}

func (m *Manager) loadMessages(ctx context.Context, sessionID string) ([]model.SessionMessage, error) {
	messages := []model.SessionMessage{}
	if err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load session messages: %w", err)
	}
	return messages, nil
}
