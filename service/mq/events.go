package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"crm-agent-backend/service/agent/action"

	"github.com/apache/rocketmq-client-go/v2/primitive"
)

const (
	TopicAgentAction = "topic_agent_action"

	TopicAgentMaintenance = "topic_agent_maintenance"
	TagSessionCleanup     = "tag_session_cleanup"
)

// ActionPublisher 把动作状态变化发布到 TopicAgentAction，tag 为小写的状态名
type ActionPublisher struct {
	client *Client
}

var _ action.EventPublisher = (*ActionPublisher)(nil)

func NewActionPublisher(client *Client) *ActionPublisher {
	return &ActionPublisher{client: client}
}

func (p *ActionPublisher) PublishActionEvent(ctx context.Context, event action.Event) error {
	return p.client.SendMessage(ctx, actionEventMessage(event))
}

func actionEventMessage(event action.Event) *Message {
	return &Message{
		Topic:   TopicAgentAction,
		Tag:     "tag_action_" + strings.ToLower(string(event.Status)),
		Payload: event,
	}
}

// CleanupRequest 清理请求，Reason 仅用于日志
type CleanupRequest struct {
	Reason string `json:"reason"`
}

type SessionSweeper interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// HandleSessionCleanup 返回处理会话清理消息的处理器
func HandleSessionCleanup(sweeper SessionSweeper) MessageHandler {
	return func(ctx context.Context, msg *primitive.MessageExt) error {
		var req CleanupRequest
		if len(msg.Body) > 0 {
			if err := json.Unmarshal(msg.Body, &req); err != nil {
				// 消息格式错误，重试无意义
				slog.Error("invalid session cleanup message",
					"msg_id", msg.MsgId,
					"err", err)
				return nil
			}
		}

		n, err := sweeper.CleanupExpiredSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to cleanup expired sessions: %v", err)
		}

		slog.Info("Expired sessions cleaned up",
			"count", n,
			"reason", req.Reason,
			"msg_id", msg.MsgId)
		return nil
	}
}

// RequestSessionCleanup 发送一条会话清理消息，由任一实例消费
func RequestSessionCleanup(ctx context.Context, client *Client, reason string) error {
	return client.SendMessage(ctx, &Message{
		Topic:   TopicAgentMaintenance,
		Tag:     TagSessionCleanup,
		Payload: CleanupRequest{Reason: reason},
	})
}
