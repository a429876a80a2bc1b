package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"crm-agent-backend/config"

	"github.com/apache/rocketmq-client-go/v2"
	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"
)

const (
	consumeGroupAgent = "cg_crm_agent"

	sendMessageAttempts  = 3
	maxReconsumeTimes    = 5
	consumeGoroutineNums = 4
)

type MessageHandler func(context.Context, *primitive.MessageExt) error

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

// Client 持有生产者与消费者，处理器需在 Start 之前注册
type Client struct {
	producer rocketmq.Producer
	consumer rocketmq.PushConsumer

	// topic -> handler
	handlers map[string]MessageHandler
}

func NewClient(cfg config.MQConfig) (*Client, error) {
	// 设置RocketMQ客户端（使用rlog）的日志级别
	rlog.SetLogLevel("warn")

	consumer, err := rocketmq.NewPushConsumer(
		c.WithNameServer(cfg.NameServer),
		c.WithGroupName(consumeGroupAgent),
		c.WithConsumerModel(c.Clustering),
		c.WithConsumeFromWhere(c.ConsumeFromLastOffset),
		c.WithMaxReconsumeTimes(maxReconsumeTimes),
		c.WithConsumeGoroutineNums(consumeGoroutineNums),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %v", err)
	}

	p, err := rocketmq.NewProducer(
		producer.WithNameServer(cfg.NameServer),
		producer.WithRetry(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %v", err)
	}

	return &Client{
		producer: p,
		consumer: consumer,
		handlers: make(map[string]MessageHandler),
	}, nil
}

// RegisterHandler 注册消息处理器
func (cl *Client) RegisterHandler(topic, tag string, handler MessageHandler) error {
	cl.handlers[topic] = handler

	selector := c.MessageSelector{}
	if tag != "" {
		selector = c.MessageSelector{
			Type:       c.TAG,
			Expression: tag,
		}
	}

	err := cl.consumer.Subscribe(topic, selector, func(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
		for _, msg := range messages {
			h := cl.handlers[msg.Topic]
			if h == nil {
				slog.Warn("No message handler found for topic", "topic", msg.Topic)
				continue
			}

			if err := h(ctx, msg); err != nil {
				slog.Error("Failed to process message",
					"topic", msg.Topic,
					"msg_id", msg.MsgId,
					"err", err)
				return c.ConsumeRetryLater, err
			}
		}
		return c.ConsumeSuccess, nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %v", topic, err)
	}
	return nil
}

func (cl *Client) Start() error {
	if err := cl.producer.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}

	if len(cl.handlers) == 0 {
		return nil
	}
	if err := cl.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %v", err)
	}
	return nil
}

// SendMessage 向MQ发送消息
func (cl *Client) SendMessage(ctx context.Context, message *Message) error {
	msg, err := buildMessage(message)
	if err != nil {
		return err
	}

	err = retry.Do(
		func() error {
			_, err := cl.producer.SendSync(ctx, msg)
			return err
		},
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}
	return nil
}

// Shutdown 关闭MQ服务
func (cl *Client) Shutdown() {
	if cl.producer != nil {
		if err := cl.producer.Shutdown(); err != nil {
			slog.Error("failed to shutdown producer", "err", err)
		}
	}
	if cl.consumer != nil && len(cl.handlers) > 0 {
		if err := cl.consumer.Shutdown(); err != nil {
			slog.Error("failed to shutdown consumer", "err", err)
		}
	}
}

func buildMessage(message *Message) (*primitive.Message, error) {
	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}
	return msg, nil
}
