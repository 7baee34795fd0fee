package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"clinica-estetica/config"
)

// 事件类型，同时作为 Kafka topic 后缀
const (
	TypeAppointmentCreated       = "appointment.created"
	TypeAppointmentRescheduled   = "appointment.rescheduled"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeAppointmentReminder      = "appointment.reminder"
)

// Event 领域事件
type Event struct {
	ID         string      `json:"event_id"`
	Type       string      `json:"event_type"`
	Key        string      `json:"key"` // 分区键，通常为 appointment_id
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NewEvent 生成带唯一 ID 的事件
func NewEvent(eventType, key string, payload interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NewPublisher 根据配置创建发布器，未配置 brokers 时返回 no-op 实现
func NewPublisher(cfg *config.KafkaConfig, logger *zap.Logger) Publisher {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		logger.Warn("未配置 Kafka brokers，事件发布已禁用")
		return NopPublisher{}
	}

	logger.Info("Kafka 事件发布已启用", zap.Strings("brokers", brokers))
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		topicPrefix: cfg.TopicPrefix,
		logger:      logger,
	}
}

// ── Kafka 实现 ──

type kafkaPublisher struct {
	writer      *kafka.Writer
	topicPrefix string
	logger      *zap.Logger
}

func (p *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	msg, err := buildMessage(p.topicPrefix, evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("发布事件失败",
			zap.String("event_type", evt.Type),
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return fmt.Errorf("发布事件 %s 失败: %w", evt.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(topicPrefix string, evt Event) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("序列化事件失败: %w", err)
	}
	return kafka.Message{
		Topic: topicPrefix + evt.Type,
		Key:   []byte(evt.Key),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID)},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}, nil
}

// ── No-op 实现 ──

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// SplitBrokers 解析逗号分隔的 broker 列表
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
