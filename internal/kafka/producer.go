package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/zhitang/assistant-go/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// TagEvent 标签变更事件，发布给下游画像/统计消费者
type TagEvent struct {
	UserID         uint      `json:"user_id"`
	TagKey         string    `json:"tag_key"`
	OldValue       string    `json:"old_value"`
	NewValue       string    `json:"new_value"`
	Source         string    `json:"source"`
	Confidence     float64   `json:"confidence"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

// SendTagEvent 发送标签变更事件
func (p *Producer) SendTagEvent(evt *TagEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d-%s", evt.UserID, evt.TagKey)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("source"),
				Value: []byte(evt.Source),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka消息失败", zap.Error(err))
		return fmt.Errorf("发送消息失败: %w", err)
	}

	logger.Debug("标签事件已发布",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("tag_key", evt.TagKey))

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// PublishTagChange 发布标签变更（便捷方法，Kafka未配置时静默跳过）。
// 异步发送，broker不可用时不阻塞标签写入事务的调用方。
func PublishTagChange(userID uint, tagKey, oldValue, newValue, source string, confidence float64, conversationID string) {
	producer := GetProducer()
	if producer == nil {
		return
	}

	evt := &TagEvent{
		UserID:         userID,
		TagKey:         tagKey,
		OldValue:       oldValue,
		NewValue:       newValue,
		Source:         source,
		Confidence:     confidence,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	}

	go func() {
		if err := producer.SendTagEvent(evt); err != nil {
			logger.Warn("标签事件发布失败",
				zap.Uint("user_id", userID),
				zap.String("tag_key", tagKey),
				zap.Error(err))
		}
	}()
}
