package kafka

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTagEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt TagEvent
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.UserID != 7 || evt.TagKey != "age" || evt.NewValue != "45" {
			return fmt.Errorf("事件内容不符: %+v", evt)
		}
		return nil
	})

	p := &Producer{producer: mockProducer, topic: "tag-events"}
	err := p.SendTagEvent(&TagEvent{
		UserID:     7,
		TagKey:     "age",
		OldValue:   "",
		NewValue:   "45",
		Source:     "manual",
		Confidence: 1,
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestSendTagEventUninitialized(t *testing.T) {
	var p *Producer
	assert.Error(t, p.SendTagEvent(&TagEvent{UserID: 1, TagKey: "age"}))
}

func TestPublishTagChangeWithoutProducer(t *testing.T) {
	prev := globalProducer
	globalProducer = nil
	defer func() { globalProducer = prev }()

	// 未配置Kafka时直接跳过，不应panic或阻塞
	PublishTagChange(7, "age", "", "45", "manual", 1, "chat_7_1")
}
