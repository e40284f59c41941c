package kafka

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-shop/internal/logger"
	"lesson-shop/internal/models"
)

func testEvent() *models.OrderEvent {
	return &models.OrderEvent{
		Type:      EventOrderPlaced,
		OrderID:   "65a000000000000000000001",
		Order:     &models.Order{ID: "65a000000000000000000001", Status: models.StatusPending},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProducerPublishOrderEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	p := &Producer{sender: mockProducer, log: logger.New(&bytes.Buffer{}, logger.LevelDebug)}

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, TopicOrdersPlaced, msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "65a000000000000000000001", string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var decoded models.OrderEvent
		require.NoError(t, json.Unmarshal(value, &decoded))
		assert.Equal(t, EventOrderPlaced, decoded.Type)
		return nil
	})

	require.NoError(t, p.PublishOrderEvent(testEvent()))
	require.NoError(t, mockProducer.Close())
}

func TestProducerPublishOrderEventError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	p := &Producer{sender: mockProducer, log: logger.New(&bytes.Buffer{}, logger.LevelDebug)}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := p.PublishOrderEvent(testEvent())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, mockProducer.Close())
}

func TestProducerMockModeHoldsEvents(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProducer(nil, true, logger.New(&buf, logger.LevelDebug))
	require.NoError(t, err)
	assert.True(t, p.MockMode())

	require.NoError(t, p.PublishOrderEvent(testEvent()))

	held := p.Published()
	require.Len(t, held, 1)
	assert.Equal(t, TopicOrdersPlaced, held[0].Topic)
	assert.Equal(t, "65a000000000000000000001", held[0].Key)
	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(held[0].Value, &decoded))
	assert.Equal(t, EventOrderPlaced, decoded.Type)

	assert.Contains(t, buf.String(), "[orders-placed]")
	require.NoError(t, p.Close())
}

func TestOutboxKeepsMostRecent(t *testing.T) {
	o := &outbox{}
	for i := 0; i < outboxLimit+3; i++ {
		o.add(Message{Key: fmt.Sprintf("order-%d", i)})
	}

	held := o.snapshot()
	require.Len(t, held, outboxLimit)
	assert.Equal(t, "order-3", held[0].Key)
	assert.Equal(t, fmt.Sprintf("order-%d", outboxLimit+2), held[len(held)-1].Key)
}

func TestPublishedIsNilWithBroker(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	p := &Producer{sender: mockProducer, log: logger.New(&bytes.Buffer{}, logger.LevelDebug)}

	assert.False(t, p.MockMode())
	assert.Nil(t, p.Published())
	require.NoError(t, p.Close())
}

func TestTopicForEvent(t *testing.T) {
	assert.Equal(t, TopicOrdersPlaced, topicForEvent(EventOrderPlaced))
	assert.Equal(t, TopicOrderEvents, topicForEvent("order.unknown"))
}
