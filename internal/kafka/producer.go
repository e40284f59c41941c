package kafka

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"lesson-shop/internal/logger"
	"lesson-shop/internal/models"
)

const (
	EventOrderPlaced = "order.placed"

	TopicOrdersPlaced = "orders-placed"
	TopicOrderEvents  = "order-events"
)

// outboxLimit bounds how many events mock mode retains.
const outboxLimit = 256

// Message is an event as it was, or would have been, written to Kafka.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// outbox keeps the most recent messages published without a broker.
type outbox struct {
	mu       sync.Mutex
	messages []Message
}

func (o *outbox) add(m Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == outboxLimit {
		o.messages = append(o.messages[:0], o.messages[1:]...)
	}
	o.messages = append(o.messages, m)
}

func (o *outbox) snapshot() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Producer publishes order events. Without brokers it runs in mock mode and
// parks events in an in-memory outbox instead.
type Producer struct {
	sender sarama.SyncProducer
	outbox *outbox
	log    *logger.Logger
}

func newSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

func NewProducer(brokers []string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "No brokers configured, events are kept in memory")
		return &Producer{outbox: &outbox{}, log: log}, nil
	}

	sender, err := sarama.NewSyncProducer(brokers, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return &Producer{sender: sender, log: log}, nil
}

// MockMode reports whether events stay in memory.
func (p *Producer) MockMode() bool {
	return p.sender == nil
}

// Published returns the events held by a mock-mode producer, oldest first.
func (p *Producer) Published() []Message {
	if p.outbox == nil {
		return nil
	}
	return p.outbox.snapshot()
}

func (p *Producer) PublishOrderEvent(event *models.OrderEvent) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	if p.MockMode() {
		p.outbox.add(msg)
		p.log.LogKafka("MOCK_PUBLISH", msg.Topic, fmt.Sprintf("Held %s event for order %s", event.Type, event.OrderID))
		return nil
	}

	partition, offset, err := p.sender.SendMessage(&sarama.ProducerMessage{
		Topic: msg.Topic,
		Key:   sarama.StringEncoder(msg.Key),
		Value: sarama.ByteEncoder(msg.Value),
	})
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send %s event for order %s: %v", event.Type, event.OrderID, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", msg.Topic, fmt.Sprintf("Order %s at partition %d offset %d", event.OrderID, partition, offset))
	return nil
}

// newMessage keys the event by order id so every event of one order lands on
// the same partition.
func newMessage(event *models.OrderEvent) (Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return Message{Topic: topicForEvent(event.Type), Key: event.OrderID, Value: data}, nil
}

func topicForEvent(eventType string) string {
	switch eventType {
	case EventOrderPlaced:
		return TopicOrdersPlaced
	default:
		return TopicOrderEvents
	}
}

func (p *Producer) Close() error {
	if p.MockMode() {
		return nil
	}
	p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
	return p.sender.Close()
}
