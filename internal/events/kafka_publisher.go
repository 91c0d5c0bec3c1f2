package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// enqueueTimeout bounds the partition metadata lookup WriteMessages does
// before handing messages to the async batcher
const enqueueTimeout = 250 * time.Millisecond

type KafkaPublisher struct {
	writer         *kafka.Writer
	defaultTopic   string
	topicByEvent   map[string]string
	enqueueTimeout time.Duration
}

// NewKafkaPublisher writes every event to defaultTopic unless topicByEvent
// maps its type elsewhere. Messages are keyed by affiliate so one affiliate's
// events stay ordered. Writes are async: Publish only enqueues, and delivery
// failures are logged by the writer's completion callback.
func NewKafkaPublisher(brokers []string, defaultTopic string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 5 * time.Second,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			Completion:   logFailedBatch,
		},
		defaultTopic:   defaultTopic,
		topicByEvent:   topicByEvent,
		enqueueTimeout: enqueueTimeout,
	}, nil
}

// logFailedBatch reports delivery errors of the async writer
func logFailedBatch(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		log.Printf("[events] failed to deliver %s to %s key=%s: %v", eventTypeOf(m), m.Topic, m.Key, err)
	}
}

func eventTypeOf(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return "event"
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := p.defaultTopic
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	// detached from the request so a finished request does not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.enqueueTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
