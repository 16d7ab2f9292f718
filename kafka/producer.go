package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/serviceclient/logger"
)

// Producer wraps a kafka-go Writer bound to one topic.
type Producer struct {
	writer *kafkago.Writer
	topic  string
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer for topic. The writer connects lazily on
// the first write.
func NewProducer(cfg Config, topic string, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka producer: topic is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	plog := log.WithComponent("kafka.producer")

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           ParseDuration(cfg.BatchTimeout),
		WriteTimeout:           ParseDuration(cfg.WriteTimeout),
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: "+fmt.Sprintf(msg, args...), map[string]interface{}{
				"topic": topic,
			})
		}),
	}
	return &Producer{writer: w, topic: topic, log: plog}, nil
}

// PublishJSON encodes v and writes it with the given key.
func (p *Producer) PublishJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kafka producer marshal: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}
	if err := p.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: data}); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

// Topic returns the producer's topic.
func (p *Producer) Topic() string { return p.topic }

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
