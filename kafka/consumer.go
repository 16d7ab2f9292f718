package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/serviceclient/logger"
)

// MessageHandler processes a Kafka message. A non-nil error is logged and
// the consumer continues with the next message.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Consumer wraps a kafka-go Reader with backoff and logging.
type Consumer struct {
	reader     *kafkago.Reader
	topic      string
	groupID    string
	maxBackoff time.Duration
	log        *logger.Logger
	failures   int
}

// NewConsumer creates a new Kafka consumer for a single topic.
func NewConsumer(cfg Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer: topic is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	clog := log.WithComponent("kafka.consumer")

	rc := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), map[string]interface{}{
				"topic":   topic,
				"groupID": cfg.GroupID,
			})
		}),
	}
	if cfg.GroupID != "" {
		rc.StartOffset = kafkago.LastOffset
		rc.SessionTimeout = ParseDuration(cfg.SessionTimeout)
		rc.HeartbeatInterval = ParseDuration(cfg.HeartbeatInterval)
	}
	reader := kafkago.NewReader(rc)
	if cfg.GroupID == "" {
		// Without a group only new changes matter.
		_ = reader.SetOffset(kafkago.LastOffset)
	}

	clog.Debug("Kafka consumer initialized", map[string]interface{}{
		"topic":   topic,
		"groupID": cfg.GroupID,
		"brokers": cfg.Brokers,
	})

	return &Consumer{
		reader:     reader,
		topic:      topic,
		groupID:    cfg.GroupID,
		maxBackoff: ParseDuration(cfg.MaxBackoff),
		log:        clog,
	}, nil
}

// Consume reads messages in a loop, calling handler for each one.
// It blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if retryErr := c.handleFailure(ctx, err); retryErr != nil {
				return retryErr
			}
			continue
		}
		c.failures = 0

		if err := handler(ctx, msg); err != nil {
			c.log.Error("Message processing failed", map[string]interface{}{
				"error":  err.Error(),
				"topic":  msg.Topic,
				"offset": msg.Offset,
			})
		}
	}
}

func (c *Consumer) handleFailure(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Kafka read error", map[string]interface{}{
			"error":    err.Error(),
			"failures": c.failures,
			"topic":    c.topic,
		})
	}

	backoff := backoffFor(c.failures, c.maxBackoff)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// backoffFor grows linearly by one second per failure up to max.
func backoffFor(failures int, max time.Duration) time.Duration {
	d := time.Duration(failures) * time.Second
	if max > 0 && d > max {
		return max
	}
	return d
}

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.topic }

// Close shuts down the consumer.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
