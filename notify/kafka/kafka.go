// Package kafka consumes serviceChanged notifications from a Kafka topic.
// Message values are {"serviceName": "..."}; a value without a service
// name falls back to the message key.
package kafka

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/serviceclient/kafka"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
)

func init() {
	notify.RegisterProviderFactory(notify.ProviderKafka, func(cfg notify.Config, _ notify.Target, log *logger.Logger) (notify.Subscriber, error) {
		return New(cfg, log)
	})
}

// Subscriber reads the registry change topic.
type Subscriber struct {
	notify.Loop
	consumer *kafka.Consumer
	log      *logger.Logger
}

// New creates a consumer for the configured topic.
func New(cfg notify.Config, log *logger.Logger) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	c, err := kafka.NewConsumer(kafka.Config{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.GroupID,
		MaxBackoff: cfg.ReconnectDelay.String(),
	}, cfg.Kafka.Topic, log)
	if err != nil {
		return nil, fmt.Errorf("notify/kafka: %w", err)
	}
	return &Subscriber{consumer: c, log: log}, nil
}

// Topic returns the consumed topic.
func (s *Subscriber) Topic() string { return s.consumer.Topic() }

// Subscribe starts consuming in the background. The connect signal is sent
// once, when consumption starts; the reader reconnects on its own.
func (s *Subscriber) Subscribe(ctx context.Context, h notify.Handlers) error {
	return s.Start(ctx, func(ctx context.Context) {
		h.Connected()
		_ = s.consumer.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
			ev, err := eventFromMessage(msg)
			if err != nil {
				return err
			}
			h.Changed(ev)
			return nil
		})
	})
}

// Close stops consuming and closes the reader.
func (s *Subscriber) Close() error {
	s.Stop()
	return s.consumer.Close()
}

func eventFromMessage(msg kafkago.Message) (notify.Event, error) {
	if len(msg.Value) > 0 {
		ev, err := notify.DecodeEvent(msg.Value)
		if err == nil && ev.ServiceName != "" {
			return ev, nil
		}
	}
	if len(msg.Key) > 0 {
		return notify.Event{ServiceName: string(msg.Key)}, nil
	}
	return notify.Event{}, fmt.Errorf("notify/kafka: message at offset %d names no service", msg.Offset)
}
