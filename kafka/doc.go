// Package kafka wraps segmentio/kafka-go with structured logging for the
// registry change topic: a Consumer that reads it with failure backoff and
// a Producer that publishes JSON messages to it.
//
//	c, err := kafka.NewConsumer(cfg, "registry.service-changed", log)
//	err = c.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error { ... })
package kafka
