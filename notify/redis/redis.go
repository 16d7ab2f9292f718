// Package redis receives serviceChanged notifications from a Redis
// Pub/Sub channel. Each message payload is {"serviceName": "..."}.
package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
	redisclient "github.com/kbukum/serviceclient/redis"
)

func init() {
	notify.RegisterProviderFactory(notify.ProviderRedis, func(cfg notify.Config, _ notify.Target, log *logger.Logger) (notify.Subscriber, error) {
		return New(cfg, log)
	})
}

// Subscriber listens on a Redis channel.
type Subscriber struct {
	notify.Loop
	cfg    notify.Config
	client *redisclient.Client
	log    *logger.Logger
}

// New connects a Redis client for the configured channel.
func New(cfg notify.Config, log *logger.Logger) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	client, err := redisclient.New(redisclient.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("notify/redis: %w", err)
	}
	return &Subscriber{cfg: cfg, client: client, log: log}, nil
}

// Channel returns the Pub/Sub channel name.
func (s *Subscriber) Channel() string { return s.cfg.Redis.Channel }

// Subscribe starts listening in the background.
func (s *Subscriber) Subscribe(ctx context.Context, h notify.Handlers) error {
	return s.Start(ctx, func(ctx context.Context) { s.run(ctx, h) })
}

// Close stops listening and closes the Redis client.
func (s *Subscriber) Close() error {
	s.Stop()
	return s.client.Close()
}

func (s *Subscriber) run(ctx context.Context, h notify.Handlers) {
	for {
		err := s.listen(ctx, h)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("redis subscription lost, reconnecting", map[string]interface{}{
			"channel":         s.cfg.Redis.Channel,
			logger.FieldError: fmt.Sprint(err),
		})
		if !notify.Sleep(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Subscriber) listen(ctx context.Context, h notify.Handlers) error {
	ps, err := s.client.Subscribe(ctx, s.cfg.Redis.Channel)
	if err != nil {
		return err
	}
	defer func() { _ = ps.Close() }()

	h.Connected()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("notify/redis: channel closed")
			}
			ev, err := notify.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				s.log.Warn("ignoring malformed serviceChanged message", map[string]interface{}{
					logger.FieldError: err.Error(),
				})
				continue
			}
			h.Changed(ev)
		}
	}
}
