package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kbukum/serviceclient/kafka"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/observability"
	"github.com/kbukum/serviceclient/redis"
	"github.com/kbukum/serviceclient/sse"
)

// Registry assembles the store, the event hub and the configured
// publishers behind a Handler.
type Registry struct {
	cfg     Config
	store   Store
	hub     *sse.Hub
	handler *Handler
	closers []func() error
	log     *logger.Logger
}

// New builds a Registry from cfg and starts its event hub.
func New(cfg Config, log *logger.Logger) (*Registry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	r := &Registry{cfg: cfg, log: log.WithComponent("registry")}
	if err := r.build(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) build() error {
	var redisClient *redis.Client
	if r.cfg.Store == StoreRedis || r.cfg.publishes(PublishRedis) {
		c, err := redis.New(r.cfg.Redis, r.log)
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		redisClient = c
		r.closers = append(r.closers, c.Close)
	}

	if r.cfg.Store == StoreRedis {
		r.store = NewRedisStore(redisClient, r.cfg.KeyPrefix)
	} else {
		r.store = NewMemoryStore()
	}

	r.hub = sse.NewHub(r.log)
	r.hub.Start()
	r.closers = append(r.closers, func() error { r.hub.Stop(); return nil })

	pubs := Publishers{HubPublisher{Hub: r.hub}}
	if r.cfg.publishes(PublishRedis) {
		pubs = append(pubs, RedisPublisher{Client: redisClient, Channel: r.cfg.Notify.Redis.Channel})
	}
	if r.cfg.publishes(PublishKafka) {
		producer, err := kafka.NewProducer(kafka.Config{Brokers: r.cfg.Notify.Kafka.Brokers}, r.cfg.Notify.Kafka.Topic, r.log)
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		r.closers = append(r.closers, producer.Close)
		pubs = append(pubs, KafkaPublisher{Producer: producer})
	}
	if r.cfg.publishes(PublishEtcd) {
		cli, err := clientv3.New(clientv3.Config{
			Endpoints:   r.cfg.Notify.Etcd.Endpoints,
			DialTimeout: r.cfg.Notify.Etcd.DialTimeout,
			Username:    r.cfg.Notify.Etcd.Username,
			Password:    r.cfg.Notify.Etcd.Password,
		})
		if err != nil {
			return fmt.Errorf("registry: etcd: %w", err)
		}
		r.closers = append(r.closers, cli.Close)
		pubs = append(pubs, EtcdPublisher{Client: cli, Prefix: r.cfg.Notify.Etcd.Prefix})
	}

	r.handler = NewHandler(r.store, r.hub, pubs, r.log)
	return nil
}

// Seed stores the configured seed registrations.
func (r *Registry) Seed(ctx context.Context) error {
	for name, endpoints := range r.cfg.Seed {
		if err := r.store.Put(ctx, name, endpoints); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		r.log.Info("service seeded", logger.Fields("service", name, "endpoints", len(endpoints)))
	}
	return nil
}

// Register mounts the registry routes on router.
func (r *Registry) Register(router gin.IRouter) { r.handler.Register(router) }

// Store returns the backing store.
func (r *Registry) Store() Store { return r.store }

// Hub returns the event hub.
func (r *Registry) Hub() *sse.Hub { return r.hub }

// CheckHealth reports the store backend and the number of open streams.
func (r *Registry) CheckHealth(_ context.Context) observability.Health {
	return observability.Health{
		Name:   "registry",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"store":   r.cfg.Store,
			"streams": strconv.Itoa(r.hub.ClientCount()),
		},
	}
}

// Close stops the hub and closes backend clients in reverse order.
func (r *Registry) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
