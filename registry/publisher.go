package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/kafka"
	"github.com/kbukum/serviceclient/notify"
	"github.com/kbukum/serviceclient/redis"
	"github.com/kbukum/serviceclient/sse"
)

// Publisher announces that a service's endpoints changed. endpoints is
// nil when the service was deleted.
type Publisher interface {
	PublishChange(ctx context.Context, service string, endpoints []discovery.Endpoint) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, service string, endpoints []discovery.Endpoint) error

// PublishChange calls f.
func (f PublisherFunc) PublishChange(ctx context.Context, service string, endpoints []discovery.Endpoint) error {
	return f(ctx, service, endpoints)
}

// Publishers fans a change out to every publisher and joins their errors.
type Publishers []Publisher

// PublishChange calls every publisher, even after a failure.
func (ps Publishers) PublishChange(ctx context.Context, service string, endpoints []discovery.Endpoint) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishChange(ctx, service, endpoints); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func changePayload(service string) []byte {
	data, _ := json.Marshal(notify.Event{ServiceName: service})
	return data
}

// HubPublisher broadcasts serviceChanged on the SSE event stream.
type HubPublisher struct {
	Hub sse.Broadcaster
}

// PublishChange broadcasts to every stream client.
func (p HubPublisher) PublishChange(_ context.Context, service string, _ []discovery.Endpoint) error {
	p.Hub.BroadcastToPattern(StreamClientPattern, sse.Frame{
		Event: sse.EventServiceChanged,
		Data:  changePayload(service),
	})
	return nil
}

// RedisPublisher publishes serviceChanged on a Redis Pub/Sub channel.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

// PublishChange publishes the event payload.
func (p RedisPublisher) PublishChange(ctx context.Context, service string, _ []discovery.Endpoint) error {
	_, err := p.Client.Publish(ctx, p.Channel, changePayload(service))
	return err
}

// KafkaPublisher writes serviceChanged to a Kafka topic keyed by service.
type KafkaPublisher struct {
	Producer *kafka.Producer
}

// PublishChange writes the event.
func (p KafkaPublisher) PublishChange(ctx context.Context, service string, _ []discovery.Endpoint) error {
	return p.Producer.PublishJSON(ctx, service, notify.Event{ServiceName: service})
}

// EtcdPublisher mirrors registrations under <Prefix><service>, which etcd
// watchers on the prefix observe as changes.
type EtcdPublisher struct {
	Client *clientv3.Client
	Prefix string
}

// PublishChange puts the endpoint list, or deletes the key when endpoints
// is nil.
func (p EtcdPublisher) PublishChange(ctx context.Context, service string, endpoints []discovery.Endpoint) error {
	key := p.Prefix + service
	if endpoints == nil {
		_, err := p.Client.Delete(ctx, key)
		return err
	}
	data, err := json.Marshal(endpoints)
	if err != nil {
		return err
	}
	if _, err := p.Client.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("etcd put %s: %w", key, err)
	}
	return nil
}
