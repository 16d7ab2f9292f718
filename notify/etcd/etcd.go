// Package etcd watches a key prefix in etcd. A registry that keeps
// service configuration under <prefix><serviceName>[/...] produces a
// serviceChanged event for every put or delete below that prefix.
package etcd

import (
	"context"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
)

func init() {
	notify.RegisterProviderFactory(notify.ProviderEtcd, func(cfg notify.Config, _ notify.Target, log *logger.Logger) (notify.Subscriber, error) {
		return New(cfg, log)
	})
}

// Subscriber watches the configured etcd prefix.
type Subscriber struct {
	notify.Loop
	cfg notify.Config
	cli *clientv3.Client
	log *logger.Logger
}

// New creates an etcd client for the configured endpoints. The client dials
// lazily, so New succeeds even if etcd is not reachable yet.
func New(cfg notify.Config, log *logger.Logger) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: cfg.Etcd.DialTimeout,
		Username:    cfg.Etcd.Username,
		Password:    cfg.Etcd.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("notify/etcd: %w", err)
	}
	return &Subscriber{cfg: cfg, cli: cli, log: log}, nil
}

// Prefix returns the watched key prefix.
func (s *Subscriber) Prefix() string { return s.cfg.Etcd.Prefix }

// Subscribe starts the watch in the background.
func (s *Subscriber) Subscribe(ctx context.Context, h notify.Handlers) error {
	return s.Start(ctx, func(ctx context.Context) { s.run(ctx, h) })
}

// Close stops the watch and closes the etcd client.
func (s *Subscriber) Close() error {
	s.Stop()
	return s.cli.Close()
}

func (s *Subscriber) run(ctx context.Context, h notify.Handlers) {
	for {
		err := s.watch(ctx, h)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("etcd watch interrupted, reconnecting", map[string]interface{}{
			"prefix":          s.cfg.Etcd.Prefix,
			logger.FieldError: fmt.Sprint(err),
		})
		if !notify.Sleep(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Subscriber) watch(ctx context.Context, h notify.Handlers) error {
	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	defer cancel()

	prefix := s.cfg.Etcd.Prefix
	wch := s.cli.Watch(wctx, prefix, clientv3.WithPrefix(), clientv3.WithCreatedNotify())
	for resp := range wch {
		if err := resp.Err(); err != nil {
			return err
		}
		if resp.Created {
			h.Connected()
			continue
		}
		for _, name := range changedServices(prefix, resp.Events) {
			h.Changed(notify.Event{ServiceName: name})
		}
	}
	return fmt.Errorf("notify/etcd: watch channel closed")
}

// changedServices returns the distinct service names touched by events,
// in first-seen order.
func changedServices(prefix string, events []*clientv3.Event) []string {
	var names []string
	seen := make(map[string]bool)
	for _, ev := range events {
		if ev.Kv == nil {
			continue
		}
		name := serviceFromKey(prefix, string(ev.Kv.Key))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// serviceFromKey extracts the service name from <prefix><name>[/rest].
func serviceFromKey(prefix, key string) string {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return ""
	}
	rest = strings.TrimPrefix(rest, "/")
	name, _, _ := strings.Cut(rest, "/")
	return name
}
