// Package consul turns a Consul blocking query on the bound service's
// health entries into serviceChanged notifications. The first successful
// query is the connect signal; every later index change is a change event.
package consul

import (
	"context"
	"fmt"

	"github.com/hashicorp/consul/api"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
)

func init() {
	notify.RegisterProviderFactory(notify.ProviderConsul, func(cfg notify.Config, target notify.Target, log *logger.Logger) (notify.Subscriber, error) {
		return New(cfg, target.ServiceName, log)
	})
}

// Subscriber watches one Consul service.
type Subscriber struct {
	notify.Loop
	cfg     notify.Config
	service string
	client  *api.Client
	log     *logger.Logger
}

// New creates a Consul watcher for service.
func New(cfg notify.Config, service string, log *logger.Logger) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if service == "" {
		return nil, fmt.Errorf("notify/consul: service name is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.Consul.Address
	apiCfg.Scheme = cfg.Consul.Scheme
	apiCfg.Token = cfg.Consul.Token
	if cfg.Consul.Datacenter != "" {
		apiCfg.Datacenter = cfg.Consul.Datacenter
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}

	return &Subscriber{cfg: cfg, service: service, client: client, log: log}, nil
}

// Subscribe starts the blocking-query loop in the background.
func (s *Subscriber) Subscribe(ctx context.Context, h notify.Handlers) error {
	return s.Start(ctx, func(ctx context.Context) { s.watch(ctx, h) })
}

// Close stops the watch loop.
func (s *Subscriber) Close() error {
	s.Stop()
	return nil
}

func (s *Subscriber) watch(ctx context.Context, h notify.Handlers) {
	var (
		lastIndex uint64
		connected bool
	)
	for {
		if ctx.Err() != nil {
			return
		}

		opts := (&api.QueryOptions{
			WaitIndex: lastIndex,
			WaitTime:  s.cfg.Consul.WaitTime,
		}).WithContext(ctx)

		_, meta, err := s.client.Health().Service(s.service, "", false, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("consul watch error", map[string]interface{}{
				logger.FieldService: s.service,
				logger.FieldError:   err.Error(),
			})
			connected = false
			if !notify.Sleep(ctx, s.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		if !connected {
			connected = true
			lastIndex = meta.LastIndex
			h.Connected()
			continue
		}

		if meta.LastIndex == lastIndex {
			continue
		}
		if meta.LastIndex < lastIndex {
			// Consul resets the index after a snapshot restore.
			lastIndex = 0
			continue
		}
		lastIndex = meta.LastIndex
		h.Changed(notify.Event{ServiceName: s.service})
	}
}
