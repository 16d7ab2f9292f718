package registry

import (
	"fmt"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/notify"
	"github.com/kbukum/serviceclient/redis"
)

// Store and publisher names.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	PublishRedis = "redis"
	PublishKafka = "kafka"
	PublishEtcd  = "etcd"
)

// Config configures the registry.
type Config struct {
	// Store is memory (default) or redis.
	Store string `yaml:"store" mapstructure:"store" validate:"omitempty,oneof=memory redis"`

	// KeyPrefix prefixes Redis keys of the redis store.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`

	// Redis addresses the store and the redis publisher.
	Redis redis.Config `yaml:"redis" mapstructure:"redis"`

	// Publish lists change channels besides the SSE stream: redis, kafka, etcd.
	Publish []string `yaml:"publish" mapstructure:"publish" validate:"dive,oneof=redis kafka etcd"`

	// Notify names the channel, topic and prefix the publishers write to.
	// It is the same block clients subscribe with.
	Notify notify.Config `yaml:"notify" mapstructure:"notify"`

	// Seed is registered at startup without publishing.
	Seed map[string][]discovery.Endpoint `yaml:"seed" mapstructure:"seed"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "registry:services"
	}
	c.Redis.ApplyDefaults()
	c.Notify.ApplyDefaults()
}

// Validate checks store and publisher names.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unsupported registry store %q", c.Store)
	}
	for _, p := range c.Publish {
		switch p {
		case PublishRedis, PublishKafka, PublishEtcd:
		default:
			return fmt.Errorf("unsupported registry publisher %q", p)
		}
	}
	return nil
}

func (c *Config) publishes(name string) bool {
	for _, p := range c.Publish {
		if p == name {
			return true
		}
	}
	return false
}
