package notify

import (
	"fmt"
	"time"
)

// Provider names.
const (
	ProviderSSE    = "sse"
	ProviderRedis  = "redis"
	ProviderConsul = "consul"
	ProviderEtcd   = "etcd"
	ProviderKafka  = "kafka"
	ProviderNone   = "none"
)

// Config selects and configures the push channel.
type Config struct {
	// Provider is one of sse, redis, consul, etcd, kafka or none. Defaults to sse.
	Provider string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=sse redis consul etcd kafka none"`

	// ReconnectDelay is the pause between reconnection attempts.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`

	SSE    SSEConfig    `yaml:"sse" mapstructure:"sse"`
	Redis  RedisConfig  `yaml:"redis" mapstructure:"redis"`
	Consul ConsulConfig `yaml:"consul" mapstructure:"consul"`
	Etcd   EtcdConfig   `yaml:"etcd" mapstructure:"etcd"`
	Kafka  KafkaConfig  `yaml:"kafka" mapstructure:"kafka"`
}

// SSEConfig configures the registry event stream.
type SSEConfig struct {
	// Path of the event stream on the registry. Defaults to /v1/events.
	Path string `yaml:"path" mapstructure:"path"`
}

// RedisConfig configures the Redis Pub/Sub channel.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Channel  string `yaml:"channel" mapstructure:"channel"`
}

// ConsulConfig configures the Consul blocking-query watch.
type ConsulConfig struct {
	Address    string        `yaml:"address" mapstructure:"address"`
	Scheme     string        `yaml:"scheme" mapstructure:"scheme"`
	Token      string        `yaml:"token" mapstructure:"token"`
	Datacenter string        `yaml:"datacenter" mapstructure:"datacenter"`
	WaitTime   time.Duration `yaml:"wait_time" mapstructure:"wait_time"`
}

// EtcdConfig configures the etcd prefix watch.
type EtcdConfig struct {
	Endpoints   []string      `yaml:"endpoints" mapstructure:"endpoints"`
	Prefix      string        `yaml:"prefix" mapstructure:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	Username    string        `yaml:"username" mapstructure:"username"`
	Password    string        `yaml:"password" mapstructure:"password"`
}

// KafkaConfig configures the Kafka topic reader.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
	GroupID string   `yaml:"group_id" mapstructure:"group_id"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderSSE
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.SSE.Path == "" {
		c.SSE.Path = "/v1/events"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "registry:serviceChanged"
	}
	if c.Consul.Address == "" {
		c.Consul.Address = "localhost:8500"
	}
	if c.Consul.Scheme == "" {
		c.Consul.Scheme = "http"
	}
	if c.Consul.WaitTime <= 0 {
		c.Consul.WaitTime = 30 * time.Second
	}
	if len(c.Etcd.Endpoints) == 0 {
		c.Etcd.Endpoints = []string{"localhost:2379"}
	}
	if c.Etcd.Prefix == "" {
		c.Etcd.Prefix = "/registry/services/"
	}
	if c.Etcd.DialTimeout <= 0 {
		c.Etcd.DialTimeout = 5 * time.Second
	}
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "registry.service-changed"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderSSE, ProviderRedis, ProviderConsul, ProviderEtcd, ProviderKafka, ProviderNone:
	default:
		return fmt.Errorf("notify: unsupported provider %q", c.Provider)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("notify: reconnect_delay must be positive")
	}
	return nil
}
