package discovery

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultRegistryTimeout bounds a single registry lookup.
const DefaultRegistryTimeout = 3 * time.Second

// RegistryConfig addresses the service registry.
type RegistryConfig struct {
	Host    string        `yaml:"host" mapstructure:"host" validate:"required"`
	Port    int           `yaml:"port" mapstructure:"port" validate:"required,min=1,max=65535"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero-valued fields.
func (c *RegistryConfig) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultRegistryTimeout
	}
}

// Validate checks the registry address.
func (c *RegistryConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("registry host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("registry port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// ServiceURL returns the lookup URL for name. The name is path-escaped.
func (c RegistryConfig) ServiceURL(name string) string {
	return fmt.Sprintf("http://%s:%d/v1/services/%s", c.Host, c.Port, url.PathEscape(name))
}

// Config configures a Watcher.
type Config struct {
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`

	// ServiceName is the one logical service the watcher resolves.
	ServiceName string `yaml:"service_name" mapstructure:"service_name" validate:"required"`

	// CompanyCode is sent as x-company-code on registry lookups.
	CompanyCode string `yaml:"company_code" mapstructure:"company_code"`

	// MatchServiceName limits invalidation to change events naming
	// ServiceName. When false every change event clears the cache.
	MatchServiceName bool `yaml:"match_service_name" mapstructure:"match_service_name"`

	// SingleFlight collapses concurrent lookups on an empty cache into one
	// registry request.
	SingleFlight bool `yaml:"single_flight" mapstructure:"single_flight"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.Registry.ApplyDefaults()
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	return c.Registry.Validate()
}
