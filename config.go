package serviceclient

import (
	"fmt"
	"time"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/notify"
)

// DefaultTimeout bounds a request to the resolved service.
const DefaultTimeout = 3 * time.Second

// Config binds a Client to one registry and one logical service.
type Config struct {
	Registry discovery.RegistryConfig `yaml:"registry" mapstructure:"registry" validate:"required"`

	// ServiceName is the logical service every request goes to.
	ServiceName string `yaml:"service_name" mapstructure:"service_name" validate:"required"`

	// Timeout is the default per-request timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ClientID and CompanyCode are the default identity headers.
	ClientID    string `yaml:"client_id" mapstructure:"client_id"`
	CompanyCode string `yaml:"company_code" mapstructure:"company_code"`

	// MatchServiceName and SingleFlight tune the endpoint cache; see
	// discovery.Config.
	MatchServiceName bool `yaml:"match_service_name" mapstructure:"match_service_name"`
	SingleFlight     bool `yaml:"single_flight" mapstructure:"single_flight"`

	// Notifier selects the registry change channel.
	Notifier notify.Config `yaml:"notifier" mapstructure:"notifier"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Registry.ApplyDefaults()
	c.Notifier.ApplyDefaults()
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	return c.Notifier.Validate()
}

func (c *Config) discoveryConfig() discovery.Config {
	return discovery.Config{
		Registry:         c.Registry,
		ServiceName:      c.ServiceName,
		CompanyCode:      c.CompanyCode,
		MatchServiceName: c.MatchServiceName,
		SingleFlight:     c.SingleFlight,
	}
}

func (c *Config) notifyTarget() notify.Target {
	return notify.Target{
		Host:        c.Registry.Host,
		Port:        c.Registry.Port,
		ServiceName: c.ServiceName,
		CompanyCode: c.CompanyCode,
	}
}
