package discovery

import (
	"context"
	"fmt"
)

// Endpoint is one registered instance of a service as the registry reports it.
type Endpoint struct {
	Host   string `json:"host" yaml:"host" mapstructure:"host" validate:"required"`
	Port   int    `json:"port" yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	APIURI string `json:"api-uri" yaml:"api_uri" mapstructure:"api_uri" validate:"omitempty,startswith=/"`
}

// BaseURL returns http://host:port followed by the endpoint's API prefix.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("http://%s:%d%s", e.Host, e.Port, e.APIURI)
}

// URL joins path onto BaseURL without normalizing slashes.
func (e Endpoint) URL(path string) string {
	return e.BaseURL() + path
}

// Resolver returns the current endpoints of one bound service.
// The returned slice is shared and must not be modified.
type Resolver interface {
	Resolve(ctx context.Context) ([]Endpoint, error)
}
