// Command registry runs a standalone service registry on the lookup and
// event-stream protocol the client speaks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/serviceclient/bootstrap"
	"github.com/kbukum/serviceclient/config"
	"github.com/kbukum/serviceclient/registry"
	"github.com/kbukum/serviceclient/server"
)

// Config is the registry binary's configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Server               server.Config   `yaml:"server" mapstructure:"server"`
	Registry             registry.Config `yaml:"registry" mapstructure:"registry"`
}

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Registry.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := config.Validate(&c.Registry); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	return c.Registry.Validate()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load[Config]("registry")
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	reg, err := registry.New(cfg.Registry, app.Logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, app.Logger)
	// Service names may contain escaped slashes.
	srv.GinEngine().UseRawPath = true
	srv.ApplyMiddleware("/health", "/version", "/v1/events")
	reg.Register(srv.GinEngine())
	srv.RegisterDefaultEndpoints(app.Name, reg)

	if err := app.Register(bootstrap.Hooks{
		ComponentName: "registry",
		OnStart:       reg.Seed,
		OnStop:        func(context.Context) error { return reg.Close() },
		OnHealth:      reg.CheckHealth,
	}); err != nil {
		return err
	}
	if err := app.Register(bootstrap.Hooks{ComponentName: "http", OnStart: srv.Start, OnStop: srv.Stop}); err != nil {
		return err
	}
	return app.Run(context.Background())
}
