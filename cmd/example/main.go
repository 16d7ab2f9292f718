// Command example is a small gateway that serves GET /config by asking the
// "config" service, found through the registry, for its databases section.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serviceclient"
	"github.com/kbukum/serviceclient/bootstrap"
	"github.com/kbukum/serviceclient/config"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/observability"
	"github.com/kbukum/serviceclient/server"
	"github.com/kbukum/serviceclient/server/middleware"

	_ "github.com/kbukum/serviceclient/notify/consul"
	_ "github.com/kbukum/serviceclient/notify/etcd"
	_ "github.com/kbukum/serviceclient/notify/kafka"
	_ "github.com/kbukum/serviceclient/notify/redis"
)

// Config is the example binary's configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Server               server.Config        `yaml:"server" mapstructure:"server"`
	Client               serviceclient.Config `yaml:"client" mapstructure:"client"`
	Telemetry            TelemetryConfig      `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig turns on OTLP export of client spans and metrics.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Client.ApplyDefaults()
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1
	}
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load[Config]("example")
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()

	opts := []serviceclient.Option{serviceclient.WithLogger(app.Logger)}
	if cfg.Telemetry.Enabled {
		tel, shutdown, err := initTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		app.OnStop(shutdown)
		opts = append(opts, serviceclient.WithTelemetry(tel))
	}

	client, err := serviceclient.New(cfg.Client, opts...)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware()
	srv.GinEngine().GET("/config", databases(client))
	srv.RegisterDefaultEndpoints(app.Name, client)

	if err := app.Register(bootstrap.Hooks{
		ComponentName: "serviceclient:" + client.ServiceName(),
		OnStop:        func(context.Context) error { return client.Close() },
		OnHealth:      client.CheckHealth,
	}); err != nil {
		return err
	}
	if err := app.Register(bootstrap.Hooks{ComponentName: "http", OnStart: srv.Start, OnStop: srv.Stop}); err != nil {
		return err
	}
	return app.Run(ctx)
}

// databases relays the databases section of the config service, passing
// the caller's request ID along.
func databases(client *serviceclient.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		opts := serviceclient.RequestOptions{}
		if id := logger.RequestIDFromContext(ctx); id != "" {
			opts.Headers = map[string]string{middleware.HeaderRequestID: id}
		}
		payload, err := client.Get(ctx, "/sections/databases", opts)
		if err != nil {
			server.RespondError(c, err)
			return
		}
		server.RespondOK(c, payload)
	}
}

func initTelemetry(ctx context.Context, cfg *Config) (*observability.Telemetry, bootstrap.Hook, error) {
	tcfg := observability.DefaultTracerConfig(cfg.Name)
	tcfg.ServiceVersion = cfg.Version
	tcfg.Environment = cfg.Environment
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	tcfg.SampleRate = cfg.Telemetry.SampleRate
	tp, err := observability.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, nil, err
	}

	mcfg := observability.DefaultMeterConfig(cfg.Name)
	mcfg.ServiceVersion = cfg.Version
	mcfg.Environment = cfg.Environment
	mcfg.Endpoint = cfg.Telemetry.Endpoint
	mp, err := observability.InitMeter(ctx, &mcfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	tel, err := observability.NewTelemetry(tp, mp)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(ctx context.Context) error {
		terr := tp.Shutdown(ctx)
		if merr := mp.Shutdown(ctx); merr != nil {
			return merr
		}
		return terr
	}
	return tel, shutdown, nil
}
