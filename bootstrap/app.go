package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/observability"
)

const defaultGracefulTimeout = 15 * time.Second

// App runs one binary. C is its config type.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	components      components
	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// NewApp applies defaults to cfg, validates it and initializes logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := &appOptions{gracefulTimeout: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		logger.Init(&base.Logging)
		o.logger = logger.GetGlobalLogger()
	}

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          o.logger,
		gracefulTimeout: o.gracefulTimeout,
	}
	app.components.log = o.logger.WithComponent("bootstrap")
	return app, nil
}

// Register adds a component. Components start in registration order.
func (a *App[C]) Register(c Component) error {
	return a.components.register(c)
}

// OnConfigure registers a callback that runs after components start and
// before the ready check.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// HealthCheckers returns one checker per registered component.
func (a *App[C]) HealthCheckers() []observability.HealthChecker {
	return a.components.checkers()
}

// ReadyCheck fails when any component reports down.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	report := observability.NewServiceHealth(a.Name, a.Version).Check(ctx, a.HealthCheckers()...)
	if report.Status == observability.HealthStatusDown {
		var down []string
		for _, c := range report.Components {
			if c.Status == observability.HealthStatusDown {
				down = append(down, c.Name)
			}
		}
		return fmt.Errorf("components down: %v", down)
	}
	return nil
}

// Run starts the app, blocks until a signal or ctx ends, then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the app, runs task with a context canceled on SIGINT or
// SIGTERM, then shuts down. The task error takes precedence.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}

	taskCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	stopSignals()

	if err := a.stop(); err != nil && taskErr == nil {
		return err
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.components.startAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields("error", err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	names := make([]string, len(a.components.entries))
	for i, e := range a.components.entries {
		names[i] = e.c.Name()
	}
	a.Logger.Info("Startup complete", logger.Fields(
		"components", names,
		"duration", time.Since(start).String(),
	))
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx ends.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var firstErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.Fields("error", err.Error()))
		firstErr = err
	}
	if err := a.components.stopAll(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	a.Logger.Info("Application shutdown complete")
	return firstErr
}
