package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/observability"
)

// Component is a lifecycle-managed part of an application.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) observability.Health
}

// Hooks builds a Component from functions. Nil functions are no-ops and a
// nil health function reports up.
type Hooks struct {
	ComponentName string
	OnStart       func(ctx context.Context) error
	OnStop        func(ctx context.Context) error
	OnHealth      func(ctx context.Context) observability.Health
}

// Name returns ComponentName.
func (h Hooks) Name() string { return h.ComponentName }

// Start calls OnStart.
func (h Hooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

// Stop calls OnStop.
func (h Hooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

// Health calls OnHealth.
func (h Hooks) Health(ctx context.Context) observability.Health {
	if h.OnHealth == nil {
		return observability.Health{Name: h.ComponentName, Status: observability.HealthStatusUp}
	}
	return h.OnHealth(ctx)
}

// CheckHealth adapts a Component to observability.HealthChecker.
func (h Hooks) CheckHealth(ctx context.Context) observability.Health { return h.Health(ctx) }

// componentStopTimeout bounds each Stop inside the graceful window.
const componentStopTimeout = 10 * time.Second

type entry struct {
	c       Component
	started bool
}

// components starts in registration order and stops in reverse.
type components struct {
	entries []*entry
	names   map[string]bool
	log     *logger.Logger
}

func (r *components) register(c Component) error {
	if r.names == nil {
		r.names = make(map[string]bool)
	}
	if r.names[c.Name()] {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.names[c.Name()] = true
	r.entries = append(r.entries, &entry{c: c})
	return nil
}

func (r *components) startAll(ctx context.Context) error {
	for _, e := range r.entries {
		if err := e.c.Start(ctx); err != nil {
			r.log.Error("Component start failed", logger.Fields("component", e.c.Name(), "error", err.Error()))
			return fmt.Errorf("start %s: %w", e.c.Name(), err)
		}
		e.started = true
		r.log.Debug("Component started", logger.Fields("component", e.c.Name()))
	}
	return nil
}

func (r *components) stopAll(ctx context.Context) error {
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, componentStopTimeout)
		if err := e.c.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", e.c.Name(), err))
			r.log.Error("Component stop failed", logger.Fields("component", e.c.Name(), "error", err.Error()))
		} else {
			r.log.Info("Component stopped", logger.Fields("component", e.c.Name()))
		}
		e.started = false
		cancel()
	}
	return errors.Join(errs...)
}

func (r *components) checkers() []observability.HealthChecker {
	out := make([]observability.HealthChecker, len(r.entries))
	for i, e := range r.entries {
		out[i] = healthOf{e.c}
	}
	return out
}

type healthOf struct{ c Component }

func (h healthOf) CheckHealth(ctx context.Context) observability.Health { return h.c.Health(ctx) }
