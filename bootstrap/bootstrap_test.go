package bootstrap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/serviceclient/config"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/observability"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
}

func newTestConfig(name string) *testConfig {
	return &testConfig{ServiceConfig: config.ServiceConfig{Name: name, Version: "1.0.0"}}
}

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, s)
}

func (j *journal) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return strings.Join(j.events, ",")
}

func recorded(j *journal, name string, startErr error, status observability.HealthStatus) Hooks {
	return Hooks{
		ComponentName: name,
		OnStart: func(context.Context) error {
			j.add("start:" + name)
			return startErr
		},
		OnStop: func(context.Context) error {
			j.add("stop:" + name)
			return nil
		},
		OnHealth: func(context.Context) observability.Health {
			return observability.Health{Name: name, Status: status}
		},
	}
}

func newApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	app, err := NewApp(newTestConfig("svc"), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newApp(t)
	if app.Name != "svc" || app.Version != "1.0.0" {
		t.Errorf("app = %s %s", app.Name, app.Version)
	}
	if app.Cfg.Environment != config.EnvDevelopment {
		t.Errorf("defaults not applied: %q", app.Cfg.Environment)
	}

	if _, err := NewApp(newTestConfig(""), WithLogger(logger.Nop())); err == nil {
		t.Error("expected validation error")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	app := newApp(t)
	if err := app.Register(Hooks{ComponentName: "http"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Register(Hooks{ComponentName: "http"}); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	j := &journal{}
	app := newApp(t)
	_ = app.Register(recorded(j, "registry", nil, observability.HealthStatusUp))
	_ = app.Register(recorded(j, "http", nil, observability.HealthStatusUp))
	app.OnStart(func(context.Context) error { j.add("onStart"); return nil })
	app.OnConfigure(func(context.Context, *App[*testConfig]) error { j.add("configure"); return nil })
	app.OnReady(func(context.Context) error { j.add("onReady"); return nil })
	app.OnStop(func(context.Context) error { j.add("onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		j.add("task")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "start:registry,start:http,onStart,configure,onReady,task,onStop,stop:http,stop:registry"
	if got := j.String(); got != want {
		t.Errorf("order =\n%s\nwant\n%s", got, want)
	}
}

func TestRunTaskErrorWins(t *testing.T) {
	app := newApp(t)
	boom := errors.New("boom")
	if err := app.RunTask(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestStartFailureStopsStarted(t *testing.T) {
	j := &journal{}
	app := newApp(t)
	_ = app.Register(recorded(j, "registry", nil, observability.HealthStatusUp))
	_ = app.Register(recorded(j, "http", errors.New("port in use"), observability.HealthStatusUp))

	err := app.RunTask(context.Background(), func(context.Context) error {
		t.Error("task ran after failed start")
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "port in use") {
		t.Fatalf("err = %v", err)
	}
	if got := j.String(); got != "start:registry,start:http,stop:registry" {
		t.Errorf("order = %s", got)
	}
}

func TestReadyCheck(t *testing.T) {
	j := &journal{}
	app := newApp(t)
	_ = app.Register(recorded(j, "client", nil, observability.HealthStatusDegraded))
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("degraded must not fail ready check: %v", err)
	}
	_ = app.Register(recorded(j, "registry", nil, observability.HealthStatusDown))
	if err := app.ReadyCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "registry") {
		t.Errorf("err = %v", err)
	}
	if n := len(app.HealthCheckers()); n != 2 {
		t.Errorf("checkers = %d", n)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	j := &journal{}
	app := newApp(t)
	_ = app.Register(recorded(j, "http", nil, observability.HealthStatusUp))

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error { cancel(); return nil })
	if err := app.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := j.String(); got != "start:http,stop:http" {
		t.Errorf("order = %s", got)
	}
}

func TestHooksDefaults(t *testing.T) {
	h := Hooks{ComponentName: "noop"}
	if err := h.Start(context.Background()); err != nil {
		t.Error(err)
	}
	if err := h.Stop(context.Background()); err != nil {
		t.Error(err)
	}
	if got := h.CheckHealth(context.Background()); got.Status != observability.HealthStatusUp || got.Name != "noop" {
		t.Errorf("health = %+v", got)
	}
}
