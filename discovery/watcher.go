package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/serviceclient/envelope"
	"github.com/kbukum/serviceclient/httpclient"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
	"github.com/kbukum/serviceclient/observability"
)

// ErrWatcherClosed is returned by Connect after Close.
var ErrWatcherClosed = errors.New("discovery: watcher closed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithTelemetry reports resolve spans, registry fetches and invalidations.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(w *Watcher) { w.tel = tel }
}

// Watcher caches the endpoints of one service and invalidates them on
// registry change notifications.
type Watcher struct {
	cfg  Config
	sub  notify.Subscriber
	http *httpclient.Adapter
	log  *logger.Logger
	tel  *observability.Telemetry

	cache atomic.Pointer[[]Endpoint]
	group singleflight.Group

	// warm-up lookups run on base and are awaited by Close.
	base   context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ Resolver = (*Watcher)(nil)

// NewWatcher creates a Watcher. cfg is defaulted; a nil adapter or logger
// gets a default. The subscription is not opened until Connect.
func NewWatcher(cfg Config, sub notify.Subscriber, adapter *httpclient.Adapter, log *logger.Logger, opts ...Option) (*Watcher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if sub == nil {
		sub = notify.NewManual()
	}
	if adapter == nil {
		var err error
		if adapter, err = httpclient.New(httpclient.Config{Timeout: cfg.Registry.Timeout}); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = logger.Nop()
	}
	base, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cfg:    cfg,
		sub:    sub,
		http:   adapter,
		log:    log.WithComponent("discovery").WithFields(logger.Fields("service", cfg.ServiceName)),
		base:   base,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ServiceName returns the bound service name.
func (w *Watcher) ServiceName() string { return w.cfg.ServiceName }

// Connect opens the subscription.
func (w *Watcher) Connect(ctx context.Context) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrWatcherClosed
	}
	return w.sub.Subscribe(ctx, notify.Handlers{
		OnConnect: w.onConnect,
		OnChange:  w.onChange,
	})
}

func (w *Watcher) onConnect() {
	w.log.Trace("Connected to service registry.")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if _, err := w.Refresh(w.base); err != nil {
			w.log.Trace("warm-up lookup failed", logger.ErrorFields("refresh", err))
		}
	}()
}

func (w *Watcher) onChange(ev notify.Event) {
	w.log.Trace(fmt.Sprintf("Config of '%s' changed.", ev.ServiceName))
	if w.cfg.MatchServiceName && ev.ServiceName != w.cfg.ServiceName {
		return
	}
	w.Invalidate()
	w.tel.Metrics().RecordInvalidation(w.base, w.cfg.ServiceName)
}

// Resolve returns the cached endpoints, looking them up when the cache is
// empty. The result may be an empty slice when the registry lists none.
func (w *Watcher) Resolve(ctx context.Context) (endpoints []Endpoint, err error) {
	ctx, op := w.tel.Start(ctx, observability.SpanResolve, w.cfg.ServiceName, "")
	defer func() {
		op.SetAttributes(attribute.Int(observability.AttrEndpoints, len(endpoints)))
		op.End(ctx, envelope.Outcome(err), err)
	}()

	if cached := w.cache.Load(); cached != nil {
		op.SetAttributes(attribute.Bool(observability.AttrCacheHit, true))
		return *cached, nil
	}
	op.SetAttributes(attribute.Bool(observability.AttrCacheHit, false))

	if !w.cfg.SingleFlight {
		return w.Refresh(ctx)
	}
	// The shared lookup outlives any single caller; the registry timeout
	// bounds it and each caller stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := w.group.DoChan(w.cfg.ServiceName, func() (any, error) {
		return w.Refresh(shared)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Endpoint), nil
	case <-ctx.Done():
		return nil, envelope.NewTransportError(w.cfg.ServiceName, ctx.Err())
	}
}

// Refresh looks the service up in the registry and replaces the cache on
// success. On failure the cache is left untouched.
func (w *Watcher) Refresh(ctx context.Context) (endpoints []Endpoint, err error) {
	defer func() {
		w.tel.Metrics().RecordRegistryFetch(ctx, w.cfg.ServiceName, envelope.Outcome(err))
	}()

	target := w.cfg.Registry.ServiceURL(w.cfg.ServiceName)
	w.log.Trace("getting service config from registry: " + target)

	resp, err := w.http.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     target,
		Headers: envelope.RegistryHeaders(w.cfg.CompanyCode),
		Timeout: w.cfg.Registry.Timeout,
	})
	if err != nil {
		return nil, envelope.NewTransportError(w.cfg.ServiceName, err)
	}

	payload, err := envelope.Decode(w.cfg.ServiceName, resp.StatusCode, resp.Body)
	if err != nil {
		w.log.Debug("registry lookup failed", logger.Fields(
			"status", resp.StatusCode,
			"error", err.Error(),
		))
		return nil, err
	}

	// A missing response leaves the cache empty so the next call asks again.
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(payload, &endpoints); err != nil {
		return nil, envelope.NewMalformedResponseError(w.cfg.ServiceName, resp.StatusCode, err)
	}
	if endpoints == nil {
		endpoints = []Endpoint{}
	}
	w.cache.Store(&endpoints)
	w.log.Debug("service endpoints cached", logger.Fields("endpoints", len(endpoints)))
	return endpoints, nil
}

// Invalidate drops the cached endpoints.
func (w *Watcher) Invalidate() {
	w.cache.Store(nil)
}

// Cached returns the cached endpoints, or nil when the cache is empty.
func (w *Watcher) Cached() []Endpoint {
	if p := w.cache.Load(); p != nil {
		return *p
	}
	return nil
}

// CheckHealth reports up once endpoints are cached and degraded before.
func (w *Watcher) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{Name: "discovery:" + w.cfg.ServiceName}
	cached := w.cache.Load()
	switch {
	case cached == nil:
		h.Status = observability.HealthStatusDegraded
		h.Message = "endpoints not resolved yet"
	case len(*cached) == 0:
		h.Status = observability.HealthStatusDegraded
		h.Message = "registry lists no endpoints"
	default:
		h.Status = observability.HealthStatusUp
		h.Details = map[string]string{"endpoints": strconv.Itoa(len(*cached))}
	}
	return h
}

// Close releases the subscription and waits for warm-up lookups to stop.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.sub.Close()
	w.wg.Wait()
	return err
}
