package serviceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/envelope"
	"github.com/kbukum/serviceclient/httpclient"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
	"github.com/kbukum/serviceclient/observability"

	// The default push channel.
	_ "github.com/kbukum/serviceclient/notify/sse"
)

// RequestOptions describes one call. Method is set by the verb helpers.
type RequestOptions struct {
	Method string
	// Body is JSON-encoded. Nil sends no payload.
	Body any
	// Headers override the standard headers, except User-Agent.
	Headers map[string]string
	// CompanyCode and ClientID override the client defaults when non-empty.
	CompanyCode string
	ClientID    string
	// Timeout overrides the client timeout when positive.
	Timeout time.Duration
}

// Client sends requests to one logical service through the registry.
type Client struct {
	cfg      Config
	identity envelope.Identity
	watcher  *discovery.Watcher
	http     *httpclient.Adapter
	log      *logger.Logger
	tel      *observability.Telemetry
}

// New builds a Client and opens its registry subscription.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("serviceclient: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	log := o.log.WithComponent("serviceclient").WithFields(logger.Fields("service", cfg.ServiceName))

	tel := o.telemetry
	if tel == nil && o.tracer != nil {
		var err error
		if tel, err = observability.NewTelemetry(o.tracer, nil); err != nil {
			return nil, err
		}
	}

	var httpOpts []httpclient.Option
	if o.httpClient != nil {
		httpOpts = append(httpOpts, httpclient.WithHTTPClient(o.httpClient))
	}
	adapter, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout}, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("serviceclient: %w", err)
	}

	sub := o.subscriber
	if sub == nil {
		if sub, err = notify.New(cfg.Notifier, cfg.notifyTarget(), o.log); err != nil {
			return nil, fmt.Errorf("serviceclient: %w", err)
		}
	}

	watcher, err := discovery.NewWatcher(cfg.discoveryConfig(), sub, adapter, o.log, discovery.WithTelemetry(tel))
	if err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("serviceclient: %w", err)
	}
	if err := watcher.Connect(context.Background()); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("serviceclient: subscribe: %w", err)
	}

	return &Client{
		cfg:      cfg,
		identity: envelope.Identity{CompanyCode: cfg.CompanyCode, ClientID: cfg.ClientID},
		watcher:  watcher,
		http:     adapter,
		log:      log,
		tel:      tel,
	}, nil
}

// ServiceName returns the bound service name.
func (c *Client) ServiceName() string { return c.cfg.ServiceName }

// Watcher exposes the endpoint cache.
func (c *Client) Watcher() *discovery.Watcher { return c.watcher }

// Request resolves the service and sends one request to its first endpoint.
// On a 200 response it returns the unwrapped response payload; every
// failure is an *envelope.Error.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (payload json.RawMessage, err error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, op := c.tel.Start(ctx, observability.SpanRequest, c.cfg.ServiceName, method)
	defer func() { op.End(ctx, envelope.Outcome(err), err) }()

	c.log.Trace("begin request service", logger.Fields("method", method, "path", path))

	endpoints, err := c.watcher.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, envelope.NewUnresolvedServiceError(c.cfg.ServiceName)
	}

	target := endpoints[0].URL(path)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	identity := c.identity.Merge(envelope.Identity{CompanyCode: opts.CompanyCode, ClientID: opts.ClientID})

	body, err := jsonBody(opts.Body)
	if err != nil {
		return nil, envelope.NewInvalidRequestError(c.cfg.ServiceName, "request body could not be encoded", err)
	}

	c.log.Trace("sending request to " + target)
	op.SetAttributes(observability.URLAttr(target))

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     target,
		Headers: envelope.Headers(identity, opts.Headers),
		Body:    body,
		Timeout: timeout,
	})
	if err != nil {
		if httpclient.IsValidation(err) {
			return nil, envelope.NewInvalidRequestError(c.cfg.ServiceName, "request could not be built", err)
		}
		return nil, envelope.NewTransportError(c.cfg.ServiceName, err)
	}
	op.SetAttributes(observability.StatusAttr(resp.StatusCode))

	return envelope.Decode(c.cfg.ServiceName, resp.StatusCode, resp.Body)
}

// jsonBody encodes a request body as JSON. Strings and byte slices are
// encoded like any other value; json.RawMessage is sent as is.
func jsonBody(v any) (any, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// CheckHealth reports the state of the endpoint cache.
func (c *Client) CheckHealth(ctx context.Context) observability.Health {
	return c.watcher.CheckHealth(ctx)
}

// Close releases the subscription and idle connections.
func (c *Client) Close() error {
	err := c.watcher.Close()
	_ = c.http.Close()
	return err
}
