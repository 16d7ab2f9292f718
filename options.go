package serviceclient

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
	"github.com/kbukum/serviceclient/observability"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	log        *logger.Logger
	subscriber notify.Subscriber
	httpClient *http.Client
	telemetry  *observability.Telemetry
	tracer     trace.TracerProvider
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSubscriber replaces the subscription built from Config.Notifier.
// The Client takes ownership and closes it on Close.
func WithSubscriber(s notify.Subscriber) Option {
	return func(o *options) { o.subscriber = s }
}

// WithHTTPClient sets the *http.Client used for registry and service calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTelemetry reports spans and metrics to tel.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(o *options) { o.telemetry = tel }
}

// WithTracing reports spans to tp without metrics. Ignored when
// WithTelemetry is also given.
func WithTracing(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}
