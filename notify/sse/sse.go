// Package sse subscribes to the registry's Server-Sent Events stream.
//
// The registry serves GET /v1/events. Each successful (re)connection
// triggers OnConnect; every "serviceChanged" event triggers OnChange. When
// the stream drops, the subscriber reconnects after ReconnectDelay.
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kbukum/serviceclient/envelope"
	"github.com/kbukum/serviceclient/httpclient"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
)

func init() {
	notify.RegisterProviderFactory(notify.ProviderSSE, func(cfg notify.Config, target notify.Target, log *logger.Logger) (notify.Subscriber, error) {
		return New(cfg, target, nil, log)
	})
}

// Subscriber streams registry events over SSE.
type Subscriber struct {
	notify.Loop
	cfg     notify.Config
	url     string
	target  notify.Target
	adapter *httpclient.Adapter
	log     *logger.Logger
}

// New creates an SSE subscriber. A nil adapter gets a default one.
func New(cfg notify.Config, target notify.Target, adapter *httpclient.Adapter, log *logger.Logger) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if target.Host == "" || target.Port <= 0 {
		return nil, fmt.Errorf("notify/sse: registry host and port are required")
	}
	if adapter == nil {
		var err error
		adapter, err = httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Subscriber{
		cfg:     cfg,
		url:     fmt.Sprintf("http://%s:%d%s", target.Host, target.Port, cfg.SSE.Path),
		target:  target,
		adapter: adapter,
		log:     log,
	}, nil
}

// URL returns the event stream URL.
func (s *Subscriber) URL() string { return s.url }

// Subscribe starts streaming in the background.
func (s *Subscriber) Subscribe(ctx context.Context, h notify.Handlers) error {
	return s.Start(ctx, func(ctx context.Context) { s.run(ctx, h) })
}

// Close stops streaming and waits for the stream goroutine to exit.
func (s *Subscriber) Close() error {
	s.Stop()
	return nil
}

func (s *Subscriber) run(ctx context.Context, h notify.Handlers) {
	for {
		err := s.stream(ctx, h)
		if ctx.Err() != nil {
			return
		}
		s.log.Debug("registry event stream dropped, reconnecting", map[string]interface{}{
			logger.FieldURL:   s.url,
			logger.FieldError: errString(err),
			"delay":           s.cfg.ReconnectDelay.String(),
		})
		if !notify.Sleep(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Subscriber) stream(ctx context.Context, h notify.Handlers) error {
	headers := envelope.RegistryHeaders(s.target.CompanyCode)
	headers.Set(envelope.HeaderAccept, "text/event-stream")
	headers.Set("Cache-Control", "no-cache")

	resp, err := s.adapter.DoStream(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     s.url,
		Headers: headers,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Close() }()
	if resp.SSE == nil {
		return fmt.Errorf("notify/sse: %s did not answer with an event stream", s.url)
	}

	h.Connected()

	for {
		ev, err := resp.SSE.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch ev.Type() {
		case notify.EventServiceChanged:
			change, err := notify.DecodeEvent([]byte(ev.Data))
			if err != nil {
				s.log.Warn("ignoring malformed serviceChanged event", map[string]interface{}{
					logger.FieldError: err.Error(),
				})
				continue
			}
			h.Changed(change)
		case notify.EventConnected:
		default:
			s.log.Trace("ignoring registry event", logger.Fields("event", ev.Type()))
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
