package discovery_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/discovery/testutil"
	"github.com/kbukum/serviceclient/envelope"
	"github.com/kbukum/serviceclient/notify"
	notifysse "github.com/kbukum/serviceclient/notify/sse"
	"github.com/kbukum/serviceclient/observability"
)

var (
	primary   = discovery.Endpoint{Host: "h", Port: 9, APIURI: "/api"}
	secondary = discovery.Endpoint{Host: "h2", Port: 10, APIURI: "/v2"}
)

func newWatcher(t *testing.T, reg *testutil.Registry, cfg discovery.Config, sub notify.Subscriber) *discovery.Watcher {
	t.Helper()
	cfg.Registry = reg.Config()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "config"
	}
	w, err := discovery.NewWatcher(cfg, sub, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestResolveCachesEndpoints(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetEndpoints("config", primary)
	w := newWatcher(t, reg, discovery.Config{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		eps, err := w.Resolve(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(eps) != 1 || eps[0] != primary {
			t.Fatalf("endpoints = %+v", eps)
		}
	}
	if n := reg.Lookups("config"); n != 1 {
		t.Errorf("lookups = %d, want 1", n)
	}
}

func TestResolveAfterInvalidationFetchesAgain(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetEndpoints("config", primary)
	sub := notify.NewManual()
	w := newWatcher(t, reg, discovery.Config{}, sub)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Resolve(context.Background()); err != nil {
		t.Fatal(err)
	}
	reg.SetEndpoints("config", secondary)
	sub.Publish(notify.Event{ServiceName: "config"})
	if w.Cached() != nil {
		t.Fatal("cache not cleared by change event")
	}

	eps, err := w.Resolve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 || eps[0] != secondary {
		t.Errorf("endpoints = %+v", eps)
	}
	if n := reg.Lookups("config"); n != 2 {
		t.Errorf("lookups = %d, want 2", n)
	}
}

func TestChangeEventFiltering(t *testing.T) {
	tests := []struct {
		name        string
		match       bool
		event       string
		invalidated bool
	}{
		{"any event clears by default", false, "billing", true},
		{"own event clears by default", false, "config", true},
		{"other event kept when matching", true, "billing", false},
		{"own event clears when matching", true, "config", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testutil.NewRegistry(t)
			reg.SetEndpoints("config", primary)
			sub := notify.NewManual()
			w := newWatcher(t, reg, discovery.Config{MatchServiceName: tt.match}, sub)
			if err := w.Connect(context.Background()); err != nil {
				t.Fatal(err)
			}
			if _, err := w.Resolve(context.Background()); err != nil {
				t.Fatal(err)
			}

			sub.Publish(notify.Event{ServiceName: tt.event})
			if got := w.Cached() == nil; got != tt.invalidated {
				t.Errorf("invalidated = %v, want %v", got, tt.invalidated)
			}
		})
	}
}

func TestResolveRegistryResponses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  envelope.ErrorCode
		wantEps   int
		wantCache bool
	}{
		{"endpoints", http.StatusOK, `{"response":[{"host":"h","port":9,"api-uri":"/api"}]}`, "", 1, true},
		{"empty list", http.StatusOK, `{"response":[]}`, "", 0, true},
		{"null response", http.StatusOK, `{"response":null}`, "", 0, false},
		{"missing response", http.StatusOK, `{}`, "", 0, false},
		{"upstream failure", http.StatusInternalServerError, `{"meta":{"error":"boom"}}`, envelope.ErrCodeUpstream, 0, false},
		{"failure without meta", http.StatusServiceUnavailable, `{}`, envelope.ErrCodeUpstream, 0, false},
		{"201 is not success", http.StatusCreated, `{"response":[]}`, envelope.ErrCodeUpstream, 0, false},
		{"not json", http.StatusOK, `<html>`, envelope.ErrCodeMalformedResponse, 0, false},
		{"response not a list", http.StatusOK, `{"response":{"host":"h"}}`, envelope.ErrCodeMalformedResponse, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testutil.NewRegistry(t)
			reg.Respond("config", tt.status, tt.body)
			w := newWatcher(t, reg, discovery.Config{}, nil)

			eps, err := w.Resolve(context.Background())
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else {
				e, ok := envelope.AsError(err)
				if !ok || e.Code != tt.wantCode {
					t.Fatalf("err = %v, want code %s", err, tt.wantCode)
				}
				if e.Service != "config" {
					t.Errorf("service = %q", e.Service)
				}
			}
			if len(eps) != tt.wantEps {
				t.Errorf("endpoints = %+v", eps)
			}
			if got := w.Cached() != nil; got != tt.wantCache {
				t.Errorf("cached = %v, want %v", got, tt.wantCache)
			}
		})
	}
}

func TestUpstreamErrorKeepsPayload(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.Respond("config", http.StatusInternalServerError, `{"meta":{"error":"boom"}}`)
	w := newWatcher(t, reg, discovery.Config{}, nil)

	_, err := w.Resolve(context.Background())
	e, ok := envelope.AsError(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if e.StatusCode != http.StatusInternalServerError || e.PayloadString() != "boom" {
		t.Errorf("status %d payload %q", e.StatusCode, e.PayloadString())
	}

	// A failed lookup leaves the cache untouched and the next call retries.
	reg.Reset("config")
	reg.SetEndpoints("config", primary)
	eps, err := w.Resolve(context.Background())
	if err != nil || len(eps) != 1 {
		t.Fatalf("retry = %+v, %v", eps, err)
	}
}

func TestUnknownServiceIsUpstreamError(t *testing.T) {
	reg := testutil.NewRegistry(t)
	w := newWatcher(t, reg, discovery.Config{ServiceName: "ghost"}, nil)
	_, err := w.Resolve(context.Background())
	e, ok := envelope.AsError(err)
	if !ok || e.Code != envelope.ErrCodeUpstream || e.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryUnreachableIsTransportError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	w, err := discovery.NewWatcher(discovery.Config{
		Registry:    discovery.RegistryConfig{Host: "127.0.0.1", Port: port},
		ServiceName: "config",
	}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	_, err = w.Resolve(context.Background())
	e, ok := envelope.AsError(err)
	if !ok || e.Code != envelope.ErrCodeTransport {
		t.Fatalf("err = %v", err)
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("cause %v does not unwrap to *net.OpError", e.Err)
	}
}

func TestLookupRequestShape(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetEndpoints("team/config", primary)
	w := newWatcher(t, reg, discovery.Config{ServiceName: "team/config", CompanyCode: "acme"}, nil)

	if _, err := w.Resolve(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := reg.LastPath(); got != "/v1/services/team%2Fconfig" {
		t.Errorf("path = %q", got)
	}
	h := reg.LastHeader()
	checks := map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US",
		"x-company-code":  "acme",
	}
	for k, want := range checks {
		if got := h.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if h.Get("User-Agent") == "" {
		t.Error("User-Agent missing")
	}
	if h.Get("x-client-id") != "" {
		t.Errorf("registry lookup sent x-client-id %q", h.Get("x-client-id"))
	}
}

func TestConnectWarmsCache(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetEndpoints("config", primary)
	sub := notify.NewManual()
	w := newWatcher(t, reg, discovery.Config{}, sub)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if w.Cached() != nil {
		t.Fatal("cache filled before connect signal")
	}

	sub.Connect()
	eventually(t, "warm-up lookup", func() bool { return w.Cached() != nil })
	if _, err := w.Resolve(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := reg.Lookups("config"); n != 1 {
		t.Errorf("lookups = %d, want 1", n)
	}
}

func TestWarmUpFailureIsSilent(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.Respond("config", http.StatusInternalServerError, `{"meta":{"error":"boom"}}`)
	sub := notify.NewManual()
	w := newWatcher(t, reg, discovery.Config{}, sub)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	sub.Connect()
	eventually(t, "warm-up lookup", func() bool { return reg.Lookups("config") == 1 })
	if w.Cached() != nil {
		t.Error("failed warm-up filled the cache")
	}
}

// gatedRegistry answers every lookup only after release is closed.
type gatedRegistry struct {
	hits    atomic.Int32
	arrived chan struct{}
	release chan struct{}
	host    string
	port    int
}

func newGatedRegistry(t *testing.T) *gatedRegistry {
	t.Helper()
	g := &gatedRegistry{arrived: make(chan struct{}, 16), release: make(chan struct{})}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)
		g.arrived <- struct{}{}
		<-g.release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":[{"host":"h","port":9}]}`))
	}))
	t.Cleanup(srv.Close)
	host, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
	g.host = host
	g.port, _ = strconv.Atoi(portStr)
	return g
}

func (g *gatedRegistry) watcher(t *testing.T, cfg discovery.Config, sub notify.Subscriber) *discovery.Watcher {
	t.Helper()
	cfg.Registry = discovery.RegistryConfig{Host: g.host, Port: g.port}
	cfg.ServiceName = "config"
	w, err := discovery.NewWatcher(cfg, sub, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestSingleFlight(t *testing.T) {
	g := newGatedRegistry(t)
	w := g.watcher(t, discovery.Config{SingleFlight: true}, nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eps, err := w.Resolve(context.Background())
			if err == nil && len(eps) != 1 {
				err = errors.New("wrong endpoints")
			}
			errs <- err
		}()
	}
	<-g.arrived
	time.Sleep(100 * time.Millisecond)
	close(g.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if n := g.hits.Load(); n != 1 {
		t.Errorf("registry hits = %d, want 1", n)
	}
}

func TestSingleFlightCallerDeadlineDoesNotFailOthers(t *testing.T) {
	g := newGatedRegistry(t)
	w := g.watcher(t, discovery.Config{SingleFlight: true}, nil)

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	shortErr := make(chan error, 1)
	go func() {
		_, err := w.Resolve(short)
		shortErr <- err
	}()
	<-g.arrived

	type result struct {
		eps []discovery.Endpoint
		err error
	}
	live := make(chan result, 1)
	go func() {
		eps, err := w.Resolve(context.Background())
		live <- result{eps, err}
	}()

	err := <-shortErr
	e, ok := envelope.AsError(err)
	if !ok || e.Code != envelope.ErrCodeTransport || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("short caller err = %v", err)
	}

	close(g.release)
	res := <-live
	if res.err != nil {
		t.Fatalf("live caller err = %v", res.err)
	}
	if len(res.eps) != 1 {
		t.Errorf("endpoints = %+v", res.eps)
	}
	if n := g.hits.Load(); n != 1 {
		t.Errorf("registry hits = %d, want 1", n)
	}
	if len(w.Cached()) != 1 {
		t.Error("shared lookup did not fill the cache")
	}
}

func TestInvalidationDuringLookupKeepsFetchedResult(t *testing.T) {
	g := newGatedRegistry(t)
	sub := notify.NewManual()
	w := g.watcher(t, discovery.Config{}, sub)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := w.Resolve(context.Background())
		done <- err
	}()
	<-g.arrived
	sub.Publish(notify.Event{ServiceName: "config"})
	close(g.release)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(w.Cached()) != 1 {
		t.Errorf("cached = %+v, want the in-flight result installed", w.Cached())
	}
}

func TestCheckHealth(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetEndpoints("config", primary)
	reg.SetEndpoints("empty")

	w := newWatcher(t, reg, discovery.Config{}, nil)
	if h := w.CheckHealth(context.Background()); h.Status != observability.HealthStatusDegraded {
		t.Errorf("before resolve = %s", h.Status)
	}
	_, _ = w.Resolve(context.Background())
	if h := w.CheckHealth(context.Background()); h.Status != observability.HealthStatusUp {
		t.Errorf("after resolve = %s", h.Status)
	}

	empty := newWatcher(t, reg, discovery.Config{ServiceName: "empty"}, nil)
	_, _ = empty.Resolve(context.Background())
	if h := empty.CheckHealth(context.Background()); h.Status != observability.HealthStatusDegraded {
		t.Errorf("empty registration = %s", h.Status)
	}
}

func TestCloseStopsConnect(t *testing.T) {
	reg := testutil.NewRegistry(t)
	sub := notify.NewManual()
	w := newWatcher(t, reg, discovery.Config{}, sub)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Connect(context.Background()); !errors.Is(err, discovery.ErrWatcherClosed) {
		t.Errorf("Connect after Close = %v", err)
	}
	sub.Connect()
	if n := reg.Lookups("config"); n != 0 {
		t.Errorf("closed watcher looked up %d times", n)
	}
}

func TestEventStreamInvalidates(t *testing.T) {
	reg := testutil.NewRegistry(t)
	reg.SetEndpoints("config", primary)

	sub, err := notifysse.New(notify.Config{ReconnectDelay: 10 * time.Millisecond}, reg.Target(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := newWatcher(t, reg, discovery.Config{}, sub)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	eventually(t, "stream warm-up", func() bool { return w.Cached() != nil })

	reg.Register("config", secondary)
	eventually(t, "invalidation", func() bool {
		eps, err := w.Resolve(context.Background())
		return err == nil && len(eps) == 1 && eps[0] == secondary
	})
}
