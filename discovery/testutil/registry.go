package testutil

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/notify"
	"github.com/kbukum/serviceclient/registry"
)

type canned struct {
	status int
	body   string
}

// Registry is an httptest-backed service registry.
type Registry struct {
	server *httptest.Server
	reg    *registry.Registry

	mu       sync.Mutex
	canned   map[string]canned
	lookups  map[string]int
	lastHdr  http.Header
	pathSeen string
}

// NewRegistry starts a registry and stops it when t ends.
func NewRegistry(t testing.TB) *Registry {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg, err := registry.New(registry.Config{}, nil)
	if err != nil {
		t.Fatalf("testutil: registry: %v", err)
	}
	r := &Registry{
		reg:     reg,
		canned:  make(map[string]canned),
		lookups: make(map[string]int),
	}

	engine := gin.New()
	engine.UseRawPath = true
	engine.Use(r.record)
	reg.Register(engine)

	r.server = httptest.NewServer(engine)
	t.Cleanup(func() {
		_ = reg.Close()
		r.server.CloseClientConnections()
		r.server.Close()
	})
	return r
}

func (r *Registry) record(c *gin.Context) {
	if c.Request.Method != http.MethodGet || c.FullPath() != "/v1/services/:name" {
		c.Next()
		return
	}
	name := c.Param("name")

	r.mu.Lock()
	r.lookups[name]++
	r.lastHdr = c.Request.Header.Clone()
	r.pathSeen = c.Request.URL.EscapedPath()
	resp, ok := r.canned[name]
	r.mu.Unlock()

	if ok {
		c.Data(resp.status, "application/json", []byte(resp.body))
		c.Abort()
		return
	}
	c.Next()
}

// URL returns the registry base URL.
func (r *Registry) URL() string { return r.server.URL }

// Host returns the listen host.
func (r *Registry) Host() string {
	host, _, _ := net.SplitHostPort(r.server.Listener.Addr().String())
	return host
}

// Port returns the listen port.
func (r *Registry) Port() int {
	_, port, _ := net.SplitHostPort(r.server.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// Config returns a RegistryConfig addressing this registry.
func (r *Registry) Config() discovery.RegistryConfig {
	return discovery.RegistryConfig{Host: r.Host(), Port: r.Port()}
}

// Target returns the notify target addressing this registry.
func (r *Registry) Target() notify.Target {
	return notify.Target{Host: r.Host(), Port: r.Port()}
}

// SetEndpoints registers endpoints for name without a change event.
func (r *Registry) SetEndpoints(name string, endpoints ...discovery.Endpoint) {
	if endpoints == nil {
		endpoints = []discovery.Endpoint{}
	}
	_ = r.reg.Store().Put(context.Background(), name, endpoints)
}

// Register registers endpoints for name and broadcasts serviceChanged.
func (r *Registry) Register(name string, endpoints ...discovery.Endpoint) {
	r.SetEndpoints(name, endpoints...)
	r.Notify(name)
}

// Notify broadcasts serviceChanged for name to every event stream.
func (r *Registry) Notify(name string) {
	_ = registry.HubPublisher{Hub: r.reg.Hub()}.PublishChange(context.Background(), name, nil)
}

// Respond makes lookups of name answer with status and body verbatim.
func (r *Registry) Respond(name string, status int, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canned[name] = canned{status: status, body: body}
}

// Reset removes a canned response.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.canned, name)
}

// Lookups returns how many lookups of name arrived.
func (r *Registry) Lookups(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups[name]
}

// LastHeader returns the headers of the latest lookup.
func (r *Registry) LastHeader() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHdr
}

// LastPath returns the escaped path of the latest lookup.
func (r *Registry) LastPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pathSeen
}

// Streams returns the number of open event streams.
func (r *Registry) Streams() int { return r.reg.Hub().ClientCount() }
