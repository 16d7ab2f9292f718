package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/redis"
)

// ErrNotFound is returned for a service with no registration.
var ErrNotFound = errors.New("registry: service not registered")

// Store keeps the endpoint list of every registered service.
type Store interface {
	Get(ctx context.Context, name string) ([]discovery.Endpoint, error)
	Put(ctx context.Context, name string, endpoints []discovery.Endpoint) error
	Delete(ctx context.Context, name string) error
}

// Lister is implemented by stores that can enumerate registrations.
type Lister interface {
	Names(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	services map[string][]discovery.Endpoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{services: make(map[string][]discovery.Endpoint)}
}

// Get returns a copy of the registered endpoints.
func (s *MemoryStore) Get(_ context.Context, name string) ([]discovery.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eps, ok := s.services[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]discovery.Endpoint{}, eps...), nil
}

// Put replaces the endpoints of name.
func (s *MemoryStore) Put(_ context.Context, name string, endpoints []discovery.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[name] = append([]discovery.Endpoint{}, endpoints...)
	return nil
}

// Delete removes name. Deleting an unknown service is not an error.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.services, name)
	return nil
}

// Names returns the registered service names, sorted.
func (s *MemoryStore) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.services))
	for n := range s.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// RedisStore keeps registrations as JSON under <prefix>:<name>.
type RedisStore struct {
	store *redis.JSONStore[[]discovery.Endpoint]
}

// NewRedisStore creates a Store on client.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{store: redis.NewJSONStore[[]discovery.Endpoint](client, keyPrefix)}
}

// Get loads the endpoints of name.
func (s *RedisStore) Get(ctx context.Context, name string) ([]discovery.Endpoint, error) {
	eps, ok, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if eps == nil {
		eps = []discovery.Endpoint{}
	}
	return eps, nil
}

// Put saves the endpoints of name without expiry.
func (s *RedisStore) Put(ctx context.Context, name string, endpoints []discovery.Endpoint) error {
	if endpoints == nil {
		endpoints = []discovery.Endpoint{}
	}
	return s.store.Set(ctx, name, endpoints, 0)
}

// Delete removes name.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// Names returns the registered service names, sorted.
func (s *RedisStore) Names(ctx context.Context) ([]string, error) {
	return s.store.Keys(ctx)
}
