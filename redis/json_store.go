package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint of each SCAN round trip.
const scanBatch = 100

// JSONStore keeps values of type V as JSON strings under <prefix>:<key>.
type JSONStore[V any] struct {
	client *Client
	prefix string
}

// NewJSONStore creates a JSONStore. An empty prefix stores bare keys.
func NewJSONStore[V any](client *Client, prefix string) *JSONStore[V] {
	return &JSONStore[V]{client: client, prefix: prefix}
}

func (s *JSONStore[V]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Get returns the value of k and whether it exists.
func (s *JSONStore[V]) Get(ctx context.Context, k string) (V, bool, error) {
	var v V
	raw, err := s.client.Get(ctx, s.key(k))
	if errors.Is(err, goredis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("redis get %q: %w", k, err)
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, false, fmt.Errorf("redis decode %q: %w", k, err)
	}
	return v, true, nil
}

// Set stores v under k. A zero ttl never expires.
func (s *JSONStore[V]) Set(ctx context.Context, k string, v V, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis encode %q: %w", k, err)
	}
	if err := s.client.Set(ctx, s.key(k), data, ttl); err != nil {
		return fmt.Errorf("redis set %q: %w", k, err)
	}
	return nil
}

// Delete removes k. A missing key is not an error.
func (s *JSONStore[V]) Delete(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, s.key(k)); err != nil {
		return fmt.Errorf("redis del %q: %w", k, err)
	}
	return nil
}

// Keys lists the stored keys with the prefix stripped, sorted.
func (s *JSONStore[V]) Keys(ctx context.Context) ([]string, error) {
	match := "*"
	if s.prefix != "" {
		match = s.prefix + ":*"
	}
	var keys []string
	iter := s.client.Unwrap().Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if s.prefix != "" {
			k = strings.TrimPrefix(k, s.prefix+":")
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", match, err)
	}
	sort.Strings(keys)
	return keys, nil
}
