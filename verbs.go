package serviceclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kbukum/serviceclient/envelope"
)

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	opts.Method = http.MethodGet
	return c.Request(ctx, path, opts)
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	opts.Method = http.MethodPost
	return c.Request(ctx, path, opts)
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	opts.Method = http.MethodPut
	return c.Request(ctx, path, opts)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	opts.Method = http.MethodDelete
	return c.Request(ctx, path, opts)
}

// Del is an alias of Delete.
func (c *Client) Del(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	return c.Delete(ctx, path, opts)
}

// GetJSON sends a GET request and decodes the payload into T.
func GetJSON[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	return decodeInto[T](c, func() (json.RawMessage, error) { return c.Get(ctx, path, opts) })
}

// PostJSON sends a POST request and decodes the payload into T.
func PostJSON[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	return decodeInto[T](c, func() (json.RawMessage, error) { return c.Post(ctx, path, opts) })
}

// PutJSON sends a PUT request and decodes the payload into T.
func PutJSON[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	return decodeInto[T](c, func() (json.RawMessage, error) { return c.Put(ctx, path, opts) })
}

// DeleteJSON sends a DELETE request and decodes the payload into T.
func DeleteJSON[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	return decodeInto[T](c, func() (json.RawMessage, error) { return c.Delete(ctx, path, opts) })
}

// decodeInto runs call and unmarshals its payload. An absent payload
// yields the zero T.
func decodeInto[T any](c *Client, call func() (json.RawMessage, error)) (T, error) {
	var out T
	raw, err := call()
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, envelope.NewMalformedResponseError(c.cfg.ServiceName, http.StatusOK, err)
	}
	return out, nil
}
