// Package httpclient provides the HTTP transport used by the registry
// watcher and the service client.
//
// The Adapter handles protocol concerns only: JSON body encoding, default
// and per-request headers, per-request timeouts, transport error
// classification and long-lived streaming. Status codes are returned to the
// caller untouched; the envelope package interprets them.
//
//   - sse: Server-Sent Events reader used by the registry event stream
//
// # Basic Usage
//
//	adapter, err := httpclient.New(httpclient.Config{Timeout: 3 * time.Second})
//
//	resp, err := adapter.Do(ctx, httpclient.Request{
//	    Method:  http.MethodGet,
//	    URL:     "http://registry:8500/v1/services/orders",
//	    Timeout: time.Second,
//	})
package httpclient
