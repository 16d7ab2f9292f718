package httpclient

import (
	"io"
	"net/http"
	"time"

	"github.com/kbukum/serviceclient/httpclient/sse"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string
	// URL is the absolute request URL.
	URL string
	// Headers are request-specific headers (merged over the adapter defaults).
	Headers http.Header
	// Body is the request body. Accepts io.Reader, []byte, string, or any value
	// that will be JSON-encoded. Nil sends no payload.
	Body any
	// Timeout overrides the adapter timeout for this request. Zero keeps the
	// adapter default. Ignored by DoStream.
	Timeout time.Duration
}

// Response is the result of an HTTP request. Any status code is a
// Response; interpreting it is left to the caller.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StreamResponse wraps a long-lived streaming response.
type StreamResponse struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// SSE is the Server-Sent Events reader (for text/event-stream responses).
	SSE sse.Reader
	// Body is the raw streaming body (for non-SSE streams).
	Body io.ReadCloser
}

// Close releases all resources associated with the stream.
func (r *StreamResponse) Close() error {
	if r.SSE != nil {
		return r.SSE.Close()
	}
	if r.Body != nil {
		return r.Body.Close()
	}
	return nil
}
