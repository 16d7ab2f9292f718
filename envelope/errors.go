package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is the error type returned by the registry watcher and the client.
type Error struct {
	// Code is the error category.
	Code ErrorCode `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// StatusCode is the upstream HTTP status, zero when no response arrived.
	StatusCode int `json:"status_code,omitempty"`
	// Payload is the raw meta.error value of an upstream failure. It is nil
	// when the upstream sent no error value, which is a valid failed shape.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Service is the logical service name the call targeted.
	Service string `json:"service,omitempty"`
	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Service != "" {
		fmt.Fprintf(&b, " [%s]", e.Service)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// HasPayload reports whether the upstream sent a non-null meta.error.
func (e *Error) HasPayload() bool {
	return len(e.Payload) > 0 && string(e.Payload) != "null"
}

// PayloadString returns the meta.error value as text. A JSON string is
// unquoted; any other JSON value is returned verbatim.
func (e *Error) PayloadString() string {
	if !e.HasPayload() {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Payload, &s); err == nil {
		return s
	}
	return string(e.Payload)
}

// DecodePayload unmarshals the meta.error value into v.
func (e *Error) DecodePayload(v any) error {
	if !e.HasPayload() {
		return fmt.Errorf("envelope: no error payload")
	}
	return json.Unmarshal(e.Payload, v)
}

// NewTransportError wraps a transport failure.
func NewTransportError(service string, err error) *Error {
	return &Error{
		Code:    ErrCodeTransport,
		Message: "request failed before a response was received",
		Service: service,
		Err:     err,
	}
}

// NewUpstreamError creates an error for a non-success upstream response.
func NewUpstreamError(service string, status int, payload json.RawMessage) *Error {
	e := &Error{
		Code:       ErrCodeUpstream,
		StatusCode: status,
		Payload:    payload,
		Service:    service,
	}
	if msg := e.PayloadString(); msg != "" {
		e.Message = msg
	} else {
		e.Message = fmt.Sprintf("upstream responded with status %d", status)
	}
	return e
}

// NewMalformedResponseError creates an error for a body that failed to parse.
func NewMalformedResponseError(service string, status int, err error) *Error {
	return &Error{
		Code:       ErrCodeMalformedResponse,
		Message:    "response body is not valid JSON",
		StatusCode: status,
		Service:    service,
		Err:        err,
	}
}

// NewUnresolvedServiceError creates the error returned when the registry
// knows no endpoint for service.
func NewUnresolvedServiceError(service string) *Error {
	return &Error{
		Code:    ErrCodeUnresolvedService,
		Message: fmt.Sprintf("Unknown service '%s'. Please check the service name.", service),
		Service: service,
	}
}

// NewInvalidRequestError creates an error for a request that could not be built.
func NewInvalidRequestError(service, message string, err error) *Error {
	return &Error{
		Code:    ErrCodeInvalidRequest,
		Message: message,
		Service: service,
		Err:     err,
	}
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return hasCode(err, ErrCodeTransport) }

// IsUpstream reports whether err is an upstream failure.
func IsUpstream(err error) bool { return hasCode(err, ErrCodeUpstream) }

// IsMalformedResponse reports whether err is a response parse failure.
func IsMalformedResponse(err error) bool { return hasCode(err, ErrCodeMalformedResponse) }

// IsUnresolvedService reports whether err means no endpoint was found.
func IsUnresolvedService(err error) bool { return hasCode(err, ErrCodeUnresolvedService) }

// IsInvalidRequest reports whether err is a local request-building failure.
func IsInvalidRequest(err error) bool { return hasCode(err, ErrCodeInvalidRequest) }

// Outcome labels err for metrics and spans: "ok" for nil, the error code
// for an *Error, "error" otherwise.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := AsError(err); ok {
		return e.Code.String()
	}
	return "error"
}
