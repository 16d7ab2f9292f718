package envelope

// ErrorCode represents a machine-readable error category.
type ErrorCode string

const (
	// ErrCodeTransport indicates the request never produced a response
	// (connection refused, timeout, cancellation).
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeUpstream indicates a non-success status; Payload holds meta.error.
	ErrCodeUpstream ErrorCode = "UPSTREAM_ERROR"
	// ErrCodeMalformedResponse indicates a body that is not valid JSON.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrCodeUnresolvedService indicates the registry returned no endpoints.
	ErrCodeUnresolvedService ErrorCode = "UNRESOLVED_SERVICE"
	// ErrCodeInvalidRequest indicates the request could not be built locally.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// String returns the code as a string.
func (c ErrorCode) String() string { return string(c) }
