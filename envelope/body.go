package envelope

import (
	"encoding/json"
	"net/http"
)

// Body is the wire shape of every registry and service response.
type Body struct {
	Response json.RawMessage `json:"response,omitempty"`
	Meta     *Meta           `json:"meta,omitempty"`
}

// Meta carries response metadata, most importantly the upstream error.
type Meta struct {
	Error json.RawMessage `json:"error,omitempty"`
}

// Decode unwraps a raw response. A status of exactly 200 yields the
// response payload; any other status yields an upstream *Error carrying
// meta.error. A body that is not JSON yields a malformed-response *Error
// regardless of status. An empty non-200 body is treated as an envelope
// without meta.
func Decode(service string, status int, raw []byte) (json.RawMessage, error) {
	var body Body
	if len(raw) > 0 || status == http.StatusOK {
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, NewMalformedResponseError(service, status, err)
		}
	}
	if status != http.StatusOK {
		var payload json.RawMessage
		if body.Meta != nil {
			payload = body.Meta.Error
		}
		return nil, NewUpstreamError(service, status, payload)
	}
	return body.Response, nil
}

// OK builds a success envelope around payload.
func OK(payload any) (Body, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Body{}, err
	}
	return Body{Response: raw}, nil
}

// Fail builds a failure envelope around an error value.
func Fail(errValue any) Body {
	raw, err := json.Marshal(errValue)
	if err != nil {
		raw, _ = json.Marshal(err.Error())
	}
	return Body{Meta: &Meta{Error: raw}}
}

// FromError builds a failure envelope for err. An upstream *Error keeps its
// original payload so proxies relay it unchanged.
func FromError(err error) Body {
	if e, ok := AsError(err); ok {
		if e.Code == ErrCodeUpstream && e.HasPayload() {
			return Body{Meta: &Meta{Error: e.Payload}}
		}
		return Fail(e.Message)
	}
	return Fail(err.Error())
}

// StatusFor maps an error to the HTTP status a proxy should answer with.
func StatusFor(err error) int {
	e, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case ErrCodeUpstream:
		if e.StatusCode >= 400 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case ErrCodeUnresolvedService:
		return http.StatusServiceUnavailable
	case ErrCodeTransport:
		return http.StatusBadGateway
	case ErrCodeMalformedResponse:
		return http.StatusBadGateway
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
