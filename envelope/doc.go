// Package envelope implements the response envelope shared by the service
// registry and every downstream service, together with the structured
// error type returned by the client.
//
// A successful response carries its payload under "response":
//
//	{"response": {...}}
//
// A failed response carries the upstream error under "meta.error":
//
//	{"meta": {"error": "boom"}}
//
// Decode unwraps the envelope so callers only ever see the payload or an
// *Error. The package also owns the standard outbound header set.
package envelope
