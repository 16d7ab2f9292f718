// Package registry is a small service registry that speaks the protocol
// the client expects. It backs cmd/registry and the in-process registry in
// discovery/testutil.
//
// Registrations live in memory or in Redis. Every PUT or DELETE is
// announced as a serviceChanged event on the SSE stream at /v1/events and,
// when configured, on a Redis channel, a Kafka topic or an etcd prefix.
package registry
