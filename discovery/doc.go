// Package discovery resolves one logical service name to its endpoints
// through the service registry.
//
// A Watcher keeps the last successful lookup in memory and drops it when
// the registry announces a change over a notify.Subscriber:
//
//	w := discovery.NewWatcher(cfg, sub, adapter, log)
//	if err := w.Connect(ctx); err != nil { ... }
//	defer w.Close()
//
//	endpoints, err := w.Resolve(ctx)
//
// Every (re)connection of the subscription starts a background warm-up
// lookup; its failure is logged and otherwise ignored. Lookups that fail
// leave the cache empty and return an *envelope.Error.
//
// Package discovery/testutil provides an in-process registry for tests.
package discovery
