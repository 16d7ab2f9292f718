// Package testutil runs an in-process service registry for tests.
//
// The registry speaks the lookup and event-stream protocol of the real
// one, counts lookups per service and can be told to fail or to answer
// with an arbitrary body.
//
//	reg := testutil.NewRegistry(t)
//	reg.SetEndpoints("config", discovery.Endpoint{Host: "h", Port: 9, APIURI: "/api"})
//
//	w, _ := discovery.NewWatcher(discovery.Config{
//	    Registry:    reg.Config(),
//	    ServiceName: "config",
//	}, nil, nil, nil)
package testutil
