// Package serviceclient is an HTTP client bound to one logical service.
//
// The client asks the service registry for the service's endpoints, caches
// them until the registry announces a change, and sends requests to the
// first endpoint with the standard header set:
//
//	client, err := serviceclient.New(serviceclient.Config{
//		Registry:    discovery.RegistryConfig{Host: "registry", Port: 8500},
//		ServiceName: "config-service",
//		ClientID:    "billing",
//		CompanyCode: "acme",
//	})
//	defer client.Close()
//
//	payload, err := client.Get(ctx, "/sections/databases", serviceclient.RequestOptions{})
//
// Responses are unwrapped from the {"response": ...} envelope. Failures are
// *envelope.Error values; use envelope.IsUpstream and friends to branch.
package serviceclient
