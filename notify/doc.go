// Package notify defines the push channel through which a service
// registry announces configuration changes.
//
// A Subscriber delivers two kinds of signals to its Handlers: OnConnect
// each time the channel (re)connects, and OnChange for every
// serviceChanged event. Backends live in sub-packages and register
// themselves with RegisterProviderFactory in an init function:
//
//	import _ "github.com/kbukum/serviceclient/notify/redis"
//
//	sub, err := notify.New(cfg, notify.Target{Host: "registry", Port: 8500, ServiceName: "orders"}, log)
//
// Available providers: sse (default, registry event stream), redis, consul,
// etcd, kafka and none.
package notify
