// Package bootstrap runs a binary's lifecycle: it validates the config,
// sets up logging, starts components in order, waits for a signal and
// stops them in reverse within a graceful timeout.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.Register(bootstrap.Hooks{ComponentName: "http", OnStart: srv.Start, OnStop: srv.Stop})
//	err = app.Run(ctx)
package bootstrap
