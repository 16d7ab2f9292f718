// Package logger provides structured logging on top of zerolog.
//
// It supports JSON and console output, level configuration (including
// trace, which the registry watcher and dispatcher use for their request
// traces) and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "trace"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "orders-client").WithComponent("discovery")
//	log.Trace("getting service config from registry", logger.Fields("url", url))
package logger
