// Package observability wires OpenTelemetry tracing and metrics into the
// service client.
//
// Process-wide exporters:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
// Per-client instrumentation:
//
//	tel, err := observability.NewTelemetry(tp, mp)
//	client, err := serviceclient.New(cfg, serviceclient.WithTelemetry(tel))
//
// The client emits serviceclient.request and serviceclient.resolve spans and
// the serviceclient.* instruments defined in meter.go.
package observability
