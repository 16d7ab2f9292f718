// Package server runs a Gin HTTP server with h2c support and the standard
// middleware stack (server/middleware): panic recovery, request IDs, body
// size limits and request logging.
//
//	srv := server.New(cfg, log)
//	srv.ApplyMiddleware("/v1/events")
//	srv.RegisterDefaultEndpoints("registry", checkers...)
//	srv.GinEngine().GET("/config", handler)
//	_ = srv.Start(ctx)
//	defer srv.Stop(ctx)
//
// Handlers answer in the {"response": ...} / {"meta": {"error": ...}}
// envelope through RespondOK and RespondError.
package server
