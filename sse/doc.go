// Package sse serves Server-Sent Event streams from a fan-out Hub.
//
//	hub := sse.NewHub(log)
//	hub.Start()
//	defer hub.Stop()
//
//	router.GET("/v1/events", func(c *gin.Context) {
//		sse.ServeSSE(hub, c.Writer, c.Request, "events:"+uuid.NewString())
//	})
//
//	hub.Broadcast(sse.Frame{Event: sse.EventServiceChanged, Data: payload})
//
// Every stream opens with a "connected" event. Keep-alive comments follow
// every KeepAliveInterval.
package sse
