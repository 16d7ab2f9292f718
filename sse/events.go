package sse

// Event names written on the stream.
const (
	// EventConnected is the first event of every stream.
	EventConnected = "connected"

	// EventServiceChanged announces that a service's endpoints changed.
	EventServiceChanged = "serviceChanged"

	// EventKeepAlive names the keep-alive comment.
	EventKeepAlive = "keepalive"
)

// Frame is one event queued for a client.
type Frame struct {
	Event string
	Data  []byte
}
