package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/serviceclient/logger"
)

// KeepAliveInterval is the pause between keep-alive comments. It stays
// below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

// ConnectedEvent is the payload of the first event on a stream.
type ConnectedEvent struct {
	ClientID string            `json:"clientId"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// WriteFrame writes one event in text/event-stream format.
func WriteFrame(w http.ResponseWriter, f Frame) error {
	if f.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", f.Event); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", f.Data)
	return err
}

// ServeSSE streams hub events to one HTTP client until the request ends
// or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	log := hub.log.WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Streams are long-lived; lift the server's write deadline.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", logger.Fields("error", err.Error()))
	}

	client := NewClient(clientID, opts...)
	if !hub.Register(client) {
		http.Error(w, "event hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Metadata: client.Metadata()})
	if err := WriteFrame(w, Frame{Event: EventConnected, Data: connected}); err != nil {
		return
	}
	flusher.Flush()
	log.Debug("client connected", logger.Fields("remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("reason", ctx.Err().Error()))
			return

		case f, ok := <-client.Events():
			if !ok {
				return
			}
			if err := WriteFrame(w, f); err != nil {
				log.Debug("write failed", logger.Fields("error", err.Error()))
				return
			}
			flusher.Flush()

		case <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": %s %d\n\n", EventKeepAlive, time.Now().Unix()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
