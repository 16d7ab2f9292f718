package sse

// Broadcaster sends frames to connected stream clients.
type Broadcaster interface {
	// BroadcastToPattern sends a frame to every client whose ID matches the
	// glob pattern, e.g. "events:*".
	BroadcastToPattern(pattern string, frame Frame)
}
