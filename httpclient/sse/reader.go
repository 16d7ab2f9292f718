// Package sse reads Server-Sent Events streams.
package sse

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"
)

const maxLineSize = 1 << 20

// Event represents a single server-sent event.
type Event struct {
	// Event is the event type from the "event:" field. Empty means "message".
	Event string
	// Data is the payload; multiple "data:" lines are joined with newlines.
	Data string
	// ID is the last "id:" field of the event.
	ID string
	// Retry is the reconnection delay the server asked for, zero if none.
	Retry time.Duration
}

// Type returns the event type, defaulting to "message".
func (e *Event) Type() string {
	if e.Event == "" {
		return "message"
	}
	return e.Event
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal([]byte(e.Data), v)
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next event. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// NewReader creates an SSE reader from a readable stream.
func NewReader(body io.ReadCloser) Reader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &reader{scanner: sc, body: body}
}

// Next returns the next event. An event is dispatched on a blank line once
// it has data or a type; a pure keep-alive comment yields nothing.
func (r *reader) Next() (*Event, error) {
	var (
		event   Event
		pending bool
		hasData bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if pending {
				return &event, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
			pending = true
		case "event":
			event.Event = value
			pending = true
		case "id":
			event.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if pending {
		return &event, nil
	}
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = strings.TrimPrefix(line[idx+1:], " ")
	return field, value
}
