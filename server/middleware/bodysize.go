package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kbukum/serviceclient/envelope"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit caps request bodies at maxSize, e.g. "512KB" or "1MB".
// An unparsable size falls back to 1MB.
func BodySizeLimit(maxSize string) Middleware {
	size := ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				writeEnvelope(w, http.StatusRequestEntityTooLarge, envelope.Fail("request body too large"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// ParseSize parses a byte size with an optional B, KB, MB or GB suffix.
func ParseSize(s string, fallback int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * mult
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope.Body) {
	w.Header().Set("Content-Type", envelope.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
