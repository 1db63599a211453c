package middleware

import (
	"net/http"
	"time"
)

// Timeout wraps handlers with an http.TimeoutHandler so a slow
// database or vector query cannot hold a connection open forever.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timeout"}`)
	}
}
