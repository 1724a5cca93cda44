package middleware

import (
	"io"
	"net/http"
)

// cap on how much leftover request body gets drained before
// giving up on connection reuse
const maxDrainBytes = 1 << 20

// DrainAndCloseRequest drains whatever the handler left in the
// request body and closes it, so the connection can be reused
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
				_ = r.Body.Close()
			}
		})
	}
}
