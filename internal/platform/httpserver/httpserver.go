// Package httpserver constructs the listener serving the confirmation API.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server hardened for mobile clients on flaky links: the header
// timeout caps half-open connections, idle keep-alives are bounded, and
// per-request deadlines come from the middleware chain.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
