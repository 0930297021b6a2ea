package main

import (
	"context"
	"net"
	"net/http"
	"time"
)

// newServer builds the HTTP server. Request contexts derive from a base
// context that Shutdown cancels, so open viewer streams end right away
// instead of holding shutdown until its deadline. No WriteTimeout: viewer
// streams are long-lived.
func newServer(addr string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}
