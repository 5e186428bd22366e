package api

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Listener starts and stops the HTTP ingress of spec.md §6 on a fixed
// address, the way the teacher's watchtower server wraps a net.Listener in
// Start/Stop rather than calling http.ListenAndServe directly.
type Listener struct {
	srv      *http.Server
	listener net.Listener
}

// Listen binds addr and returns a Listener ready for Start. Binding early
// (rather than inside Start) lets the caller report a bind failure before
// announcing the daemon is up.
func Listen(addr string, handler http.Handler) (*Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Listener{
		listener: lis,
		srv: &http.Server{
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

// Addr reports the bound address, useful when addr was ":0" in tests.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Start serves in the background until Stop is called.
func (l *Listener) Start() {
	go func() {
		if err := l.srv.Serve(l.listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("api server stopped serving: %v", err)
		}
	}()
	log.Infof("api server listening on %s", l.listener.Addr())
}

// Stop gracefully drains in-flight requests before closing.
func (l *Listener) Stop(ctx context.Context) error {
	log.Infof("api server shutting down")
	return l.srv.Shutdown(ctx)
}
