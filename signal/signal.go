// Package signal turns OS interrupts into a cooperative shutdown channel so
// an in-flight Confirm call can finish (per spec.md §5, "Cancellation")
// instead of being killed mid-critical-section. The teacher's own signal
// handling was not part of the retrieved pack; this follows the logging
// package's init-then-UseLogger bring-up convention (build/log.go) applied
// to shutdown instead.
package signal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/decred/slog"
)

// log is replaced by SetupLoggers once the daemon's RotatingLogWriter is
// ready; until then it is disabled.
var log = slog.Disabled

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Interceptor relays SIGINT/SIGTERM into a channel consumers can select on.
type Interceptor struct {
	once     sync.Once
	quit     chan struct{}
	signals  chan os.Signal
	shutdown sync.Once
}

// NewInterceptor installs the OS signal handlers and returns the interceptor.
func NewInterceptor() *Interceptor {
	i := &Interceptor{
		quit:    make(chan struct{}),
		signals: make(chan os.Signal, 1),
	}
	signal.Notify(i.signals, os.Interrupt, syscall.SIGTERM)
	go i.listen()
	return i
}

func (i *Interceptor) listen() {
	<-i.signals
	log.Infof("received interrupt signal, shutting down")
	i.RequestShutdown()
}

// RequestShutdown closes the quit channel exactly once.
func (i *Interceptor) RequestShutdown() {
	i.shutdown.Do(func() {
		close(i.quit)
	})
}

// ShutdownChannel returns the channel that is closed when shutdown is
// requested, either by an OS signal or a call to RequestShutdown.
func (i *Interceptor) ShutdownChannel() <-chan struct{} {
	return i.quit
}
